package domain

import "strings"

// Lead is a prospective customer record fetched from the CRM.
type Lead struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Phone     string `json:"phone"`
}

// DisplayName formats the lead's name for the spoken greeting, falling
// back to a generic polite address when the CRM fields are empty.
func (l *Lead) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(l.FirstName) + " " + strings.TrimSpace(l.LastName))
	if name == "" {
		return "Sir/Madam"
	}
	return name
}
