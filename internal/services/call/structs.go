package call

// CallResult is returned after successfully initiating a call.
type CallResult struct {
	CallSID string `json:"call_sid"`
	Status  string `json:"status"`
	To      string `json:"to"`
	LeadID  string `json:"lead_id"`
}

// CallStatus is a snapshot of one call fetched from Twilio.
type CallStatus struct {
	SID       string `json:"sid"`
	Status    string `json:"status"`
	Duration  string `json:"duration"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Price     string `json:"price"`
	PriceUnit string `json:"price_unit"`
}

// CallSummary is one entry of the recent call log.
type CallSummary struct {
	SID       string `json:"sid"`
	To        string `json:"to"`
	From      string `json:"from"`
	Status    string `json:"status"`
	StartTime string `json:"start_time"`
	Duration  string `json:"duration"`
	Price     string `json:"price"`
}
