package domain

import "time"

// CallRecord is the archived result of a completed qualification call.
type CallRecord struct {
	ID          string              `json:"id" gorm:"column:id;primaryKey"`
	LeadID      string              `json:"lead_id" gorm:"column:lead_id;index"`
	CallSID     string              `json:"call_sid" gorm:"column:call_sid;unique"`
	Verdict     QualificationResult `json:"verdict" gorm:"column:verdict"`
	Summary     string              `json:"summary" gorm:"column:summary"`
	Reason      string              `json:"reason" gorm:"column:reason"`
	StartedAt   time.Time           `json:"started_at" gorm:"column:started_at"`
	CompletedAt time.Time           `json:"completed_at" gorm:"column:completed_at"`
	CreatedAt   time.Time           `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time           `json:"updated_at" gorm:"column:updated_at"`
}

func (CallRecord) TableName() string {
	return "call_records"
}

// CallRecordTurn is one archived turn of a completed call.
type CallRecordTurn struct {
	ID           string    `json:"id" gorm:"column:id;primaryKey"`
	CallRecordID string    `json:"call_record_id" gorm:"column:call_record_id;index"`
	Speaker      Speaker   `json:"speaker" gorm:"column:speaker"`
	Text         string    `json:"text" gorm:"column:text"`
	Confidence   string    `json:"confidence" gorm:"column:confidence"`
	SpokenAt     time.Time `json:"spoken_at" gorm:"column:spoken_at"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
}

func (CallRecordTurn) TableName() string {
	return "call_record_turns"
}
