package domain

import "time"

// Answer stores one response per (session, question). Re-submission overwrites it.
type Answer struct {
	ID             string             `json:"id"`
	TenantID       string             `json:"tenant_id"`
	SessionID      string             `json:"session_id"`
	QuestionID     string             `json:"question_id"`
	SelectedOption Option             `json:"selected_option"`
	Strength       PreferenceStrength `json:"strength"`
	TieBreaker     bool               `json:"tie_breaker"`
	AnsweredAt     time.Time          `json:"answered_at"`
}
