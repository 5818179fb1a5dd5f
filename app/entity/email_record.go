package entity

import "time"

const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailRecord summarizes one completed delivery run.
type EmailRecord struct {
	MessageID string    `json:"message_id"`
	Recipient string    `json:"recipient"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	Transport string    `json:"transport,omitempty"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}
