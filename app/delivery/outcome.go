package delivery

import (
	"errors"
	"time"
)

var (
	ErrInvalidMessage   = errors.New("message needs at least one recipient and a subject")
	ErrNoTransport      = errors.New("no transport could be constructed")
	ErrDeadlineExceeded = errors.New("delivery deadline exceeded")
)

// Outcome summarizes one orchestrator run.
type Outcome struct {
	Success        bool            `json:"success"`
	MessageID      string          `json:"message_id,omitempty"`
	Transport      string          `json:"transport,omitempty"`
	TransportIndex int             `json:"transport_index,omitempty"`
	Error          string          `json:"error,omitempty"`
	Attempts       []AttemptResult `json:"attempts"`
	ConfigErrors   []string        `json:"config_errors,omitempty"`
	Duration       time.Duration   `json:"duration"`
}

// LastAttempt returns the final attempt, if any.
func (o Outcome) LastAttempt() (AttemptResult, bool) {
	if len(o.Attempts) == 0 {
		return AttemptResult{}, false
	}
	return o.Attempts[len(o.Attempts)-1], true
}
