package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-website/app/entity"
	"github.com/vibast-solutions/ms-go-website/app/provider"
)

type AttemptKind string

const (
	AttemptSuccess   AttemptKind = "success"
	AttemptTransient AttemptKind = "transient"
	AttemptFatal     AttemptKind = "fatal"
)

// AttemptResult describes one send through one transport.
type AttemptResult struct {
	Transport      string         `json:"transport"`
	TransportIndex int            `json:"transport_index"`
	Attempt        int            `json:"attempt"`
	Kind           AttemptKind    `json:"kind"`
	MessageID      string         `json:"message_id,omitempty"`
	Response       string         `json:"response,omitempty"`
	Class          provider.Class `json:"class,omitempty"`
	Command        string         `json:"command,omitempty"`
	Code           int            `json:"code,omitempty"`
	Error          string         `json:"error,omitempty"`
	Delay          time.Duration  `json:"delay"`
	Duration       time.Duration  `json:"duration"`
}

// Executor performs a single delivery attempt.
type Executor struct {
	timeout time.Duration
}

// NewExecutor constructs an executor. A zero timeout leaves the attempt
// bounded only by the caller's context.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute sends msg once through handle and classifies the result. It never panics.
func (e *Executor) Execute(ctx context.Context, handle provider.EmailProvider, msg *entity.Message) (res AttemptResult) {
	start := time.Now()
	res.Transport = handle.Name()

	defer func() {
		if r := recover(); r != nil {
			res.Kind = AttemptFatal
			res.Class = provider.ClassUnknown
			res.Error = fmt.Sprintf("transport panicked: %v", r)
		}
		res.Duration = time.Since(start)
	}()

	attemptCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	receipt, err := handle.Send(attemptCtx, msg)
	if err == nil {
		res.Kind = AttemptSuccess
		res.MessageID = receipt.MessageID
		if res.MessageID == "" {
			res.MessageID = msg.ID
		}
		res.Response = receipt.Response
		return res
	}

	sendErr := provider.Classify(err)
	res.Class = sendErr.Class
	res.Command = sendErr.Command
	res.Code = sendErr.Code
	res.Response = sendErr.Response
	res.Error = err.Error()
	if sendErr.Fatal() {
		res.Kind = AttemptFatal
	} else {
		res.Kind = AttemptTransient
	}
	return res
}
