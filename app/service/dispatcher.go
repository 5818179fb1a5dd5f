package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-website/app/delivery"
	"github.com/vibast-solutions/ms-go-website/app/entity"
)

// DispatchResult reports what happened to one outgoing email.
type DispatchResult struct {
	MessageID string
	Delivered bool
	Queued    bool
	Outcome   *delivery.Outcome
}

// Accepted reports whether the email was sent or handed to a worker.
func (r DispatchResult) Accepted() bool {
	return r.Delivered || r.Queued
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg *entity.Message) (DispatchResult, error)
}

// Publisher enqueues messages for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, msg *entity.Message) error
}

// DirectDispatcher delivers in the calling goroutine.
type DirectDispatcher struct {
	email *EmailService
}

// NewDirectDispatcher constructs a dispatcher that sends synchronously.
func NewDirectDispatcher(email *EmailService) *DirectDispatcher {
	return &DirectDispatcher{email: email}
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, msg *entity.Message) (DispatchResult, error) {
	out, err := d.email.Send(ctx, msg)
	if err != nil {
		return DispatchResult{MessageID: msg.ID}, err
	}

	result := DispatchResult{MessageID: msg.ID, Delivered: out.Success, Outcome: &out}
	if !out.Success {
		return result, fmt.Errorf("%w: %s", ErrDeliveryFailed, out.Error)
	}
	return result, nil
}

// QueueDispatcher publishes to the delivery stream for the consume workers.
type QueueDispatcher struct {
	publisher Publisher
}

// NewQueueDispatcher constructs a dispatcher that enqueues messages.
func NewQueueDispatcher(publisher Publisher) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg *entity.Message) (DispatchResult, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if err := d.publisher.Publish(ctx, msg); err != nil {
		return DispatchResult{MessageID: msg.ID}, fmt.Errorf("queue email: %w", err)
	}
	return DispatchResult{MessageID: msg.ID, Queued: true}, nil
}
