package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-website/app/delivery"
	"github.com/vibast-solutions/ms-go-website/app/entity"
	"github.com/vibast-solutions/ms-go-website/app/lock"
	"github.com/vibast-solutions/ms-go-website/app/preparer"
)

// EmailLockTTL bounds how long one delivery run holds the per-message lock.
const EmailLockTTL = 2 * time.Minute

// Deliverer runs the fallback and retry loop for a prepared message.
type Deliverer interface {
	Deliver(ctx context.Context, msg *entity.Message) delivery.Outcome
	Record(ctx context.Context, msg *entity.Message, out delivery.Outcome)
}

type EmailService struct {
	preparer  preparer.EmailPreparer
	deliverer Deliverer
	locker    lock.Locker
}

// NewEmailService builds the email service with dependencies. locker may be nil.
func NewEmailService(preparer preparer.EmailPreparer, deliverer Deliverer, locker lock.Locker) *EmailService {
	return &EmailService{preparer: preparer, deliverer: deliverer, locker: locker}
}

// Send prepares the message and hands it to the orchestrator. A preparation
// failure is recorded as a failed run. The returned error is reserved for
// lock contention.
func (s *EmailService) Send(ctx context.Context, msg *entity.Message) (delivery.Outcome, error) {
	if msg == nil {
		return s.deliverer.Deliver(ctx, nil), nil
	}
	if err := s.preparer.Prepare(ctx, msg); err != nil {
		out := delivery.Outcome{Error: fmt.Sprintf("prepare email: %v", err)}
		s.deliverer.Record(ctx, msg, out)
		log.WithFields(logFields(ctx, log.Fields{
			"message_id": msg.ID,
			"subject":    msg.Subject,
		})).Errorf("failed to prepare email: %v", err)
		return out, nil
	}

	if s.locker != nil {
		lockKey := lock.EmailKey(msg.ID)
		if err := s.locker.Acquire(ctx, lockKey, EmailLockTTL); err != nil {
			if errors.Is(err, lock.ErrNotAcquired) || errors.Is(err, lock.ErrAlreadyHeld) {
				return delivery.Outcome{}, ErrAlreadyProcessing
			}
			return delivery.Outcome{}, fmt.Errorf("acquire lock: %w", err)
		}
		defer func() {
			_ = s.locker.Release(context.Background(), lockKey)
		}()
	}

	return s.deliverer.Deliver(ctx, msg), nil
}
