package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-website/app/entity"
	"github.com/vibast-solutions/ms-go-website/app/profile"
	"github.com/vibast-solutions/ms-go-website/app/provider"
)

// ProfileSource yields transport profiles in the order they are tried.
type ProfileSource interface {
	Profiles() []profile.Profile
}

// Builder turns a profile into a live handle.
type Builder interface {
	Build(ctx context.Context, p profile.Profile) (provider.EmailProvider, error)
}

// Recorder keeps the in-memory history of runs.
type Recorder interface {
	Append(record entity.EmailRecord)
}

// Sink persists records durably.
type Sink interface {
	Save(ctx context.Context, record entity.EmailRecord) error
}

type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Orchestrator)

// WithPolicy overrides the retry policy.
func WithPolicy(policy RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.policy = policy
	}
}

// WithDeadline bounds a whole Deliver call.
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.deadline = d
	}
}

// WithSink forwards every record to a durable store as well.
func WithSink(sink Sink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithSleep replaces the backoff wait. Used by tests.
func WithSleep(sleep SleepFunc) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// Orchestrator walks the transport list with per-transport retries.
type Orchestrator struct {
	profiles ProfileSource
	builder  Builder
	executor *Executor
	records  Recorder
	sink     Sink
	policy   RetryPolicy
	deadline time.Duration
	sleep    SleepFunc
}

// NewOrchestrator constructs an orchestrator over the given profiles.
func NewOrchestrator(profiles ProfileSource, builder Builder, executor *Executor, records Recorder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		profiles: profiles,
		builder:  builder,
		executor: executor,
		records:  records,
		policy:   DefaultRetryPolicy(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.executor == nil {
		o.executor = NewExecutor(0)
	}
	return o
}

// Deliver tries every transport in order until one accepts the message.
// It never returns an error: failures are reported in the Outcome and
// exactly one EmailRecord is appended per call.
func (o *Orchestrator) Deliver(ctx context.Context, msg *entity.Message) (out Outcome) {
	start := time.Now()
	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			out.Success = false
			out.Error = fmt.Sprintf("delivery panicked: %v", r)
		}
		out.Duration = time.Since(start)
		o.Record(ctx, msg, out)
	}()

	if !msg.Ready() {
		out.Error = ErrInvalidMessage.Error()
		return out
	}

	out = o.run(ctx, msg)
	return out
}

func (o *Orchestrator) run(ctx context.Context, msg *entity.Message) Outcome {
	var out Outcome
	fields := log.Fields{
		"message_id": msg.ID,
		"recipient":  msg.Recipient(),
		"subject":    msg.Subject,
	}

	profiles := o.profiles.Profiles()

transports:
	for i, p := range profiles {
		if ctx.Err() != nil {
			break
		}

		handle, err := o.build(ctx, p)
		if err != nil {
			out.ConfigErrors = append(out.ConfigErrors, err.Error())
			log.WithFields(fields).WithField("transport", p.Name).Warnf("transport skipped: %v", err)
			continue
		}

		for retry := 0; ; retry++ {
			var delay time.Duration
			if retry > 0 {
				delay = o.policy.Delay(retry)
				if err := o.sleep(ctx, delay); err != nil {
					break transports
				}
			}

			res := o.executor.Execute(ctx, handle, msg)
			res.TransportIndex = i + 1
			res.Attempt = retry + 1
			res.Delay = delay
			out.Attempts = append(out.Attempts, res)

			entry := log.WithFields(fields).WithFields(log.Fields{
				"transport": res.Transport,
				"index":     res.TransportIndex,
				"attempt":   res.Attempt,
				"duration":  res.Duration.String(),
			})

			switch res.Kind {
			case AttemptSuccess:
				entry.WithField("response", res.Response).Info("email delivered")
				out.Success = true
				out.MessageID = res.MessageID
				out.Transport = res.Transport
				out.TransportIndex = res.TransportIndex
				return out
			case AttemptFatal:
				entry.WithFields(log.Fields{"class": res.Class, "code": res.Code}).Warnf("transport failed: %s", res.Error)
				continue transports
			}

			entry.WithFields(log.Fields{"class": res.Class, "code": res.Code}).Warnf("transient failure: %s", res.Error)
			if retry >= o.policy.MaxRetries {
				continue transports
			}
			if ctx.Err() != nil {
				break transports
			}
		}
	}

	out.Error = failureReason(ctx, out)
	log.WithFields(fields).WithFields(log.Fields{
		"attempts":      len(out.Attempts),
		"config_errors": len(out.ConfigErrors),
	}).Errorf("email delivery failed: %s", out.Error)
	return out
}

// build asks the builder for a handle, turning a panic into a construction error.
func (o *Orchestrator) build(ctx context.Context, p profile.Profile) (handle provider.EmailProvider, err error) {
	defer func() {
		if r := recover(); r != nil {
			handle = nil
			err = &provider.ConstructionError{Profile: p.Name, Err: fmt.Errorf("build panicked: %v", r)}
		}
	}()
	return o.builder.Build(ctx, p)
}

// Record appends the run's EmailRecord and forwards it to the sink.
func (o *Orchestrator) Record(ctx context.Context, msg *entity.Message, out Outcome) {
	record := entity.EmailRecord{
		MessageID: out.MessageID,
		Status:    entity.EmailStatusFailed,
		Transport: out.Transport,
		Error:     out.Error,
		Attempts:  len(out.Attempts),
		CreatedAt: time.Now().UTC(),
	}
	if msg != nil {
		if record.MessageID == "" {
			record.MessageID = msg.ID
		}
		record.Recipient = msg.Recipient()
		record.Sender = msg.From
		record.Subject = msg.Subject
	}
	if out.Success {
		record.Status = entity.EmailStatusSent
	}

	if o.records != nil {
		o.records.Append(record)
	}
	if o.sink == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.sink.Save(saveCtx, record); err != nil {
		log.WithField("message_id", record.MessageID).Warnf("failed to persist email record: %v", err)
	}
}

func failureReason(ctx context.Context, out Outcome) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrDeadlineExceeded.Error()
	}
	if err := ctx.Err(); err != nil {
		return err.Error()
	}
	if last, ok := out.LastAttempt(); ok {
		return fmt.Sprintf("all transports failed, last error: %s", last.Error)
	}
	return ErrNoTransport.Error()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
