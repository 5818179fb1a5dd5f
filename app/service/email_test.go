package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-website/app/delivery"
	"github.com/vibast-solutions/ms-go-website/app/entity"
	"github.com/vibast-solutions/ms-go-website/app/lock"
)

type stubPreparer struct {
	err   error
	calls int
}

func (p *stubPreparer) Prepare(_ context.Context, msg *entity.Message) error {
	p.calls++
	if p.err != nil {
		return p.err
	}
	if msg.ID == "" {
		msg.ID = "generated-id"
	}
	msg.Raw = []byte("Subject: test\r\n\r\nbody")
	return nil
}

type stubDeliverer struct {
	mu        sync.Mutex
	outcome   delivery.Outcome
	delivered []*entity.Message
	recorded  []delivery.Outcome
}

func (d *stubDeliverer) Deliver(_ context.Context, msg *entity.Message) delivery.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, msg)
	out := d.outcome
	if msg == nil {
		out = delivery.Outcome{Error: delivery.ErrInvalidMessage.Error()}
	}
	d.recorded = append(d.recorded, out)
	return out
}

func (d *stubDeliverer) Record(_ context.Context, _ *entity.Message, out delivery.Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recorded = append(d.recorded, out)
}

type stubLocker struct {
	acquireErr error
	acquired   []string
	released   []string
}

func (l *stubLocker) Acquire(_ context.Context, key string, _ time.Duration) error {
	if l.acquireErr != nil {
		return l.acquireErr
	}
	l.acquired = append(l.acquired, key)
	return nil
}

func (l *stubLocker) Release(_ context.Context, key string) error {
	l.released = append(l.released, key)
	return nil
}

func testMessage() *entity.Message {
	return &entity.Message{
		ID:      "msg-1",
		From:    "Website <no-reply@example.com>",
		To:      []string{"sales@example.com"},
		Subject: "Hello",
		HTML:    "<p>Hello</p>",
	}
}

func TestEmailServiceSendDelivers(t *testing.T) {
	t.Parallel()

	deliverer := &stubDeliverer{outcome: delivery.Outcome{Success: true, MessageID: "msg-1", Transport: "primary"}}
	locker := &stubLocker{}
	svc := NewEmailService(&stubPreparer{}, deliverer, locker)

	out, err := svc.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !out.Success || out.Transport != "primary" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(deliverer.delivered) != 1 || len(deliverer.delivered[0].Raw) == 0 {
		t.Fatalf("expected prepared message to be delivered once")
	}
	if len(locker.acquired) != 1 || locker.acquired[0] != lock.EmailKey("msg-1") {
		t.Fatalf("unexpected lock keys: %v", locker.acquired)
	}
	if len(locker.released) != 1 {
		t.Fatalf("expected lock release, got %v", locker.released)
	}
}

func TestEmailServiceSendRecordsPrepareFailure(t *testing.T) {
	t.Parallel()

	deliverer := &stubDeliverer{}
	svc := NewEmailService(&stubPreparer{err: errors.New("bad template")}, deliverer, nil)

	out, err := svc.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if out.Success || out.Error != "prepare email: bad template" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(deliverer.delivered) != 0 {
		t.Fatalf("expected no delivery after prepare failure")
	}
	if len(deliverer.recorded) != 1 {
		t.Fatalf("expected failed run to be recorded once, got %d", len(deliverer.recorded))
	}
}

func TestEmailServiceSendNilMessage(t *testing.T) {
	t.Parallel()

	preparer := &stubPreparer{}
	deliverer := &stubDeliverer{}
	svc := NewEmailService(preparer, deliverer, nil)

	out, err := svc.Send(context.Background(), nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if out.Success || preparer.calls != 0 {
		t.Fatalf("expected nil message to skip preparation and fail, got %+v", out)
	}
	if len(deliverer.recorded) != 1 {
		t.Fatalf("expected one record, got %d", len(deliverer.recorded))
	}
}

func TestEmailServiceSendLockContention(t *testing.T) {
	t.Parallel()

	deliverer := &stubDeliverer{}
	svc := NewEmailService(&stubPreparer{}, deliverer, &stubLocker{acquireErr: lock.ErrNotAcquired})

	if _, err := svc.Send(context.Background(), testMessage()); !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("expected ErrAlreadyProcessing, got %v", err)
	}
	if len(deliverer.delivered) != 0 {
		t.Fatalf("expected no delivery while locked")
	}
}

func TestEmailServiceSendLockError(t *testing.T) {
	t.Parallel()

	svc := NewEmailService(&stubPreparer{}, &stubDeliverer{}, &stubLocker{acquireErr: errors.New("redis down")})

	_, err := svc.Send(context.Background(), testMessage())
	if err == nil || errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("expected wrapped lock error, got %v", err)
	}
}
