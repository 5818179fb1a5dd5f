package provider

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-website/app/entity"
)

// NoopProvider pretends to send emails. Used for local development.
type NoopProvider struct {
	name string
}

// NewNoopProvider constructs a no-op email provider.
func NewNoopProvider(name string) *NoopProvider {
	return &NoopProvider{name: name}
}

func (p *NoopProvider) Name() string {
	return p.name
}

// Send logs the message and reports it as accepted.
func (p *NoopProvider) Send(_ context.Context, msg *entity.Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, &SendError{Transport: p.name, Class: ClassInvalid, Command: "send", Err: ErrNoRecipients}
	}

	log.WithFields(log.Fields{
		"transport": p.name,
		"to":        msg.Recipient(),
		"subject":   msg.Subject,
	}).Info("noop transport accepted email")

	return Receipt{MessageID: "noop-" + msg.ID, Response: "accepted by noop"}, nil
}

func (p *NoopProvider) Close() error {
	return nil
}
