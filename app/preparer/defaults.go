package preparer

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-website/app/entity"
)

// DefaultsPreparer stamps the message id and the configured sender.
type DefaultsPreparer struct {
	sender string
}

// NewDefaultsPreparer creates a step that fills ID and From when empty.
func NewDefaultsPreparer(sender string) *DefaultsPreparer {
	return &DefaultsPreparer{sender: sender}
}

func (p *DefaultsPreparer) Prepare(_ context.Context, msg *entity.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if strings.TrimSpace(msg.From) == "" {
		msg.From = p.sender
	}

	recipients := msg.To[:0]
	for _, to := range msg.To {
		if to = strings.TrimSpace(to); to != "" {
			recipients = append(recipients, to)
		}
	}
	msg.To = recipients
	msg.Subject = strings.TrimSpace(msg.Subject)
	return nil
}
