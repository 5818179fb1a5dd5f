package provider

import (
	"context"

	"github.com/vibast-solutions/ms-go-website/app/entity"
)

// EmailProvider is a live transport handle bound to one profile.
type EmailProvider interface {
	Name() string
	Send(ctx context.Context, msg *entity.Message) (Receipt, error)
	Close() error
}

// Receipt describes an accepted message.
type Receipt struct {
	MessageID string
	Response  string
}
