package preparer

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-website/app/entity"
)

var (
	ErrEmptyRaw      = errors.New("prepared raw message is empty")
	ErrInvalidHeader = errors.New("header value contains line breaks")
)

type EmailPreparer interface {
	Prepare(ctx context.Context, msg *entity.Message) error
}

type Step interface {
	Prepare(ctx context.Context, msg *entity.Message) error
}

type Chain struct {
	steps []Step
}

// NewChain builds an email preparer chain from steps. Nil steps are skipped.
func NewChain(steps ...Step) *Chain {
	c := &Chain{}
	for _, step := range steps {
		if step != nil {
			c.steps = append(c.steps, step)
		}
	}
	return c
}

// Prepare runs all preparer steps and leaves the final MIME bytes in msg.Raw.
func (c *Chain) Prepare(ctx context.Context, msg *entity.Message) error {
	for _, step := range c.steps {
		if err := step.Prepare(ctx, msg); err != nil {
			return err
		}
	}

	if len(msg.Raw) == 0 {
		return ErrEmptyRaw
	}
	return nil
}
