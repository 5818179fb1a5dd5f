package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-website/app/entity"
)

type EmailProducer struct {
	client redis.UniversalClient
}

// NewEmailProducer constructs a Redis stream producer.
func NewEmailProducer(client redis.UniversalClient) *EmailProducer {
	return &EmailProducer{client: client}
}

// Publish pushes a composed message onto the stream. Raw is not carried;
// the worker prepares the message again.
func (p *EmailProducer) Publish(ctx context.Context, msg *entity.Message) error {
	payload, err := encodeMessage(msg)
	if err != nil {
		return err
	}

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"message_id": msg.ID,
			payloadField: payload,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd to %s: %w", StreamName, err)
	}
	return nil
}
