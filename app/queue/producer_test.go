package queue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-website/app/entity"
)

func TestEmailProducerPublish(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	producer := NewEmailProducer(client)
	if err := producer.Publish(context.Background(), &entity.Message{
		ID:      "msg-1",
		To:      []string{"jane@example.com"},
		Subject: "Thank you",
		HTML:    "<p>Thanks</p>",
		Raw:     []byte("prepared"),
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	entries, err := client.XRange(context.Background(), StreamName, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	msg, err := decodeMessage(entries[0].Values)
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}
	if msg.ID != "msg-1" || msg.Subject != "Thank you" || len(msg.To) != 1 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if len(msg.Raw) != 0 {
		t.Fatalf("expected raw body not to travel through the stream")
	}
}

func TestDecodeMessageMalformed(t *testing.T) {
	t.Parallel()

	for _, values := range []map[string]interface{}{
		{},
		{payloadField: ""},
		{payloadField: "{not json"},
	} {
		if _, err := decodeMessage(values); err == nil {
			t.Fatalf("expected error for %v", values)
		}
	}
}
