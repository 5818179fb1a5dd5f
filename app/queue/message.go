package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-website/app/entity"
)

const StreamName = "website:email:send"
const ConsumerGroup = "email-senders"

// streamMaxLen caps the stream so acknowledged entries do not pile up.
const streamMaxLen = 10000

const payloadField = "payload"

var ErrMalformedPayload = errors.New("malformed queue payload")

func encodeMessage(msg *entity.Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode message %s: %w", msg.ID, err)
	}
	return string(data), nil
}

func decodeMessage(values map[string]interface{}) (*entity.Message, error) {
	raw, ok := values[payloadField].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: missing %s field", ErrMalformedPayload, payloadField)
	}
	var msg entity.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &msg, nil
}
