package entity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Message is the unit of work handed to the delivery orchestrator.
type Message struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	To          []string     `json:"to"`
	ReplyTo     string       `json:"reply_to,omitempty"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Tag         string       `json:"tag,omitempty"`

	// Raw is the prepared MIME message. It is rebuilt after a queue hop.
	Raw []byte `json:"-"`
}

// Attachment carries either inline content or a path read at preparation time.
type Attachment struct {
	Filename    string `json:"filename"`
	Path        string `json:"path,omitempty"`
	Content     []byte `json:"content,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Recipient returns the recipients joined for logs and records.
func (m *Message) Recipient() string {
	return strings.Join(m.To, ", ")
}

// Ready reports whether the message satisfies the delivery invariant.
func (m *Message) Ready() bool {
	if m == nil || strings.TrimSpace(m.Subject) == "" {
		return false
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) != "" {
			return true
		}
	}
	return false
}

// Load returns the attachment bytes, reading Path when no inline content is set.
func (a Attachment) Load() ([]byte, error) {
	if len(a.Content) > 0 {
		return a.Content, nil
	}
	if a.Path == "" {
		return nil, fmt.Errorf("attachment %q has neither content nor path", a.Filename)
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("read attachment %q: %w", a.Filename, err)
	}
	return data, nil
}

// Name returns the filename, falling back to the base of Path.
func (a Attachment) Name() string {
	if a.Filename != "" {
		return a.Filename
	}
	return filepath.Base(a.Path)
}
