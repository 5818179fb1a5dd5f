package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-website/app/dto"
)

func newTestComposer(t *testing.T, brochurePath string) *Composer {
	t.Helper()

	composer, err := NewComposer("Acme Studio", "hello@acme.test", brochurePath)
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}
	composer.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return composer
}

func TestComposerContactNotification(t *testing.T) {
	t.Parallel()

	composer := newTestComposer(t, "")
	msg, err := composer.ContactNotification(dto.ContactRequest{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Company: "<Doe & Co>",
		Message: "We need a new website.",
		Type:    "sales",
		Page:    "/pricing",
	})
	if err != nil {
		t.Fatalf("ContactNotification: %v", err)
	}

	if len(msg.To) != 1 || msg.To[0] != "hello@acme.test" {
		t.Fatalf("unexpected recipients: %v", msg.To)
	}
	if msg.ReplyTo != "jane@example.com" {
		t.Fatalf("expected reply-to submitter, got %q", msg.ReplyTo)
	}
	if msg.Subject != "New contact: Sales inquiry from Jane Doe" {
		t.Fatalf("unexpected subject: %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "&lt;Doe &amp; Co&gt;") {
		t.Fatalf("expected escaped company in html: %s", msg.HTML)
	}
	if strings.Contains(msg.HTML, "Phone") {
		t.Fatalf("expected empty phone to be omitted")
	}
	if !strings.Contains(msg.Text, "Company: <Doe & Co>") || !strings.Contains(msg.Text, "from /pricing") {
		t.Fatalf("unexpected text body: %s", msg.Text)
	}
}

func TestComposerContactAcknowledgement(t *testing.T) {
	t.Parallel()

	composer := newTestComposer(t, "")
	msg, err := composer.ContactAcknowledgement(dto.ContactRequest{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Subject: "Redesign",
		Message: "We need a new website.",
	})
	if err != nil {
		t.Fatalf("ContactAcknowledgement: %v", err)
	}

	if msg.To[0] != "jane@example.com" || msg.ReplyTo != "hello@acme.test" {
		t.Fatalf("unexpected addressing: to=%v reply-to=%q", msg.To, msg.ReplyTo)
	}
	if msg.Subject != "Thank you for contacting Acme Studio" {
		t.Fatalf("unexpected subject: %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "Hi Jane Doe,") || !strings.Contains(msg.Text, "We need a new website.") {
		t.Fatalf("unexpected text body: %s", msg.Text)
	}
}

func TestComposerBrochureAcknowledgementAttachesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "acme-brochure.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write brochure: %v", err)
	}

	composer := newTestComposer(t, path)
	msg, err := composer.BrochureAcknowledgement(dto.BrochureRequest{Name: "Jane Doe", Email: "jane@example.com"})
	if err != nil {
		t.Fatalf("BrochureAcknowledgement: %v", err)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Name() != "acme-brochure.pdf" {
		t.Fatalf("unexpected attachments: %+v", msg.Attachments)
	}
	if !strings.Contains(msg.Text, "find our brochure attached") {
		t.Fatalf("unexpected text body: %s", msg.Text)
	}
}

func TestComposerBrochureAcknowledgementMissingFile(t *testing.T) {
	t.Parallel()

	composer := newTestComposer(t, filepath.Join(t.TempDir(), "missing.pdf"))
	msg, err := composer.BrochureAcknowledgement(dto.BrochureRequest{Name: "Jane Doe", Email: "jane@example.com"})
	if err != nil {
		t.Fatalf("BrochureAcknowledgement: %v", err)
	}
	if len(msg.Attachments) != 0 {
		t.Fatalf("expected no attachment when file is missing")
	}
	if !strings.Contains(msg.Text, "will send you the brochure shortly") {
		t.Fatalf("unexpected text body: %s", msg.Text)
	}
}

func TestComposerBrochureNotification(t *testing.T) {
	t.Parallel()

	composer := newTestComposer(t, "")
	msg, err := composer.BrochureNotification(dto.BrochureRequest{
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Brochure: "enterprise",
	})
	if err != nil {
		t.Fatalf("BrochureNotification: %v", err)
	}
	if msg.Subject != "New brochure request from Jane Doe" || msg.Tag != "brochure-notification" {
		t.Fatalf("unexpected message: subject=%q tag=%q", msg.Subject, msg.Tag)
	}
	if !strings.Contains(msg.Text, "Brochure: enterprise") {
		t.Fatalf("unexpected text body: %s", msg.Text)
	}
}
