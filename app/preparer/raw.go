package preparer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-website/app/entity"
)

type RawPreparer struct {
	now func() time.Time
}

// NewRawPreparer creates a preparer that builds a raw MIME message.
func NewRawPreparer() *RawPreparer {
	return &RawPreparer{now: time.Now}
}

// Prepare builds the MIME message: HTML with an optional text alternative,
// wrapped in multipart/mixed when attachments are present.
func (p *RawPreparer) Prepare(_ context.Context, msg *entity.Message) error {
	if strings.TrimSpace(msg.From) == "" {
		return fmt.Errorf("sender is required")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	for _, v := range append([]string{msg.From, msg.ReplyTo, msg.Subject, msg.ID}, msg.To...) {
		if strings.ContainsAny(v, "\r\n") {
			return ErrInvalidHeader
		}
	}

	var buf bytes.Buffer
	writeHeader(&buf, "From", formatAddress(msg.From))
	writeHeader(&buf, "To", formatAddressList(msg.To))
	if msg.ReplyTo != "" {
		writeHeader(&buf, "Reply-To", formatAddress(msg.ReplyTo))
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader(&buf, "Date", p.now().Format(time.RFC1123Z))
	if msg.ID != "" {
		writeHeader(&buf, "Message-ID", fmt.Sprintf("<%s@%s>", msg.ID, senderDomain(msg.From)))
	}
	writeHeader(&buf, "MIME-Version", "1.0")

	header, body, err := contentEntity(msg)
	if err != nil {
		return err
	}

	if len(msg.Attachments) == 0 {
		writeEntityHeader(&buf, header)
		buf.WriteString("\r\n")
		buf.Write(body)
		msg.Raw = buf.Bytes()
		return nil
	}

	mixed := multipart.NewWriter(&buf)
	writeHeader(&buf, "Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mixed.Boundary()}))
	buf.WriteString("\r\n")

	part, err := mixed.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(body); err != nil {
		return err
	}

	for _, a := range msg.Attachments {
		data, err := a.Load()
		if err != nil {
			return err
		}
		contentType := a.ContentType
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(a.Name()))
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		h := textproto.MIMEHeader{}
		h.Set("Content-Type", contentType)
		h.Set("Content-Transfer-Encoding", "base64")
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name()}))
		part, err := mixed.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(wrapBase64(data)); err != nil {
			return err
		}
	}
	if err := mixed.Close(); err != nil {
		return err
	}

	msg.Raw = buf.Bytes()
	return nil
}

// contentEntity returns the header and encoded body of the readable content.
func contentEntity(msg *entity.Message) (textproto.MIMEHeader, []byte, error) {
	if msg.Text == "" || msg.HTML == "" {
		contentType := "text/html; charset=UTF-8"
		content := msg.HTML
		if msg.HTML == "" {
			contentType = "text/plain; charset=UTF-8"
			content = msg.Text
		}
		body, err := encodeQuotedPrintable(content)
		if err != nil {
			return nil, nil, err
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", contentType)
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		return h, body, nil
	}

	var alt bytes.Buffer
	w := multipart.NewWriter(&alt)
	for _, p := range []struct {
		contentType string
		content     string
	}{
		{contentType: "text/plain; charset=UTF-8", content: msg.Text},
		{contentType: "text/html; charset=UTF-8", content: msg.HTML},
	} {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", p.contentType)
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, nil, err
		}
		body, err := encodeQuotedPrintable(p.content)
		if err != nil {
			return nil, nil, err
		}
		if _, err := part.Write(body); err != nil {
			return nil, nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, nil, err
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Type", mime.FormatMediaType("multipart/alternative", map[string]string{"boundary": w.Boundary()}))
	return h, alt.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key string, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func writeEntityHeader(buf *bytes.Buffer, h textproto.MIMEHeader) {
	for _, key := range []string{"Content-Type", "Content-Transfer-Encoding"} {
		if v := h.Get(key); v != "" {
			writeHeader(buf, key, v)
		}
	}
}

func encodeQuotedPrintable(content string) ([]byte, error) {
	var buf bytes.Buffer
	w := quotedprintable.NewWriter(&buf)
	if _, err := w.Write([]byte(normalizeNewlines(content))); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func wrapBase64(data []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(data)
	var buf bytes.Buffer
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func formatAddress(value string) string {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return value
	}
	return addr.String()
}

func formatAddressList(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, formatAddress(v))
	}
	return strings.Join(out, ", ")
}

func senderDomain(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		from = addr.Address
	}
	if i := strings.LastIndex(from, "@"); i >= 0 && i+1 < len(from) {
		return strings.ToLower(from[i+1:])
	}
	return "localhost"
}
