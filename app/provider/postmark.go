package provider

import (
	"context"
	"encoding/base64"
	"mime"
	"path/filepath"
	"strings"

	"github.com/mrz1836/postmark"
	"github.com/vibast-solutions/ms-go-website/app/entity"
)

type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

type PostmarkProvider struct {
	name   string
	client postmarkAPI
}

// NewPostmarkProvider builds a provider backed by Postmark's transactional API.
func NewPostmarkProvider(name string, serverToken string, accountToken string) *PostmarkProvider {
	return &PostmarkProvider{
		name:   name,
		client: postmark.NewClient(serverToken, accountToken),
	}
}

func (p *PostmarkProvider) Name() string {
	return p.name
}

// Send maps the structured message onto a Postmark email.
func (p *PostmarkProvider) Send(ctx context.Context, msg *entity.Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, &SendError{Transport: p.name, Class: ClassInvalid, Command: "SendEmail", Err: ErrNoRecipients}
	}

	email := postmark.Email{
		From:     msg.From,
		To:       strings.Join(msg.To, ","),
		ReplyTo:  msg.ReplyTo,
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		HTMLBody: msg.HTML,
		TextBody: msg.Text,
	}
	for _, a := range msg.Attachments {
		data, err := a.Load()
		if err != nil {
			return Receipt{}, &SendError{Transport: p.name, Class: ClassInvalid, Command: "SendEmail", Err: err}
		}
		email.Attachments = append(email.Attachments, postmark.Attachment{
			Name:        a.Name(),
			Content:     base64.StdEncoding.EncodeToString(data),
			ContentType: attachmentType(a),
		})
	}

	resp, err := p.client.SendEmail(ctx, email)
	if err != nil {
		sendErr := Classify(err)
		sendErr.Transport = p.name
		sendErr.Command = "SendEmail"
		return Receipt{}, sendErr
	}
	if resp.ErrorCode > 0 {
		return Receipt{}, &SendError{
			Transport: p.name,
			Class:     classifyPostmarkCode(resp.ErrorCode),
			Command:   "SendEmail",
			Code:      int(resp.ErrorCode),
			Response:  resp.Message,
		}
	}

	return Receipt{MessageID: resp.MessageID, Response: resp.Message}, nil
}

func (p *PostmarkProvider) Close() error {
	return nil
}

// classifyPostmarkCode follows Postmark's API error code table.
func classifyPostmarkCode(code int64) Class {
	switch code {
	case 10, 412:
		return ClassAuth
	case 300, 400, 401, 402, 403, 405, 406, 409, 410, 411:
		return ClassRejected
	case 429:
		return ClassTemporary
	}
	return ClassUnknown
}

func attachmentType(a entity.Attachment) string {
	if a.ContentType != "" {
		return a.ContentType
	}
	if t := mime.TypeByExtension(filepath.Ext(a.Name())); t != "" {
		return t
	}
	return "application/octet-stream"
}
