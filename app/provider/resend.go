package provider

import (
	"context"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/vibast-solutions/ms-go-website/app/entity"
)

type resendAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendProvider struct {
	name   string
	emails resendAPI
}

// NewResendProvider builds a provider backed by the Resend API.
func NewResendProvider(name string, apiKey string) *ResendProvider {
	client := resend.NewClient(apiKey)
	return &ResendProvider{name: name, emails: client.Emails}
}

func (p *ResendProvider) Name() string {
	return p.name
}

// Send maps the structured message onto a Resend request.
func (p *ResendProvider) Send(ctx context.Context, msg *entity.Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, &SendError{Transport: p.name, Class: ClassInvalid, Command: "emails.send", Err: ErrNoRecipients}
	}

	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if msg.ReplyTo != "" {
		params.ReplyTo = msg.ReplyTo
	}
	for _, a := range msg.Attachments {
		data, err := a.Load()
		if err != nil {
			return Receipt{}, &SendError{Transport: p.name, Class: ClassInvalid, Command: "emails.send", Err: err}
		}
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Content:  data,
			Filename: a.Name(),
		})
	}

	sent, err := p.emails.SendWithContext(ctx, params)
	if err != nil {
		sendErr := classifyResend(err)
		sendErr.Transport = p.name
		return Receipt{}, sendErr
	}

	receipt := Receipt{Response: "accepted by resend"}
	if sent != nil {
		receipt.MessageID = sent.Id
	}
	return receipt, nil
}

func (p *ResendProvider) Close() error {
	return nil
}

// classifyResend inspects the API error text, the client exposes no typed errors.
func classifyResend(err error) *SendError {
	sendErr := Classify(err)
	sendErr.Command = "emails.send"
	if sendErr.Class != ClassUnknown {
		return sendErr
	}

	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "api key"), strings.Contains(text, "unauthorized"),
		strings.Contains(text, "restricted_api_key"), strings.Contains(text, "forbidden"):
		sendErr.Class = ClassAuth
	case strings.Contains(text, "rate limit"), strings.Contains(text, "too many requests"),
		strings.Contains(text, "internal server error"), strings.Contains(text, "service unavailable"):
		sendErr.Class = ClassTemporary
	case strings.Contains(text, "validation"), strings.Contains(text, "invalid"),
		strings.Contains(text, "not verified"), strings.Contains(text, "domain"):
		sendErr.Class = ClassRejected
	}
	return sendErr
}
