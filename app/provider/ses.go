package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
	"github.com/vibast-solutions/ms-go-website/app/entity"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESProvider struct {
	name   string
	client sesAPI
}

// NewSESProvider builds a provider that sends raw MIME email via AWS SES.
func NewSESProvider(name string, cfg aws.Config) *SESProvider {
	return &SESProvider{name: name, client: sesv2.NewFromConfig(cfg)}
}

func (p *SESProvider) Name() string {
	return p.name
}

// Send submits the prepared raw message to SES.
func (p *SESProvider) Send(ctx context.Context, msg *entity.Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, &SendError{Transport: p.name, Class: ClassInvalid, Command: "SendEmail", Err: ErrNoRecipients}
	}
	if len(msg.Raw) == 0 {
		return Receipt{}, &SendError{Transport: p.name, Class: ClassInvalid, Command: "SendEmail", Err: ErrEmptyMessage}
	}

	input := &sesv2.SendEmailInput{
		Destination: &types.Destination{ToAddresses: msg.To},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: msg.Raw},
		},
	}
	if msg.From != "" {
		input.FromEmailAddress = aws.String(msg.From)
	}

	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		sendErr := classifySES(err)
		sendErr.Transport = p.name
		return Receipt{}, sendErr
	}

	receipt := Receipt{Response: "accepted by ses"}
	if out != nil && out.MessageId != nil {
		receipt.MessageID = *out.MessageId
	}
	return receipt, nil
}

func (p *SESProvider) Close() error {
	return nil
}

func classifySES(err error) *SendError {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		sendErr := Classify(err)
		sendErr.Command = "SendEmail"
		return sendErr
	}

	sendErr := &SendError{
		Class:    ClassUnknown,
		Command:  "SendEmail",
		Response: fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage()),
		Err:      err,
	}
	switch apiErr.ErrorCode() {
	case "UnrecognizedClientException", "InvalidClientTokenId", "AccessDeniedException",
		"SignatureDoesNotMatch", "ExpiredTokenException", "AccountSuspendedException":
		sendErr.Class = ClassAuth
	case "MessageRejected", "MailFromDomainNotVerifiedException", "BadRequestException",
		"NotFoundException", "SendingPausedException":
		sendErr.Class = ClassRejected
	case "TooManyRequestsException", "LimitExceededException", "ThrottlingException":
		sendErr.Class = ClassTemporary
	default:
		if apiErr.ErrorFault() == smithy.FaultServer {
			sendErr.Class = ClassTemporary
		}
	}
	return sendErr
}
