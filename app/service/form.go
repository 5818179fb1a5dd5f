package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-website/app/dto"
	"github.com/vibast-solutions/ms-go-website/app/entity"
)

const submissionTimeout = 5 * time.Second

// SubmissionStore persists accepted form submissions.
type SubmissionStore interface {
	Save(ctx context.Context, submission *entity.Submission) error
}

// RequestMeta carries request details stored with a submission.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// FormResult summarizes the handling of one form submission.
type FormResult struct {
	SubmissionID    string
	Notification    DispatchResult
	Acknowledgement DispatchResult
}

// NotificationAccepted reports whether the company notification went out or was queued.
func (r FormResult) NotificationAccepted() bool {
	return r.Notification.Accepted()
}

type FormService struct {
	composer    *Composer
	dispatcher  Dispatcher
	submissions SubmissionStore
	deadline    time.Duration
}

// NewFormService constructs the form intake service. submissions may be nil.
// deadline bounds the handling of one submission, both emails included;
// zero means unbounded.
func NewFormService(composer *Composer, dispatcher Dispatcher, submissions SubmissionStore, deadline time.Duration) *FormService {
	return &FormService{composer: composer, dispatcher: dispatcher, submissions: submissions, deadline: deadline}
}

// SubmitContact stores the submission and sends the notification and acknowledgement.
func (s *FormService) SubmitContact(ctx context.Context, req dto.ContactRequest, meta RequestMeta) FormResult {
	submission := &entity.Submission{
		Type:        entity.SubmissionTypeContact,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Company:     req.Company,
		Subject:     req.Subject,
		Message:     req.Message,
		InquiryType: req.Type,
		Source:      req.Page,
	}
	ctx, cancel := s.detach(ctx)
	defer cancel()
	result := FormResult{SubmissionID: s.persist(ctx, submission, meta)}

	notification, err := s.composer.ContactNotification(req)
	result.Notification = s.dispatch(ctx, notification, err, "contact notification")

	ack, err := s.composer.ContactAcknowledgement(req)
	result.Acknowledgement = s.dispatch(ctx, ack, err, "contact acknowledgement")
	return result
}

// SubmitBrochure stores the request and sends the notification and the brochure.
func (s *FormService) SubmitBrochure(ctx context.Context, req dto.BrochureRequest, meta RequestMeta) FormResult {
	submission := &entity.Submission{
		Type:     entity.SubmissionTypeBrochure,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Company:  req.Company,
		Message:  req.Message,
		Brochure: req.Brochure,
		Source:   req.Page,
	}
	ctx, cancel := s.detach(ctx)
	defer cancel()
	result := FormResult{SubmissionID: s.persist(ctx, submission, meta)}

	notification, err := s.composer.BrochureNotification(req)
	result.Notification = s.dispatch(ctx, notification, err, "brochure notification")

	ack, err := s.composer.BrochureAcknowledgement(req)
	result.Acknowledgement = s.dispatch(ctx, ack, err, "brochure acknowledgement")
	return result
}

// detach separates ctx from the caller's cancellation so a client disconnect
// does not abort delivery, and applies the submission deadline.
func (s *FormService) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.deadline <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.deadline)
}

func (s *FormService) persist(ctx context.Context, submission *entity.Submission, meta RequestMeta) string {
	submission.ID = uuid.NewString()
	submission.IP = meta.IP
	submission.UserAgent = meta.UserAgent
	submission.CreatedAt = time.Now().UTC()

	if s.submissions == nil {
		return submission.ID
	}

	saveCtx, cancel := context.WithTimeout(ctx, submissionTimeout)
	defer cancel()
	if err := s.submissions.Save(saveCtx, submission); err != nil {
		log.WithFields(logFields(ctx, log.Fields{
			"submission_id": submission.ID,
			"type":          submission.Type,
		})).Warnf("failed to store submission: %v", err)
	}
	return submission.ID
}

func (s *FormService) dispatch(ctx context.Context, msg *entity.Message, composeErr error, kind string) DispatchResult {
	if composeErr != nil {
		log.WithFields(logFields(ctx, log.Fields{"email": kind})).Errorf("failed to compose email: %v", composeErr)
		return DispatchResult{}
	}

	result, err := s.dispatcher.Dispatch(ctx, msg)
	fields := logFields(ctx, log.Fields{
		"email":      kind,
		"message_id": result.MessageID,
		"delivered":  result.Delivered,
		"queued":     result.Queued,
	})
	if err != nil {
		log.WithFields(fields).Warnf("email not accepted: %v", err)
		return result
	}
	log.WithFields(fields).Info("email accepted")
	return result
}
