package controller

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-website/app/dto"
	"github.com/vibast-solutions/ms-go-website/app/service"
)

const (
	contactAccepted  = "Thank you! Your message has been sent."
	brochureAccepted = "Thank you! The brochure is on its way to your inbox."
	deliveryFailed   = "failed to send, please retry later"
)

// FormSubmitter handles validated form submissions.
type FormSubmitter interface {
	SubmitContact(ctx context.Context, req dto.ContactRequest, meta service.RequestMeta) service.FormResult
	SubmitBrochure(ctx context.Context, req dto.BrochureRequest, meta service.RequestMeta) service.FormResult
}

type FormResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type FormController struct {
	forms  FormSubmitter
	strict bool
}

// NewFormController constructs the form intake controller. With strict set,
// a notification that could not be sent is reported to the visitor.
func NewFormController(forms FormSubmitter, strict bool) *FormController {
	return &FormController{forms: forms, strict: strict}
}

// Contact handles POST /api/contact.
func (c *FormController) Contact(ctx echo.Context) error {
	req, err := dto.ContactFromEchoContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, FormResponse{Error: "invalid request body"})
	}
	if req.IsSpam() {
		log.WithField("ip", ctx.RealIP()).Info("contact honeypot triggered")
		return ctx.JSON(http.StatusOK, FormResponse{Success: true, Message: contactAccepted})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, FormResponse{Error: err.Error()})
	}

	result := c.forms.SubmitContact(requestContext(ctx), req, requestMeta(ctx))
	return c.respond(ctx, result, contactAccepted)
}

// Brochure handles POST /api/brochure.
func (c *FormController) Brochure(ctx echo.Context) error {
	req, err := dto.BrochureFromEchoContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, FormResponse{Error: "invalid request body"})
	}
	if req.IsSpam() {
		log.WithField("ip", ctx.RealIP()).Info("brochure honeypot triggered")
		return ctx.JSON(http.StatusOK, FormResponse{Success: true, Message: brochureAccepted})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, FormResponse{Error: err.Error()})
	}

	result := c.forms.SubmitBrochure(requestContext(ctx), req, requestMeta(ctx))
	return c.respond(ctx, result, brochureAccepted)
}

func (c *FormController) respond(ctx echo.Context, result service.FormResult, message string) error {
	if c.strict && !result.NotificationAccepted() {
		return ctx.JSON(http.StatusBadGateway, FormResponse{Error: deliveryFailed})
	}
	return ctx.JSON(http.StatusOK, FormResponse{Success: true, Message: message})
}

// requestContext carries the X-Request-ID set by the RequestID middleware.
func requestContext(ctx echo.Context) context.Context {
	requestID := ctx.Response().Header().Get(echo.HeaderXRequestID)
	if requestID == "" {
		return ctx.Request().Context()
	}
	return service.WithRequestID(ctx.Request().Context(), requestID)
}

func requestMeta(ctx echo.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        ctx.RealIP(),
		UserAgent: ctx.Request().UserAgent(),
	}
}
