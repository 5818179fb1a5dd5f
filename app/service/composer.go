package service

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-website/app/dto"
	"github.com/vibast-solutions/ms-go-website/app/entity"
)

//go:embed templates/*
var templateFS embed.FS

type field struct {
	Label string
	Value string
}

type notificationView struct {
	Title      string
	Fields     []field
	Message    string
	Page       string
	ReceivedAt string
}

type acknowledgementView struct {
	Name        string
	Intro       string
	Message     string
	CompanyName string
}

// Composer renders the notification and acknowledgement emails.
type Composer struct {
	html         *htmltemplate.Template
	text         *texttemplate.Template
	companyName  string
	companyEmail string
	brochurePath string
	now          func() time.Time
}

// NewComposer parses the embedded templates.
func NewComposer(companyName string, companyEmail string, brochurePath string) (*Composer, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &Composer{
		html:         html,
		text:         text,
		companyName:  companyName,
		companyEmail: companyEmail,
		brochurePath: brochurePath,
		now:          time.Now,
	}, nil
}

// ContactNotification builds the email sent to the company inbox.
func (c *Composer) ContactNotification(req dto.ContactRequest) (*entity.Message, error) {
	topic := req.Subject
	if topic == "" {
		topic = inquiryLabel(req.Type)
	}
	view := notificationView{
		Title: "New contact form submission",
		Fields: nonEmpty(
			field{Label: "Name", Value: req.Name},
			field{Label: "Email", Value: req.Email},
			field{Label: "Phone", Value: req.Phone},
			field{Label: "Company", Value: req.Company},
			field{Label: "Inquiry", Value: inquiryLabel(req.Type)},
			field{Label: "Subject", Value: req.Subject},
		),
		Message:    req.Message,
		Page:       req.Page,
		ReceivedAt: c.now().UTC().Format(time.RFC1123),
	}
	return c.render(c.companyEmail, req.Email, fmt.Sprintf("New contact: %s from %s", topic, req.Name), "notification", view, "contact-notification")
}

// ContactAcknowledgement builds the confirmation sent to the visitor.
func (c *Composer) ContactAcknowledgement(req dto.ContactRequest) (*entity.Message, error) {
	view := acknowledgementView{
		Name:        req.Name,
		Intro:       fmt.Sprintf("Thank you for contacting %s. We received your message and will get back to you shortly.", c.companyName),
		Message:     req.Message,
		CompanyName: c.companyName,
	}
	return c.render(req.Email, c.companyEmail, fmt.Sprintf("Thank you for contacting %s", c.companyName), "acknowledgement", view, "contact-acknowledgement")
}

// BrochureNotification builds the company notice for a brochure request.
func (c *Composer) BrochureNotification(req dto.BrochureRequest) (*entity.Message, error) {
	view := notificationView{
		Title: "New brochure request",
		Fields: nonEmpty(
			field{Label: "Name", Value: req.Name},
			field{Label: "Email", Value: req.Email},
			field{Label: "Phone", Value: req.Phone},
			field{Label: "Company", Value: req.Company},
			field{Label: "Brochure", Value: req.Brochure},
		),
		Message:    req.Message,
		Page:       req.Page,
		ReceivedAt: c.now().UTC().Format(time.RFC1123),
	}
	return c.render(c.companyEmail, req.Email, fmt.Sprintf("New brochure request from %s", req.Name), "notification", view, "brochure-notification")
}

// BrochureAcknowledgement builds the visitor email, attaching the brochure when available.
func (c *Composer) BrochureAcknowledgement(req dto.BrochureRequest) (*entity.Message, error) {
	attachment, ok := c.brochureAttachment()
	intro := fmt.Sprintf("Thank you for your interest in %s. Please find our brochure attached.", c.companyName)
	if !ok {
		intro = fmt.Sprintf("Thank you for your interest in %s. Our team will send you the brochure shortly.", c.companyName)
	}

	view := acknowledgementView{
		Name:        req.Name,
		Intro:       intro,
		CompanyName: c.companyName,
	}
	msg, err := c.render(req.Email, c.companyEmail, fmt.Sprintf("Your %s brochure", c.companyName), "acknowledgement", view, "brochure-acknowledgement")
	if err != nil {
		return nil, err
	}
	if ok {
		msg.Attachments = []entity.Attachment{attachment}
	}
	return msg, nil
}

func (c *Composer) render(to string, replyTo string, subject string, name string, view any, tag string) (*entity.Message, error) {
	var html, text bytes.Buffer
	if err := c.html.ExecuteTemplate(&html, name+".html", view); err != nil {
		return nil, fmt.Errorf("render %s.html: %w", name, err)
	}
	if err := c.text.ExecuteTemplate(&text, name+".txt", view); err != nil {
		return nil, fmt.Errorf("render %s.txt: %w", name, err)
	}

	return &entity.Message{
		To:      []string{to},
		ReplyTo: replyTo,
		Subject: subject,
		HTML:    html.String(),
		Text:    text.String(),
		Tag:     tag,
	}, nil
}

func (c *Composer) brochureAttachment() (entity.Attachment, bool) {
	if c.brochurePath == "" {
		return entity.Attachment{}, false
	}
	if _, err := os.Stat(c.brochurePath); err != nil {
		log.WithField("path", c.brochurePath).Warnf("brochure file unavailable: %v", err)
		return entity.Attachment{}, false
	}
	return entity.Attachment{
		Filename: filepath.Base(c.brochurePath),
		Path:     c.brochurePath,
	}, true
}

func nonEmpty(fields ...field) []field {
	out := fields[:0]
	for _, f := range fields {
		if strings.TrimSpace(f.Value) != "" {
			out = append(out, f)
		}
	}
	return out
}

func inquiryLabel(kind string) string {
	if kind == "" {
		return "General inquiry"
	}
	return strings.ToUpper(kind[:1]) + kind[1:] + " inquiry"
}
