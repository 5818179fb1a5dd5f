package dto

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	maxNameLength     = 100
	maxEmailLength    = 254
	maxCompanyLength  = 120
	maxSubjectLength  = 150
	maxMessageLength  = 5000
	minMessageLength  = 10
	minNameLength     = 2
	maxBrochureLength = 64
)

var (
	ErrNameRequired    = errors.New("name must be between 2 and 100 characters")
	ErrInvalidEmail    = errors.New("a valid email address is required")
	ErrInvalidPhone    = errors.New("phone must be 7 to 20 digits, spaces or +-() characters")
	ErrCompanyTooLong  = errors.New("company must be at most 120 characters")
	ErrSubjectTooLong  = errors.New("subject must be at most 150 characters")
	ErrMessageLength   = errors.New("message must be between 10 and 5000 characters")
	ErrInvalidInquiry  = errors.New("type must be one of general, sales, support, partnership, other")
	ErrBrochureMessage = errors.New("message must be at most 2000 characters")
)

var inquiryTypes = map[string]bool{
	"general":     true,
	"sales":       true,
	"support":     true,
	"partnership": true,
	"other":       true,
}

type ContactRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Phone    string `json:"phone" form:"phone"`
	Company  string `json:"company" form:"company"`
	Subject  string `json:"subject" form:"subject"`
	Message  string `json:"message" form:"message"`
	Type     string `json:"type" form:"type"`
	Page     string `json:"page" form:"page"`
	Honeypot string `json:"website" form:"website"`
}

// ContactFromEchoContext binds and normalizes a contact form from JSON or form bodies.
func ContactFromEchoContext(ctx echo.Context) (ContactRequest, error) {
	var req ContactRequest
	if err := ctx.Bind(&req); err != nil {
		return ContactRequest{}, err
	}
	req.normalize()
	return req, nil
}

// IsSpam reports whether the hidden honeypot field was filled.
func (r *ContactRequest) IsSpam() bool {
	return r.Honeypot != ""
}

// Validate checks required fields and format constraints.
func (r *ContactRequest) Validate() error {
	if err := validateIdentity(r.Name, r.Email, r.Phone, r.Company); err != nil {
		return err
	}
	if length(r.Subject) > maxSubjectLength {
		return ErrSubjectTooLong
	}
	if n := length(r.Message); n < minMessageLength || n > maxMessageLength {
		return ErrMessageLength
	}
	if r.Type != "" && !inquiryTypes[r.Type] {
		return ErrInvalidInquiry
	}
	return nil
}

func (r *ContactRequest) normalize() {
	r.Name = singleLine(r.Name)
	r.Email = strings.ToLower(singleLine(r.Email))
	r.Phone = singleLine(r.Phone)
	r.Company = singleLine(r.Company)
	r.Subject = singleLine(r.Subject)
	r.Message = multiLine(r.Message)
	r.Type = strings.ToLower(singleLine(r.Type))
	r.Page = capLength(singleLine(r.Page), 255)
	r.Honeypot = strings.TrimSpace(r.Honeypot)
}

func validateIdentity(name string, email string, phone string, company string) error {
	if n := length(name); n < minNameLength || n > maxNameLength {
		return ErrNameRequired
	}
	if email == "" || length(email) > maxEmailLength {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return ErrInvalidEmail
	}
	if phone != "" && !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	if length(company) > maxCompanyLength {
		return ErrCompanyTooLong
	}
	return nil
}
