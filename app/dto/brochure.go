package dto

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultBrochure          = "general"
	maxBrochureMessageLength = 2000
)

type BrochureRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Phone    string `json:"phone" form:"phone"`
	Company  string `json:"company" form:"company"`
	Brochure string `json:"brochure" form:"brochure"`
	Message  string `json:"message" form:"message"`
	Page     string `json:"page" form:"page"`
	Honeypot string `json:"website" form:"website"`
}

// BrochureFromEchoContext binds and normalizes a brochure request.
func BrochureFromEchoContext(ctx echo.Context) (BrochureRequest, error) {
	var req BrochureRequest
	if err := ctx.Bind(&req); err != nil {
		return BrochureRequest{}, err
	}
	req.normalize()
	return req, nil
}

func (r *BrochureRequest) IsSpam() bool {
	return r.Honeypot != ""
}

// Validate checks required fields and format constraints.
func (r *BrochureRequest) Validate() error {
	if err := validateIdentity(r.Name, r.Email, r.Phone, r.Company); err != nil {
		return err
	}
	if length(r.Message) > maxBrochureMessageLength {
		return ErrBrochureMessage
	}
	return nil
}

func (r *BrochureRequest) normalize() {
	r.Name = singleLine(r.Name)
	r.Email = strings.ToLower(singleLine(r.Email))
	r.Phone = singleLine(r.Phone)
	r.Company = singleLine(r.Company)
	r.Brochure = capLength(strings.ToLower(singleLine(r.Brochure)), maxBrochureLength)
	if r.Brochure == "" {
		r.Brochure = DefaultBrochure
	}
	r.Message = multiLine(r.Message)
	r.Page = capLength(singleLine(r.Page), 255)
	r.Honeypot = strings.TrimSpace(r.Honeypot)
}
