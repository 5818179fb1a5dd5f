package entity

import "time"

const (
	SubmissionTypeContact  = "contact"
	SubmissionTypeBrochure = "brochure"
)

type Submission struct {
	ID          string    `bson:"_id" json:"id"`
	Type        string    `bson:"type" json:"type"`
	Name        string    `bson:"name" json:"name"`
	Email       string    `bson:"email" json:"email"`
	Phone       string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Company     string    `bson:"company,omitempty" json:"company,omitempty"`
	Subject     string    `bson:"subject,omitempty" json:"subject,omitempty"`
	Message     string    `bson:"message,omitempty" json:"message,omitempty"`
	InquiryType string    `bson:"inquiry_type,omitempty" json:"inquiry_type,omitempty"`
	Brochure    string    `bson:"brochure,omitempty" json:"brochure,omitempty"`
	Source      string    `bson:"source,omitempty" json:"source,omitempty"`
	IP          string    `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent   string    `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
