package model

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	// ContactStatusNew is the status assigned to freshly submitted messages.
	ContactStatusNew = "new"

	contactNameMaxLength    = 200
	contactEmailMaxLength   = 320
	contactPhoneMaxLength   = 32
	contactSubjectMaxLength = 200
	contactMessageMaxLength = 4000
	contactNotesMaxLength   = 4000

	// ContactMessageMinLength is the shortest message body accepted from the contact form.
	ContactMessageMinLength = 10
)

var (
	ErrInvalidContactName    = errors.New("invalid_contact_name")
	ErrInvalidContactEmail   = errors.New("invalid_contact_email")
	ErrInvalidContactMessage = errors.New("invalid_contact_message")
)

// ContactMessage captures a single contact-form submission.
type ContactMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:200" json:"name"`
	Email     string    `gorm:"not null;size:320;index" json:"email"`
	Phone     string    `gorm:"size:32" json:"phone,omitempty"`
	Subject   string    `gorm:"size:200" json:"subject,omitempty"`
	Message   string    `gorm:"not null;size:4000" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	Status    string    `gorm:"not null;size:32;default:new" json:"status"`
	Notes     string    `gorm:"size:4000" json:"notes,omitempty"`
}

// TableName pins the storage table for contact messages.
func (ContactMessage) TableName() string {
	return "contacts"
}

// ContactMessageInput holds the raw values used to construct a ContactMessage.
type ContactMessageInput struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// NewContactMessage constructs a ContactMessage with validated, normalized fields.
func NewContactMessage(input ContactMessageInput) (ContactMessage, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > contactNameMaxLength {
		return ContactMessage{}, fmt.Errorf("%w: empty or too long", ErrInvalidContactName)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if validateErr := validateEmailAddress(email); validateErr != nil {
		return ContactMessage{}, fmt.Errorf("%w: %v", ErrInvalidContactEmail, validateErr)
	}

	message := strings.TrimSpace(input.Message)
	if len(message) < ContactMessageMinLength {
		return ContactMessage{}, fmt.Errorf("%w: shorter than %d characters", ErrInvalidContactMessage, ContactMessageMinLength)
	}

	return ContactMessage{
		Name:    name,
		Email:   email,
		Phone:   truncateField(strings.TrimSpace(input.Phone), contactPhoneMaxLength),
		Subject: truncateField(strings.TrimSpace(input.Subject), contactSubjectMaxLength),
		Message: truncateField(message, contactMessageMaxLength),
		Status:  ContactStatusNew,
	}, nil
}

func validateEmailAddress(email string) error {
	if email == "" || len(email) > contactEmailMaxLength {
		return errors.New("empty or too long")
	}
	_, parseErr := mail.ParseAddress(email)
	return parseErr
}

func truncateField(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
