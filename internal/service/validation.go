package service

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/TheHenryLLC/site_backend/internal/model"
)

const (
	// FieldName identifies the contact name field in validation results.
	FieldName = "name"
	// FieldEmail identifies the email field in validation results.
	FieldEmail = "email"
	// FieldMessage identifies the message body field in validation results.
	FieldMessage = "message"

	validationMessageNameRequired  = "Name is required"
	validationMessageEmailRequired = "Valid email is required"
	validationMessageMessageLength = "Message must be at least 10 characters"
)

// FieldViolation describes one failed validation check.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every violated field of a submission at once.
type ValidationError struct {
	Violations []FieldViolation
}

func (validationErr *ValidationError) Error() string {
	fieldNames := make([]string, 0, len(validationErr.Violations))
	for _, violation := range validationErr.Violations {
		fieldNames = append(fieldNames, violation.Field)
	}
	return fmt.Sprintf("service: invalid submission fields: %s", strings.Join(fieldNames, ", "))
}

// Mentions reports whether the validation error names the given field.
func (validationErr *ValidationError) Mentions(field string) bool {
	for _, violation := range validationErr.Violations {
		if violation.Field == field {
			return true
		}
	}
	return false
}

// validateContactSubmission runs every check and collects all violations so a
// caller sees the full list in one response.
func validateContactSubmission(submission ContactSubmission) *ValidationError {
	var violations []FieldViolation

	if strings.TrimSpace(submission.Name) == "" {
		violations = append(violations, FieldViolation{Field: FieldName, Message: validationMessageNameRequired})
	}
	if !isValidEmailAddress(submission.Email) {
		violations = append(violations, FieldViolation{Field: FieldEmail, Message: validationMessageEmailRequired})
	}
	if len(strings.TrimSpace(submission.Message)) < model.ContactMessageMinLength {
		violations = append(violations, FieldViolation{Field: FieldMessage, Message: validationMessageMessageLength})
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

func validateSubscriptionEmail(email string) *ValidationError {
	if isValidEmailAddress(email) {
		return nil
	}
	return &ValidationError{Violations: []FieldViolation{{Field: FieldEmail, Message: validationMessageEmailRequired}}}
}

func isValidEmailAddress(email string) bool {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return false
	}
	_, parseErr := mail.ParseAddress(trimmed)
	return parseErr == nil
}
