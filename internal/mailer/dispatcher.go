package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TheHenryLLC/site_backend/internal/model"
)

const (
	errorMessageMissingAdminAddress = "mailer: missing admin address"
	errorMessageDispatch            = "mailer: dispatch"

	contactAlertSubjectPrefix    = "New Contact Form Submission: "
	contactAlertSubjectFallback  = "No Subject"
	contactAcknowledgmentSubject = "We received your message - The Henry LLC"
	newsletterWelcomeSubject     = "Welcome to The Henry LLC Newsletter"
	fieldFallbackNotProvided     = "Not provided"

	logEventContactAlertFailed   = "contact_alert_send_failed"
	logEventAcknowledgmentFailed = "contact_acknowledgment_send_failed"
	logEventWelcomeFailed        = "newsletter_welcome_send_failed"
	logFieldRecipient            = "recipient"
)

// ErrMissingAdminAddress indicates the operator alert address was omitted.
var ErrMissingAdminAddress = errors.New(errorMessageMissingAdminAddress)

// Dispatcher sends the transactional emails for contact and newsletter
// submissions through an EmailSender. It makes one delivery attempt per
// message and never blocks persistence: callers treat its errors as
// best-effort outcomes.
type Dispatcher struct {
	sender       EmailSender
	logger       *zap.Logger
	adminAddress string
}

// NewDispatcher creates a Dispatcher over the given transport. A nil sender is
// replaced with a no-op transport.
func NewDispatcher(sender EmailSender, logger *zap.Logger, adminAddress string) (*Dispatcher, error) {
	normalizedAdminAddress := strings.TrimSpace(adminAddress)
	if normalizedAdminAddress == "" {
		return nil, ErrMissingAdminAddress
	}
	return &Dispatcher{
		sender:       ResolveEmailSender(sender),
		logger:       logger,
		adminAddress: normalizedAdminAddress,
	}, nil
}

// SendContactNotification sends the operator alert and the submitter
// acknowledgment for one contact submission. Both sends are attempted; if the
// transport rejects either, the combined error is returned.
func (dispatcher *Dispatcher) SendContactNotification(ctx context.Context, contact model.ContactMessage) error {
	alertErr := dispatcher.sender.SendEmail(ctx, dispatcher.adminAddress, contactAlertSubject(contact), contactAlertBody(contact))
	if alertErr != nil {
		dispatcher.logger.Warn(logEventContactAlertFailed, zap.Error(alertErr), zap.String(logFieldRecipient, dispatcher.adminAddress))
	}

	acknowledgmentErr := dispatcher.sender.SendEmail(ctx, contact.Email, contactAcknowledgmentSubject, contactAcknowledgmentBody(contact))
	if acknowledgmentErr != nil {
		dispatcher.logger.Warn(logEventAcknowledgmentFailed, zap.Error(acknowledgmentErr), zap.String(logFieldRecipient, contact.Email))
	}

	if alertErr != nil || acknowledgmentErr != nil {
		return fmt.Errorf("%s: %w", errorMessageDispatch, errors.Join(alertErr, acknowledgmentErr))
	}
	return nil
}

// SendNewsletterConfirmation sends the welcome email for a new subscription.
func (dispatcher *Dispatcher) SendNewsletterConfirmation(ctx context.Context, email string) error {
	sendErr := dispatcher.sender.SendEmail(ctx, email, newsletterWelcomeSubject, newsletterWelcomeBody())
	if sendErr != nil {
		dispatcher.logger.Warn(logEventWelcomeFailed, zap.Error(sendErr), zap.String(logFieldRecipient, email))
		return fmt.Errorf("%s: %w", errorMessageDispatch, sendErr)
	}
	return nil
}

func contactAlertSubject(contact model.ContactMessage) string {
	subject := strings.TrimSpace(contact.Subject)
	if subject == "" {
		subject = contactAlertSubjectFallback
	}
	return contactAlertSubjectPrefix + subject
}

func contactAlertBody(contact model.ContactMessage) string {
	phone := strings.TrimSpace(contact.Phone)
	if phone == "" {
		phone = fieldFallbackNotProvided
	}
	subject := strings.TrimSpace(contact.Subject)
	if subject == "" {
		subject = contactAlertSubjectFallback
	}

	messageBuilder := &strings.Builder{}
	_, _ = fmt.Fprintf(messageBuilder, "New contact form submission\n\n")
	_, _ = fmt.Fprintf(messageBuilder, "Name:    %s\n", contact.Name)
	_, _ = fmt.Fprintf(messageBuilder, "Email:   %s\n", contact.Email)
	_, _ = fmt.Fprintf(messageBuilder, "Phone:   %s\n", phone)
	_, _ = fmt.Fprintf(messageBuilder, "Subject: %s\n\n", subject)
	_, _ = fmt.Fprintf(messageBuilder, "Message:\n%s\n\n", contact.Message)
	_, _ = fmt.Fprintf(messageBuilder, "Received at: %s\n", time.Now().UTC().Format(time.RFC1123))
	return messageBuilder.String()
}

func contactAcknowledgmentBody(contact model.ContactMessage) string {
	messageBuilder := &strings.Builder{}
	_, _ = fmt.Fprintf(messageBuilder, "Hi %s,\n\n", contact.Name)
	_, _ = fmt.Fprintf(messageBuilder, "Thank you for contacting us! We have received your message and will get back to you shortly.\n\n")
	_, _ = fmt.Fprintf(messageBuilder, "Your message:\n%s\n\n", contact.Message)
	_, _ = fmt.Fprintf(messageBuilder, "Best regards,\nThe Henry LLC Team\n")
	return messageBuilder.String()
}

func newsletterWelcomeBody() string {
	messageBuilder := &strings.Builder{}
	_, _ = fmt.Fprintf(messageBuilder, "Welcome to our newsletter!\n\n")
	_, _ = fmt.Fprintf(messageBuilder, "Thank you for subscribing to The Henry LLC newsletter.\n")
	_, _ = fmt.Fprintf(messageBuilder, "We'll keep you updated on events, new businesses, and community news from Henry County, Kentucky.\n\n")
	_, _ = fmt.Fprintf(messageBuilder, "The Henry LLC Team\n")
	return messageBuilder.String()
}
