// Package mailer sends the transactional emails triggered by form
// submissions. Delivery is single-attempt: there is no queue and no retry.
package mailer

import "context"

// EmailSender sends an email message to a recipient.
type EmailSender interface {
	SendEmail(ctx context.Context, recipient string, subject string, message string) error
}

type noopEmailSender struct{}

func (noopEmailSender) SendEmail(ctx context.Context, recipient string, subject string, message string) error {
	return nil
}

// ResolveEmailSender substitutes a no-op sender when no transport is configured.
func ResolveEmailSender(sender EmailSender) EmailSender {
	if sender == nil {
		return noopEmailSender{}
	}
	return sender
}
