package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TheHenryLLC/site_backend/internal/model"
)

const (
	testAdminAddress   = "admin@thehenryllc.example"
	testVisitorAddress = "jo@x.com"
)

type sentEmail struct {
	recipient string
	subject   string
	message   string
}

type recordingEmailSender struct {
	sent          []sentEmail
	failRecipient string
	failError     error
}

func (sender *recordingEmailSender) SendEmail(ctx context.Context, recipient string, subject string, message string) error {
	if sender.failRecipient != "" && recipient == sender.failRecipient {
		return sender.failError
	}
	sender.sent = append(sender.sent, sentEmail{recipient: recipient, subject: subject, message: message})
	return nil
}

func newTestDispatcher(testingT *testing.T, sender EmailSender) *Dispatcher {
	testingT.Helper()
	dispatcher, dispatcherErr := NewDispatcher(sender, zap.NewNop(), testAdminAddress)
	require.NoError(testingT, dispatcherErr)
	return dispatcher
}

func TestNewDispatcherRequiresAdminAddress(testingT *testing.T) {
	_, dispatcherErr := NewDispatcher(nil, zap.NewNop(), "   ")
	require.ErrorIs(testingT, dispatcherErr, ErrMissingAdminAddress)
}

func TestSendContactNotificationSendsAlertAndAcknowledgment(testingT *testing.T) {
	sender := &recordingEmailSender{}
	dispatcher := newTestDispatcher(testingT, sender)

	contact := model.ContactMessage{
		Name:    "Jo",
		Email:   testVisitorAddress,
		Phone:   "502-555-0100",
		Subject: "Storefront question",
		Message: "Hello there, testing.",
	}
	require.NoError(testingT, dispatcher.SendContactNotification(context.Background(), contact))

	require.Len(testingT, sender.sent, 2)
	alert := sender.sent[0]
	require.Equal(testingT, testAdminAddress, alert.recipient)
	require.Equal(testingT, contactAlertSubjectPrefix+contact.Subject, alert.subject)
	require.Contains(testingT, alert.message, contact.Name)
	require.Contains(testingT, alert.message, contact.Phone)
	require.Contains(testingT, alert.message, contact.Message)

	acknowledgment := sender.sent[1]
	require.Equal(testingT, testVisitorAddress, acknowledgment.recipient)
	require.Equal(testingT, contactAcknowledgmentSubject, acknowledgment.subject)
	require.Contains(testingT, acknowledgment.message, contact.Message)
}

func TestSendContactNotificationFallsBackForOptionalFields(testingT *testing.T) {
	sender := &recordingEmailSender{}
	dispatcher := newTestDispatcher(testingT, sender)

	contact := model.ContactMessage{
		Name:    "Jo",
		Email:   testVisitorAddress,
		Message: "Hello there, testing.",
	}
	require.NoError(testingT, dispatcher.SendContactNotification(context.Background(), contact))

	alert := sender.sent[0]
	require.Equal(testingT, contactAlertSubjectPrefix+contactAlertSubjectFallback, alert.subject)
	require.Contains(testingT, alert.message, fieldFallbackNotProvided)
}

func TestSendContactNotificationAttemptsBothOnFailure(testingT *testing.T) {
	transportErr := errors.New("connection refused")
	sender := &recordingEmailSender{failRecipient: testAdminAddress, failError: transportErr}
	dispatcher := newTestDispatcher(testingT, sender)

	contact := model.ContactMessage{
		Name:    "Jo",
		Email:   testVisitorAddress,
		Message: "Hello there, testing.",
	}
	dispatchErr := dispatcher.SendContactNotification(context.Background(), contact)
	require.ErrorIs(testingT, dispatchErr, transportErr)

	// The acknowledgment is still attempted after the alert fails.
	require.Len(testingT, sender.sent, 1)
	require.Equal(testingT, testVisitorAddress, sender.sent[0].recipient)
}

func TestSendNewsletterConfirmation(testingT *testing.T) {
	sender := &recordingEmailSender{}
	dispatcher := newTestDispatcher(testingT, sender)

	require.NoError(testingT, dispatcher.SendNewsletterConfirmation(context.Background(), testVisitorAddress))
	require.Len(testingT, sender.sent, 1)
	require.Equal(testingT, newsletterWelcomeSubject, sender.sent[0].subject)
	require.True(testingT, strings.Contains(sender.sent[0].message, "newsletter"))
}

func TestSendNewsletterConfirmationPropagatesTransportError(testingT *testing.T) {
	transportErr := errors.New("connection refused")
	sender := &recordingEmailSender{failRecipient: testVisitorAddress, failError: transportErr}
	dispatcher := newTestDispatcher(testingT, sender)

	dispatchErr := dispatcher.SendNewsletterConfirmation(context.Background(), testVisitorAddress)
	require.ErrorIs(testingT, dispatchErr, transportErr)
}

func TestResolveEmailSenderSubstitutesNoop(testingT *testing.T) {
	resolved := ResolveEmailSender(nil)
	require.NotNil(testingT, resolved)
	require.NoError(testingT, resolved.SendEmail(context.Background(), testVisitorAddress, "subject", "message"))

	sender := &recordingEmailSender{}
	require.Same(testingT, sender, ResolveEmailSender(sender))
}
