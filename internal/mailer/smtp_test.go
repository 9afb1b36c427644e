package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSMTPSenderValidatesConfiguration(testingT *testing.T) {
	_, senderErr := NewSMTPSender(SMTPConfig{Host: "  ", From: "noreply@thehenryllc.example"})
	require.ErrorIs(testingT, senderErr, ErrMissingSMTPHost)

	_, senderErr = NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "  "})
	require.ErrorIs(testingT, senderErr, ErrMissingFromAddress)
}

func TestNewSMTPSenderDefaultsPort(testingT *testing.T) {
	sender, senderErr := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "noreply@thehenryllc.example"})
	require.NoError(testingT, senderErr)
	require.Equal(testingT, defaultSMTPPort, sender.port)
}

func TestSMTPSenderRejectsEmptyRecipient(testingT *testing.T) {
	sender, senderErr := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "noreply@thehenryllc.example"})
	require.NoError(testingT, senderErr)

	sendErr := sender.SendEmail(context.Background(), "   ", "subject", "message")
	require.ErrorIs(testingT, sendErr, ErrMissingRecipient)
}

func TestSMTPSenderHonorsCanceledContext(testingT *testing.T) {
	sender, senderErr := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "noreply@thehenryllc.example"})
	require.NoError(testingT, senderErr)

	canceledContext, cancel := context.WithCancel(context.Background())
	cancel()

	sendErr := sender.SendEmail(canceledContext, "someone@example.com", "subject", "message")
	require.ErrorIs(testingT, sendErr, context.Canceled)
}
