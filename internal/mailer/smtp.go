package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

const (
	errorMessageMissingSMTPHost    = "mailer: missing smtp host"
	errorMessageMissingFromAddress = "mailer: missing from address"
	errorMessageMissingRecipient   = "mailer: missing recipient"
	errorMessageSendMail           = "mailer: send mail"

	defaultSMTPPort = 587
)

var (
	// ErrMissingSMTPHost indicates the SMTP host configuration was omitted.
	ErrMissingSMTPHost = errors.New(errorMessageMissingSMTPHost)
	// ErrMissingFromAddress indicates the sender address configuration was omitted.
	ErrMissingFromAddress = errors.New(errorMessageMissingFromAddress)
	// ErrMissingRecipient indicates an empty recipient address.
	ErrMissingRecipient = errors.New(errorMessageMissingRecipient)
)

// SMTPConfig captures connection settings for the SMTP transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers email through a plain SMTP endpoint. Each SendEmail call
// is one delivery attempt against the transport.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPSender creates an SMTPSender from validated configuration.
func NewSMTPSender(configuration SMTPConfig) (*SMTPSender, error) {
	host := strings.TrimSpace(configuration.Host)
	if host == "" {
		return nil, ErrMissingSMTPHost
	}
	from := strings.TrimSpace(configuration.From)
	if from == "" {
		return nil, ErrMissingFromAddress
	}
	port := configuration.Port
	if port <= 0 {
		port = defaultSMTPPort
	}

	return &SMTPSender{
		host:     host,
		port:     port,
		username: strings.TrimSpace(configuration.Username),
		password: configuration.Password,
		from:     from,
	}, nil
}

// SendEmail delivers one plain-text message. Authentication is used only when
// a username is configured.
func (sender *SMTPSender) SendEmail(ctx context.Context, recipient string, subject string, message string) error {
	normalizedRecipient := strings.TrimSpace(recipient)
	if normalizedRecipient == "" {
		return ErrMissingRecipient
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		sender.from, normalizedRecipient, strings.TrimSpace(subject), message)

	var authentication smtp.Auth
	if sender.username != "" {
		authentication = smtp.PlainAuth("", sender.username, sender.password, sender.host)
	}

	address := fmt.Sprintf("%s:%d", sender.host, sender.port)
	if sendErr := smtp.SendMail(address, authentication, sender.from, []string{normalizedRecipient}, []byte(payload)); sendErr != nil {
		return fmt.Errorf("%s: %w", errorMessageSendMail, sendErr)
	}
	return nil
}
