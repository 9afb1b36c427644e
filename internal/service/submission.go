// Package service implements the submission pipeline: validate, persist,
// then best-effort notification dispatch. Persistence succeeds or fails
// independently of the notification outcome.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/TheHenryLLC/site_backend/internal/model"
)

const (
	errorMessageMissingStore  = "service: missing submission store"
	errorMessageMissingLogger = "service: missing logger"

	logEventContactNotificationFailed = "contact_notification_failed"
	logEventSubscriptionWelcomeFailed = "subscription_welcome_failed"
	logFieldContactID                 = "contact_id"
	logFieldSubscriberEmail           = "subscriber_email"
)

var (
	// ErrMissingStore indicates the service was constructed without a store.
	ErrMissingStore = errors.New(errorMessageMissingStore)
	// ErrMissingLogger indicates the service was constructed without a logger.
	ErrMissingLogger = errors.New(errorMessageMissingLogger)
)

// SubmissionStore is the persistence surface the submission pipeline writes
// through.
type SubmissionStore interface {
	CreateContact(ctx context.Context, contact model.ContactMessage) (model.ContactMessage, error)
	SubscribeNewsletter(ctx context.Context, email string) (model.NewsletterSubscription, error)
	UnsubscribeNewsletter(ctx context.Context, email string) error
}

// NotificationDispatcher sends the transactional emails for a submission.
type NotificationDispatcher interface {
	SendContactNotification(ctx context.Context, contact model.ContactMessage) error
	SendNewsletterConfirmation(ctx context.Context, email string) error
}

type noopNotificationDispatcher struct{}

func (noopNotificationDispatcher) SendContactNotification(ctx context.Context, contact model.ContactMessage) error {
	return nil
}

func (noopNotificationDispatcher) SendNewsletterConfirmation(ctx context.Context, email string) error {
	return nil
}

// ResolveNotificationDispatcher substitutes a no-op dispatcher when none is configured.
func ResolveNotificationDispatcher(dispatcher NotificationDispatcher) NotificationDispatcher {
	if dispatcher == nil {
		return noopNotificationDispatcher{}
	}
	return dispatcher
}

// ContactSubmission is the payload of one contact-form request.
type ContactSubmission struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// ContactReceipt reports the stored identifier of an accepted submission.
type ContactReceipt struct {
	ContactID uint
	Accepted  bool
}

// SubscriptionReceipt reports acceptance of a newsletter action.
type SubscriptionReceipt struct {
	Accepted bool
}

// SubmissionService orchestrates the store and the dispatcher for visitor
// submissions. It holds no state of its own.
type SubmissionService struct {
	store      SubmissionStore
	dispatcher NotificationDispatcher
	logger     *zap.Logger
}

// NewSubmissionService creates a SubmissionService. The dispatcher may be nil,
// in which case notifications are skipped.
func NewSubmissionService(store SubmissionStore, dispatcher NotificationDispatcher, logger *zap.Logger) (*SubmissionService, error) {
	if store == nil {
		return nil, ErrMissingStore
	}
	if logger == nil {
		return nil, ErrMissingLogger
	}
	return &SubmissionService{
		store:      store,
		dispatcher: ResolveNotificationDispatcher(dispatcher),
		logger:     logger,
	}, nil
}

// SubmitContact validates and persists a contact message, then attempts the
// notification emails. A dispatch failure is logged and does not affect the
// reported outcome: the caller learns whether the data was saved, never
// whether the emails went out.
func (submissionService *SubmissionService) SubmitContact(ctx context.Context, submission ContactSubmission) (ContactReceipt, error) {
	if validationErr := validateContactSubmission(submission); validationErr != nil {
		return ContactReceipt{}, validationErr
	}

	contact, buildErr := model.NewContactMessage(model.ContactMessageInput{
		Name:    submission.Name,
		Email:   submission.Email,
		Phone:   submission.Phone,
		Subject: submission.Subject,
		Message: submission.Message,
	})
	if buildErr != nil {
		return ContactReceipt{}, buildErr
	}

	stored, createErr := submissionService.store.CreateContact(ctx, contact)
	if createErr != nil {
		return ContactReceipt{}, createErr
	}

	if dispatchErr := submissionService.dispatcher.SendContactNotification(ctx, stored); dispatchErr != nil {
		submissionService.logger.Warn(logEventContactNotificationFailed, zap.Error(dispatchErr), zap.Uint(logFieldContactID, stored.ID))
	}

	return ContactReceipt{ContactID: stored.ID, Accepted: true}, nil
}

// SubmitNewsletterSubscription validates and persists a newsletter signup,
// then attempts the welcome email. Duplicates are terminal; a welcome email
// failure is not.
func (submissionService *SubmissionService) SubmitNewsletterSubscription(ctx context.Context, email string) (SubscriptionReceipt, error) {
	if validationErr := validateSubscriptionEmail(email); validationErr != nil {
		return SubscriptionReceipt{}, validationErr
	}

	subscription, subscribeErr := submissionService.store.SubscribeNewsletter(ctx, email)
	if subscribeErr != nil {
		return SubscriptionReceipt{}, subscribeErr
	}

	if dispatchErr := submissionService.dispatcher.SendNewsletterConfirmation(ctx, subscription.Email); dispatchErr != nil {
		submissionService.logger.Warn(logEventSubscriptionWelcomeFailed, zap.Error(dispatchErr), zap.String(logFieldSubscriberEmail, subscription.Email))
	}

	return SubscriptionReceipt{Accepted: true}, nil
}

// Unsubscribe validates the email and deactivates any matching subscription.
// The confirmation is the same regardless of prior subscription state.
func (submissionService *SubmissionService) Unsubscribe(ctx context.Context, email string) error {
	if validationErr := validateSubscriptionEmail(email); validationErr != nil {
		return validationErr
	}
	return submissionService.store.UnsubscribeNewsletter(ctx, email)
}
