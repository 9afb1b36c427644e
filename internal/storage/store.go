package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/TheHenryLLC/site_backend/internal/model"
)

const (
	errorMessageDuplicateSubscriber = "storage: email already subscribed"
	errorMessageCreateContact       = "storage: create contact"
	errorMessageListContacts        = "storage: list contacts"
	errorMessageGetContact          = "storage: get contact"
	errorMessageUpdateContactStatus = "storage: update contact status"
	errorMessageDeleteContact       = "storage: delete contact"
	errorMessageCountContacts       = "storage: count contacts"
	errorMessageCreateSubscription  = "storage: create subscription"
	errorMessageListSubscribers     = "storage: list subscribers"
	errorMessageUnsubscribe         = "storage: unsubscribe"
	errorMessageCountSubscribers    = "storage: count subscribers"
	errorMessageLookupSubscription  = "storage: lookup subscription"
	defaultContactListLimit         = 100
	uniqueViolationFragmentSQLite   = "UNIQUE constraint failed"
	uniqueViolationFragmentPostgres = "duplicate key value"
	uniqueViolationFragmentSQLState = "SQLSTATE 23505"
	columnNameContactStatus         = "status"
	columnNameContactNotes          = "notes"
	columnNameSubscriptionActive    = "active"
)

// ErrDuplicateSubscriber indicates the email already has a subscription row,
// active or not.
var ErrDuplicateSubscriber = errors.New(errorMessageDuplicateSubscriber)

// Store owns all reads and writes against the contacts and
// newsletter_subscriptions tables.
type Store struct {
	database *gorm.DB
}

// NewStore creates a Store over an opened database handle.
func NewStore(database *gorm.DB) *Store {
	return &Store{database: database}
}

// CreateContact inserts a contact message and returns the stored record with
// its assigned identifier and creation timestamp.
func (store *Store) CreateContact(ctx context.Context, contact model.ContactMessage) (model.ContactMessage, error) {
	if createErr := store.database.WithContext(ctx).Create(&contact).Error; createErr != nil {
		return model.ContactMessage{}, fmt.Errorf("%s: %w", errorMessageCreateContact, createErr)
	}
	return contact, nil
}

// ListContacts returns contact messages ordered by creation time descending.
// A non-positive limit falls back to the default page size.
func (store *Store) ListContacts(ctx context.Context, limit int, offset int) ([]model.ContactMessage, error) {
	if limit <= 0 {
		limit = defaultContactListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var contacts []model.ContactMessage
	listErr := store.database.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&contacts).Error
	if listErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageListContacts, listErr)
	}
	return contacts, nil
}

// ListContactsByStatus returns contact messages with the given status ordered
// by creation time descending.
func (store *Store) ListContactsByStatus(ctx context.Context, status string) ([]model.ContactMessage, error) {
	var contacts []model.ContactMessage
	listErr := store.database.WithContext(ctx).
		Where("status = ?", strings.TrimSpace(status)).
		Order("created_at DESC").
		Find(&contacts).Error
	if listErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageListContacts, listErr)
	}
	return contacts, nil
}

// GetContact looks up a single contact message. The boolean reports whether
// the identifier exists.
func (store *Store) GetContact(ctx context.Context, contactID uint) (model.ContactMessage, bool, error) {
	var contact model.ContactMessage
	findErr := store.database.WithContext(ctx).First(&contact, "id = ?", contactID).Error
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return model.ContactMessage{}, false, nil
		}
		return model.ContactMessage{}, false, fmt.Errorf("%s: %w", errorMessageGetContact, findErr)
	}
	return contact, true, nil
}

// UpdateContactStatus applies a status and notes update. Updating an unknown
// identifier is a silent no-op.
func (store *Store) UpdateContactStatus(ctx context.Context, contactID uint, status string, notes string) error {
	assignments := map[string]any{
		columnNameContactStatus: strings.TrimSpace(status),
		columnNameContactNotes:  notes,
	}
	updateErr := store.database.WithContext(ctx).
		Model(&model.ContactMessage{}).
		Where("id = ?", contactID).
		Updates(assignments).Error
	if updateErr != nil {
		return fmt.Errorf("%s: %w", errorMessageUpdateContactStatus, updateErr)
	}
	return nil
}

// DeleteContact removes a contact message. Deleting an unknown identifier
// still reports success.
func (store *Store) DeleteContact(ctx context.Context, contactID uint) error {
	deleteErr := store.database.WithContext(ctx).
		Delete(&model.ContactMessage{}, "id = ?", contactID).Error
	if deleteErr != nil {
		return fmt.Errorf("%s: %w", errorMessageDeleteContact, deleteErr)
	}
	return nil
}

// CountContacts returns the total number of stored contact messages.
func (store *Store) CountContacts(ctx context.Context) (int64, error) {
	var count int64
	countErr := store.database.WithContext(ctx).
		Model(&model.ContactMessage{}).
		Count(&count).Error
	if countErr != nil {
		return 0, fmt.Errorf("%s: %w", errorMessageCountContacts, countErr)
	}
	return count, nil
}

// SubscribeNewsletter inserts a subscription row for the email. A second
// subscription attempt for the same email fails with ErrDuplicateSubscriber
// regardless of the existing row's active state.
func (store *Store) SubscribeNewsletter(ctx context.Context, email string) (model.NewsletterSubscription, error) {
	subscription, buildErr := model.NewNewsletterSubscription(email)
	if buildErr != nil {
		return model.NewsletterSubscription{}, buildErr
	}

	var existing model.NewsletterSubscription
	lookupErr := store.database.WithContext(ctx).
		First(&existing, "email = ?", subscription.Email).Error
	if lookupErr == nil {
		return model.NewsletterSubscription{}, ErrDuplicateSubscriber
	}
	if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		return model.NewsletterSubscription{}, fmt.Errorf("%s: %w", errorMessageLookupSubscription, lookupErr)
	}

	if createErr := store.database.WithContext(ctx).Create(&subscription).Error; createErr != nil {
		if isUniqueViolation(createErr) {
			return model.NewsletterSubscription{}, ErrDuplicateSubscriber
		}
		return model.NewsletterSubscription{}, fmt.Errorf("%s: %w", errorMessageCreateSubscription, createErr)
	}
	return subscription, nil
}

// ListActiveSubscribers returns active subscriptions ordered by subscription
// time descending.
func (store *Store) ListActiveSubscribers(ctx context.Context) ([]model.NewsletterSubscription, error) {
	var subscriptions []model.NewsletterSubscription
	listErr := store.database.WithContext(ctx).
		Where("active = ?", true).
		Order("subscribed_at DESC").
		Find(&subscriptions).Error
	if listErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageListSubscribers, listErr)
	}
	return subscriptions, nil
}

// UnsubscribeNewsletter deactivates the subscription for the email. The row is
// retained. Unsubscribing an unknown or already inactive email is a no-op.
func (store *Store) UnsubscribeNewsletter(ctx context.Context, email string) error {
	normalizedEmail, normalizeErr := model.NormalizeSubscriptionEmail(email)
	if normalizeErr != nil {
		return normalizeErr
	}

	updateErr := store.database.WithContext(ctx).
		Model(&model.NewsletterSubscription{}).
		Where("email = ?", normalizedEmail).
		Update(columnNameSubscriptionActive, false).Error
	if updateErr != nil {
		return fmt.Errorf("%s: %w", errorMessageUnsubscribe, updateErr)
	}
	return nil
}

// CountActiveSubscribers returns the number of active subscription rows.
func (store *Store) CountActiveSubscribers(ctx context.Context) (int64, error) {
	var count int64
	countErr := store.database.WithContext(ctx).
		Model(&model.NewsletterSubscription{}).
		Where("active = ?", true).
		Count(&count).Error
	if countErr != nil {
		return 0, fmt.Errorf("%s: %w", errorMessageCountSubscribers, countErr)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, uniqueViolationFragmentSQLite) ||
		strings.Contains(message, uniqueViolationFragmentPostgres) ||
		strings.Contains(message, uniqueViolationFragmentSQLState)
}
