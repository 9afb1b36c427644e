package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const subscriptionEmailMaxLength = 320

// ErrInvalidSubscriptionEmail indicates a newsletter email that cannot be parsed as an address.
var ErrInvalidSubscriptionEmail = errors.New("invalid_subscription_email")

// NewsletterSubscription captures a newsletter signup. Unsubscribing flips
// Active to false; the row is never removed.
type NewsletterSubscription struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"not null;size:320;uniqueIndex" json:"email"`
	SubscribedAt time.Time `gorm:"autoCreateTime" json:"subscribedAt"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
}

// TableName pins the storage table for newsletter subscriptions.
func (NewsletterSubscription) TableName() string {
	return "newsletter_subscriptions"
}

// NewNewsletterSubscription constructs an active subscription with a validated,
// normalized email.
func NewNewsletterSubscription(email string) (NewsletterSubscription, error) {
	normalizedEmail, normalizeErr := NormalizeSubscriptionEmail(email)
	if normalizeErr != nil {
		return NewsletterSubscription{}, normalizeErr
	}

	return NewsletterSubscription{
		Email:  normalizedEmail,
		Active: true,
	}, nil
}

// NormalizeSubscriptionEmail lowercases, trims, and validates a subscriber email.
func NormalizeSubscriptionEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || len(normalized) > subscriptionEmailMaxLength {
		return "", fmt.Errorf("%w: empty or too long", ErrInvalidSubscriptionEmail)
	}
	if validateErr := validateEmailAddress(normalized); validateErr != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSubscriptionEmail, validateErr)
	}
	return normalized, nil
}
