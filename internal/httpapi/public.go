package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TheHenryLLC/site_backend/internal/service"
	"github.com/TheHenryLLC/site_backend/internal/storage"
)

const (
	jsonKeySuccess   = "success"
	jsonKeyMessage   = "message"
	jsonKeyErrors    = "errors"
	jsonKeyContactID = "contactId"
	jsonKeyData      = "data"
	jsonKeyStatus    = "status"
	jsonKeyTimestamp = "timestamp"

	messageContactAccepted    = "Thank you for your message! We will get back to you shortly."
	messageContactFailed      = "Error submitting contact form. Please try again later."
	messageSubscribed         = "Thank you for subscribing! Check your email for confirmation."
	messageSubscribeFailed    = "Error subscribing to newsletter. Please try again later."
	messageAlreadySubscribed  = "Email already subscribed"
	messageUnsubscribed       = "You have been unsubscribed from our newsletter."
	messageUnsubscribeFailed  = "Error processing unsubscribe. Please try again later."
	messageInvalidRequestBody = "Invalid request body"
	messageRateLimited        = "Too many requests. Please try again later."
	messageHealthy            = "The Henry LLC backend is running"
	statusValueOK             = "ok"

	logEventSubmitContactFailed = "submit_contact_failed"
	logEventSubscribeFailed     = "subscribe_failed"
	logEventUnsubscribeFailed   = "unsubscribe_failed"
)

// PublicHandlers serves the visitor-facing form endpoints.
type PublicHandlers struct {
	submissionService         *service.SubmissionService
	logger                    *zap.Logger
	rateWindow                time.Duration
	maxRequestsPerIPPerWindow int
	rateCountersByIP          map[string]int
	rateCountersMutex         sync.Mutex
}

// NewPublicHandlers creates the public handler set.
func NewPublicHandlers(submissionService *service.SubmissionService, logger *zap.Logger) *PublicHandlers {
	return &PublicHandlers{
		submissionService:         submissionService,
		logger:                    logger,
		rateWindow:                30 * time.Second,
		maxRequestsPerIPPerWindow: 6,
		rateCountersByIP:          make(map[string]int),
	}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type newsletterRequest struct {
	Email string `json:"email"`
}

// SubmitContact handles POST /api/contact.
func (handlers *PublicHandlers) SubmitContact(context *gin.Context) {
	if handlers.isRateLimited(context.ClientIP()) {
		context.JSON(http.StatusTooManyRequests, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageRateLimited})
		return
	}

	var payload contactRequest
	if bindErr := context.BindJSON(&payload); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageInvalidRequestBody})
		return
	}

	receipt, submitErr := handlers.submissionService.SubmitContact(context.Request.Context(), service.ContactSubmission{
		Name:    payload.Name,
		Email:   payload.Email,
		Phone:   payload.Phone,
		Subject: payload.Subject,
		Message: payload.Message,
	})
	if submitErr != nil {
		var validationErr *service.ValidationError
		if errors.As(submitErr, &validationErr) {
			context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyErrors: validationErr.Violations})
			return
		}
		handlers.logger.Warn(logEventSubmitContactFailed, zap.Error(submitErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageContactFailed})
		return
	}

	context.JSON(http.StatusCreated, gin.H{
		jsonKeySuccess:   true,
		jsonKeyMessage:   messageContactAccepted,
		jsonKeyContactID: receipt.ContactID,
	})
}

// SubscribeNewsletter handles POST /api/newsletter/subscribe.
func (handlers *PublicHandlers) SubscribeNewsletter(context *gin.Context) {
	if handlers.isRateLimited(context.ClientIP()) {
		context.JSON(http.StatusTooManyRequests, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageRateLimited})
		return
	}

	var payload newsletterRequest
	if bindErr := context.BindJSON(&payload); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageInvalidRequestBody})
		return
	}

	_, subscribeErr := handlers.submissionService.SubmitNewsletterSubscription(context.Request.Context(), payload.Email)
	if subscribeErr != nil {
		var validationErr *service.ValidationError
		if errors.As(subscribeErr, &validationErr) {
			context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyErrors: validationErr.Violations})
			return
		}
		if errors.Is(subscribeErr, storage.ErrDuplicateSubscriber) {
			context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageAlreadySubscribed})
			return
		}
		handlers.logger.Warn(logEventSubscribeFailed, zap.Error(subscribeErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageSubscribeFailed})
		return
	}

	context.JSON(http.StatusCreated, gin.H{jsonKeySuccess: true, jsonKeyMessage: messageSubscribed})
}

// UnsubscribeNewsletter handles POST /api/newsletter/unsubscribe. The response
// is the same whether or not the email was ever subscribed.
func (handlers *PublicHandlers) UnsubscribeNewsletter(context *gin.Context) {
	if handlers.isRateLimited(context.ClientIP()) {
		context.JSON(http.StatusTooManyRequests, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageRateLimited})
		return
	}

	var payload newsletterRequest
	if bindErr := context.BindJSON(&payload); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageInvalidRequestBody})
		return
	}

	if unsubscribeErr := handlers.submissionService.Unsubscribe(context.Request.Context(), payload.Email); unsubscribeErr != nil {
		var validationErr *service.ValidationError
		if errors.As(unsubscribeErr, &validationErr) {
			context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyErrors: validationErr.Violations})
			return
		}
		handlers.logger.Warn(logEventUnsubscribeFailed, zap.Error(unsubscribeErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageUnsubscribeFailed})
		return
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true, jsonKeyMessage: messageUnsubscribed})
}

// Health handles GET /api/health.
func (handlers *PublicHandlers) Health(context *gin.Context) {
	context.JSON(http.StatusOK, gin.H{
		jsonKeyStatus:    statusValueOK,
		jsonKeyMessage:   messageHealthy,
		jsonKeyTimestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// APIIndex handles GET /api with a short endpoint listing.
func (handlers *PublicHandlers) APIIndex(context *gin.Context) {
	context.JSON(http.StatusOK, gin.H{
		jsonKeyMessage: "The Henry LLC Backend API",
		"version":      "1.0.0",
		"endpoints": gin.H{
			"health":  "GET /api/health",
			"contact": "POST /api/contact",
			"newsletter": gin.H{
				"subscribe":   "POST /api/newsletter/subscribe",
				"unsubscribe": "POST /api/newsletter/unsubscribe",
			},
		},
	})
}

// PruneRateCounters drops counters left over from earlier rate windows so the
// counter map stays bounded. Meant to run on a periodic schedule.
func (handlers *PublicHandlers) PruneRateCounters() {
	currentBucket := time.Now().Unix() / int64(handlers.rateWindow.Seconds())
	currentSuffix := fmt.Sprintf(":%d", currentBucket)

	handlers.rateCountersMutex.Lock()
	defer handlers.rateCountersMutex.Unlock()

	for key := range handlers.rateCountersByIP {
		if !strings.HasSuffix(key, currentSuffix) {
			delete(handlers.rateCountersByIP, key)
		}
	}
}

func (handlers *PublicHandlers) isRateLimited(ip string) bool {
	nowBucket := time.Now().Unix() / int64(handlers.rateWindow.Seconds())
	key := fmt.Sprintf("%s:%d", ip, nowBucket)

	handlers.rateCountersMutex.Lock()
	defer handlers.rateCountersMutex.Unlock()

	handlers.rateCountersByIP[key]++
	return handlers.rateCountersByIP[key] > handlers.maxRequestsPerIPPerWindow
}
