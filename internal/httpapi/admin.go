package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TheHenryLLC/site_backend/internal/storage"
)

const (
	queryParamLimit  = "limit"
	queryParamOffset = "offset"
	queryParamStatus = "status"
	routeParamID     = "id"

	messageContactNotFound  = "Contact not found"
	messageInvalidContactID = "Invalid contact id"
	messageMissingStatus    = "Status is required"
	messageQueryFailed      = "Query failed"
	messageUpdateFailed     = "Update failed"
	messageDeleteFailed     = "Delete failed"

	jsonKeyContacts          = "contacts"
	jsonKeyActiveSubscribers = "activeSubscribers"

	logEventAdminQueryFailed  = "admin_query_failed"
	logEventAdminUpdateFailed = "admin_update_failed"
	logEventAdminDeleteFailed = "admin_delete_failed"
)

// AdminHandlers serves the operator endpoints for reviewing and managing
// stored submissions.
type AdminHandlers struct {
	store  *storage.Store
	logger *zap.Logger
}

// NewAdminHandlers creates the admin handler set.
func NewAdminHandlers(store *storage.Store, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{store: store, logger: logger}
}

type updateContactRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// GetContact handles GET /api/contact/:id.
func (handlers *AdminHandlers) GetContact(context *gin.Context) {
	contactID, parseErr := parseContactID(context)
	if parseErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageInvalidContactID})
		return
	}

	contact, found, getErr := handlers.store.GetContact(context.Request.Context(), contactID)
	if getErr != nil {
		handlers.logger.Warn(logEventAdminQueryFailed, zap.Error(getErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageQueryFailed})
		return
	}
	if !found {
		context.JSON(http.StatusNotFound, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageContactNotFound})
		return
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true, jsonKeyData: contact})
}

// ListContacts handles GET /api/admin/contacts with optional limit, offset,
// and status filters.
func (handlers *AdminHandlers) ListContacts(context *gin.Context) {
	statusFilter := strings.TrimSpace(context.Query(queryParamStatus))
	if statusFilter != "" {
		contacts, listErr := handlers.store.ListContactsByStatus(context.Request.Context(), statusFilter)
		if listErr != nil {
			handlers.logger.Warn(logEventAdminQueryFailed, zap.Error(listErr))
			context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageQueryFailed})
			return
		}
		context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true, jsonKeyData: contacts})
		return
	}

	limit, _ := strconv.Atoi(context.Query(queryParamLimit))
	offset, _ := strconv.Atoi(context.Query(queryParamOffset))

	contacts, listErr := handlers.store.ListContacts(context.Request.Context(), limit, offset)
	if listErr != nil {
		handlers.logger.Warn(logEventAdminQueryFailed, zap.Error(listErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageQueryFailed})
		return
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true, jsonKeyData: contacts})
}

// UpdateContact handles PATCH /api/admin/contacts/:id. Updating an unknown
// identifier still reports success.
func (handlers *AdminHandlers) UpdateContact(context *gin.Context) {
	contactID, parseErr := parseContactID(context)
	if parseErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageInvalidContactID})
		return
	}

	var payload updateContactRequest
	if bindErr := context.BindJSON(&payload); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageInvalidRequestBody})
		return
	}
	if strings.TrimSpace(payload.Status) == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageMissingStatus})
		return
	}

	if updateErr := handlers.store.UpdateContactStatus(context.Request.Context(), contactID, payload.Status, payload.Notes); updateErr != nil {
		handlers.logger.Warn(logEventAdminUpdateFailed, zap.Error(updateErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageUpdateFailed})
		return
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true})
}

// DeleteContact handles DELETE /api/admin/contacts/:id. Deleting an unknown
// identifier still reports success.
func (handlers *AdminHandlers) DeleteContact(context *gin.Context) {
	contactID, parseErr := parseContactID(context)
	if parseErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageInvalidContactID})
		return
	}

	if deleteErr := handlers.store.DeleteContact(context.Request.Context(), contactID); deleteErr != nil {
		handlers.logger.Warn(logEventAdminDeleteFailed, zap.Error(deleteErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageDeleteFailed})
		return
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true})
}

// ListSubscribers handles GET /api/admin/subscribers.
func (handlers *AdminHandlers) ListSubscribers(context *gin.Context) {
	subscribers, listErr := handlers.store.ListActiveSubscribers(context.Request.Context())
	if listErr != nil {
		handlers.logger.Warn(logEventAdminQueryFailed, zap.Error(listErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageQueryFailed})
		return
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true, jsonKeyData: subscribers})
}

// Stats handles GET /api/admin/stats.
func (handlers *AdminHandlers) Stats(context *gin.Context) {
	contactCount, contactErr := handlers.store.CountContacts(context.Request.Context())
	if contactErr != nil {
		handlers.logger.Warn(logEventAdminQueryFailed, zap.Error(contactErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageQueryFailed})
		return
	}

	subscriberCount, subscriberErr := handlers.store.CountActiveSubscribers(context.Request.Context())
	if subscriberErr != nil {
		handlers.logger.Warn(logEventAdminQueryFailed, zap.Error(subscriberErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageQueryFailed})
		return
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true, jsonKeyData: gin.H{
		jsonKeyContacts:          contactCount,
		jsonKeyActiveSubscribers: subscriberCount,
	}})
}

func parseContactID(context *gin.Context) (uint, error) {
	contactID, parseErr := strconv.ParseUint(strings.TrimSpace(context.Param(routeParamID)), 10, 32)
	if parseErr != nil {
		return 0, parseErr
	}
	return uint(contactID), nil
}
