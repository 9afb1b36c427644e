package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TheHenryLLC/site_backend/internal/httpapi"
	"github.com/TheHenryLLC/site_backend/internal/model"
	"github.com/TheHenryLLC/site_backend/internal/service"
	"github.com/TheHenryLLC/site_backend/internal/storage"
	"github.com/TheHenryLLC/site_backend/internal/testutil"
)

const (
	testAdminBearerToken   = "test-admin-token"
	testContactName        = "Jane Visitor"
	testContactEmail       = "jane@example.com"
	testContactMessageText = "I would like a quote for fence repair."
	testSubscriberEmail    = "reader@example.com"
)

type recordingDispatcher struct {
	contactNotifications []model.ContactMessage
	welcomeEmails        []string
	failAll              bool
}

func (dispatcher *recordingDispatcher) SendContactNotification(ctx context.Context, contact model.ContactMessage) error {
	dispatcher.contactNotifications = append(dispatcher.contactNotifications, contact)
	if dispatcher.failAll {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (dispatcher *recordingDispatcher) SendNewsletterConfirmation(ctx context.Context, email string) error {
	dispatcher.welcomeEmails = append(dispatcher.welcomeEmails, email)
	if dispatcher.failAll {
		return errors.New("smtp unavailable")
	}
	return nil
}

type apiHarness struct {
	router     *gin.Engine
	database   *gorm.DB
	store      *storage.Store
	dispatcher *recordingDispatcher
}

func buildAPIHarness(testingT *testing.T) apiHarness {
	testingT.Helper()

	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	sqliteDatabase := testutil.NewSQLiteTestDatabase(testingT)
	database, openErr := storage.OpenDatabase(sqliteDatabase.Configuration())
	require.NoError(testingT, openErr)
	database = testutil.ConfigureDatabaseLogger(testingT, database)
	require.NoError(testingT, storage.AutoMigrate(database))

	store := storage.NewStore(database)
	dispatcher := &recordingDispatcher{}
	submissionService, serviceErr := service.NewSubmissionService(store, dispatcher, logger)
	require.NoError(testingT, serviceErr)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(httpapi.RequestLogger(logger))
	router.Use(httpapi.SecurityHeaders())

	publicHandlers := httpapi.NewPublicHandlers(submissionService, logger)
	router.GET("/api", publicHandlers.APIIndex)
	router.GET("/api/health", publicHandlers.Health)
	router.POST("/api/contact", publicHandlers.SubmitContact)
	router.POST("/api/newsletter/subscribe", publicHandlers.SubscribeNewsletter)
	router.POST("/api/newsletter/unsubscribe", publicHandlers.UnsubscribeNewsletter)

	adminHandlers := httpapi.NewAdminHandlers(store, logger)
	adminGroup := router.Group("/api", httpapi.AdminAuthMiddleware(testAdminBearerToken))
	adminGroup.GET("/contact/:id", adminHandlers.GetContact)
	adminGroup.GET("/admin/contacts", adminHandlers.ListContacts)
	adminGroup.PATCH("/admin/contacts/:id", adminHandlers.UpdateContact)
	adminGroup.DELETE("/admin/contacts/:id", adminHandlers.DeleteContact)
	adminGroup.GET("/admin/subscribers", adminHandlers.ListSubscribers)
	adminGroup.GET("/admin/stats", adminHandlers.Stats)

	return apiHarness{
		router:     router,
		database:   database,
		store:      store,
		dispatcher: dispatcher,
	}
}

func performJSONRequest(testingT *testing.T, router *gin.Engine, method string, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var requestBody io.Reader
	if body != nil {
		encoded, encodeErr := json.Marshal(body)
		require.NoError(testingT, encodeErr)
		requestBody = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, requestBody)
	for name, value := range headers {
		request.Header.Set(name, value)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeJSONBody(testingT *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	testingT.Helper()
	var decoded map[string]any
	require.NoError(testingT, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	return decoded
}

func contactPayload() map[string]any {
	return map[string]any{
		"name":    testContactName,
		"email":   testContactEmail,
		"phone":   "555-0101",
		"subject": "Fence repair",
		"message": testContactMessageText,
	}
}

func TestSubmitContactPersistsAndReportsIdentifier(t *testing.T) {
	api := buildAPIHarness(t)

	response := performJSONRequest(t, api.router, http.MethodPost, "/api/contact", contactPayload(), nil)
	require.Equal(t, http.StatusCreated, response.Code)

	body := decodeJSONBody(t, response)
	require.Equal(t, true, body["success"])
	require.Equal(t, float64(1), body["contactId"])

	var stored model.ContactMessage
	require.NoError(t, api.database.First(&stored, "id = ?", 1).Error)
	require.Equal(t, testContactName, stored.Name)
	require.Equal(t, testContactEmail, stored.Email)
	require.Equal(t, model.ContactStatusNew, stored.Status)

	require.Len(t, api.dispatcher.contactNotifications, 1)
}

func TestSubmitContactReportsEveryFieldViolation(t *testing.T) {
	api := buildAPIHarness(t)

	response := performJSONRequest(t, api.router, http.MethodPost, "/api/contact", map[string]any{
		"name":    "",
		"email":   "not-an-email",
		"message": "short",
	}, nil)
	require.Equal(t, http.StatusBadRequest, response.Code)

	body := decodeJSONBody(t, response)
	require.Equal(t, false, body["success"])
	violations, ok := body["errors"].([]any)
	require.True(t, ok)
	require.Len(t, violations, 3)

	var count int64
	require.NoError(t, api.database.Model(&model.ContactMessage{}).Count(&count).Error)
	require.Zero(t, count)
	require.Empty(t, api.dispatcher.contactNotifications)
}

func TestSubmitContactRejectsMalformedJSON(t *testing.T) {
	api := buildAPIHarness(t)

	request := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader([]byte("{")))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSubmitContactSucceedsWhenDispatchFails(t *testing.T) {
	api := buildAPIHarness(t)
	api.dispatcher.failAll = true

	response := performJSONRequest(t, api.router, http.MethodPost, "/api/contact", contactPayload(), nil)
	require.Equal(t, http.StatusCreated, response.Code)

	var count int64
	require.NoError(t, api.database.Model(&model.ContactMessage{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestSubscribeNewsletterRejectsSecondAttempt(t *testing.T) {
	api := buildAPIHarness(t)

	payload := map[string]any{"email": testSubscriberEmail}
	first := performJSONRequest(t, api.router, http.MethodPost, "/api/newsletter/subscribe", payload, nil)
	require.Equal(t, http.StatusCreated, first.Code)
	require.Len(t, api.dispatcher.welcomeEmails, 1)

	second := performJSONRequest(t, api.router, http.MethodPost, "/api/newsletter/subscribe", payload, nil)
	require.Equal(t, http.StatusBadRequest, second.Code)
	body := decodeJSONBody(t, second)
	require.Equal(t, "Email already subscribed", body["message"])
	require.Len(t, api.dispatcher.welcomeEmails, 1)
}

func TestSubscribeNewsletterSucceedsWhenWelcomeEmailFails(t *testing.T) {
	api := buildAPIHarness(t)
	api.dispatcher.failAll = true

	response := performJSONRequest(t, api.router, http.MethodPost, "/api/newsletter/subscribe", map[string]any{"email": testSubscriberEmail}, nil)
	require.Equal(t, http.StatusCreated, response.Code)

	subscribers, listErr := api.store.ListActiveSubscribers(context.Background())
	require.NoError(t, listErr)
	require.Len(t, subscribers, 1)
}

func TestSubscribeNewsletterRejectsInvalidEmail(t *testing.T) {
	api := buildAPIHarness(t)

	response := performJSONRequest(t, api.router, http.MethodPost, "/api/newsletter/subscribe", map[string]any{"email": "not-an-email"}, nil)
	require.Equal(t, http.StatusBadRequest, response.Code)
}

func TestUnsubscribeNewsletterIsIdempotent(t *testing.T) {
	api := buildAPIHarness(t)

	subscribe := performJSONRequest(t, api.router, http.MethodPost, "/api/newsletter/subscribe", map[string]any{"email": testSubscriberEmail}, nil)
	require.Equal(t, http.StatusCreated, subscribe.Code)

	for attemptIndex := 0; attemptIndex < 2; attemptIndex++ {
		response := performJSONRequest(t, api.router, http.MethodPost, "/api/newsletter/unsubscribe", map[string]any{"email": testSubscriberEmail}, nil)
		require.Equal(t, http.StatusOK, response.Code)
	}

	unknown := performJSONRequest(t, api.router, http.MethodPost, "/api/newsletter/unsubscribe", map[string]any{"email": "never@example.com"}, nil)
	require.Equal(t, http.StatusOK, unknown.Code)

	var subscription model.NewsletterSubscription
	require.NoError(t, api.database.First(&subscription, "email = ?", testSubscriberEmail).Error)
	require.False(t, subscription.Active)
}

func TestHealthEndpoint(t *testing.T) {
	api := buildAPIHarness(t)

	response := performJSONRequest(t, api.router, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, response.Code)

	body := decodeJSONBody(t, response)
	require.Equal(t, "ok", body["status"])
	require.NotEmpty(t, body["timestamp"])
}

func TestAPIIndexListsEndpoints(t *testing.T) {
	api := buildAPIHarness(t)

	response := performJSONRequest(t, api.router, http.MethodGet, "/api", nil, nil)
	require.Equal(t, http.StatusOK, response.Code)
	require.Contains(t, response.Body.String(), "POST /api/contact")
}

func TestSecurityHeadersApplied(t *testing.T) {
	api := buildAPIHarness(t)

	response := performJSONRequest(t, api.router, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, "nosniff", response.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "SAMEORIGIN", response.Header().Get("X-Frame-Options"))
	require.NotEmpty(t, response.Header().Get("X-Request-Id"))
}

func TestContactRateLimitingReturnsTooManyRequests(t *testing.T) {
	api := buildAPIHarness(t)

	tooMany := 0
	for attemptIndex := 0; attemptIndex < 12; attemptIndex++ {
		response := performJSONRequest(t, api.router, http.MethodPost, "/api/contact", contactPayload(), nil)
		if response.Code == http.StatusTooManyRequests {
			tooMany++
			break
		}
	}
	require.GreaterOrEqual(t, tooMany, 1)
}
