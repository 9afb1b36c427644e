package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TheHenryLLC/site_backend/internal/httpapi"
)

const (
	publicRouteAPIIndex              = "/api"
	publicRouteHealth                = "/api/health"
	publicRouteContact               = "/api/contact"
	publicRouteNewsletterSubscribe   = "/api/newsletter/subscribe"
	publicRouteNewsletterUnsubscribe = "/api/newsletter/unsubscribe"

	adminRouteContactByID = "/api/contact/:id"
	adminRoutePrefix      = "/api/admin"
	adminRouteContacts    = "/contacts"
	adminRouteContactItem = "/contacts/:id"
	adminRouteSubscribers = "/subscribers"
	adminRouteStats       = "/stats"

	apiRoutePathPrefix = "/api"
	staticIndexFile    = "index.html"

	corsOriginWildcard      = "*"
	corsHeaderAuthorization = "Authorization"
	corsHeaderContentType   = "Content-Type"
)

var (
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	corsAllowedHeaders = []string{corsHeaderAuthorization, corsHeaderContentType}
	corsExposedHeaders = []string{corsHeaderContentType}
	corsAllowOrigins   = []string{corsOriginWildcard}
)

func buildRouter(
	logger *zap.Logger,
	publicHandlers *httpapi.PublicHandlers,
	adminHandlers *httpapi.AdminHandlers,
	adminBearerToken string,
	staticDirectory string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(logger))
	router.Use(httpapi.SecurityHeaders())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsAllowOrigins,
		AllowMethods:     corsAllowedMethods,
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET(publicRouteAPIIndex, publicHandlers.APIIndex)
	router.GET(publicRouteHealth, publicHandlers.Health)
	router.POST(publicRouteContact, publicHandlers.SubmitContact)
	router.POST(publicRouteNewsletterSubscribe, publicHandlers.SubscribeNewsletter)
	router.POST(publicRouteNewsletterUnsubscribe, publicHandlers.UnsubscribeNewsletter)

	router.GET(adminRouteContactByID, httpapi.AdminAuthMiddleware(adminBearerToken), adminHandlers.GetContact)

	adminGroup := router.Group(adminRoutePrefix)
	adminGroup.Use(httpapi.AdminAuthMiddleware(adminBearerToken))
	adminGroup.GET(adminRouteContacts, adminHandlers.ListContacts)
	adminGroup.PATCH(adminRouteContactItem, adminHandlers.UpdateContact)
	adminGroup.DELETE(adminRouteContactItem, adminHandlers.DeleteContact)
	adminGroup.GET(adminRouteSubscribers, adminHandlers.ListSubscribers)
	adminGroup.GET(adminRouteStats, adminHandlers.Stats)

	if staticDirectory != "" {
		registerStaticRoutes(router, staticDirectory)
	}

	return router
}

// registerStaticRoutes serves the frontend assets for every non-API path,
// falling back to index.html so client-side routing keeps working.
func registerStaticRoutes(router *gin.Engine, staticDirectory string) {
	router.NoRoute(func(context *gin.Context) {
		requestPath := context.Request.URL.Path
		if strings.HasPrefix(requestPath, apiRoutePathPrefix) {
			context.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
			return
		}

		candidate := filepath.Join(staticDirectory, filepath.Clean("/"+requestPath))
		if fileInfo, statErr := os.Stat(candidate); statErr == nil && !fileInfo.IsDir() {
			context.File(candidate)
			return
		}

		context.File(filepath.Join(staticDirectory, staticIndexFile))
	})
}
