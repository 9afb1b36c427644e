package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerNameRequestID          = "X-Request-Id"
	headerNameContentTypeOptions = "X-Content-Type-Options"
	headerNameFrameOptions       = "X-Frame-Options"
	headerNameReferrerPolicy     = "Referrer-Policy"
	headerNameCacheControl       = "Cache-Control"

	headerValueNoSniff        = "nosniff"
	headerValueSameOrigin     = "SAMEORIGIN"
	headerValueReferrerPolicy = "strict-origin-when-cross-origin"
	headerValueNoStore        = "no-store, no-cache, must-revalidate"

	headerNameAuthorization = "Authorization"
	bearerTokenPrefix       = "Bearer "

	messageAdminDisabled      = "Admin access is not configured"
	messageMissingBearerToken = "Missing bearer token"
	messageForbidden          = "Forbidden"
)

// RequestLogger logs one structured line per request and tags each request
// with an identifier for correlation.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(context *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(context.GetHeader(headerNameRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		context.Header(headerNameRequestID, requestID)

		context.Next()

		logger.Info("http",
			zap.String("request_id", requestID),
			zap.String("method", context.Request.Method),
			zap.String("path", context.Request.URL.Path),
			zap.Int("status", context.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("ip", context.ClientIP()),
			zap.String("ua", context.Request.UserAgent()),
		)
	}
}

// SecurityHeaders applies the response headers served on every API route.
func SecurityHeaders() gin.HandlerFunc {
	return func(context *gin.Context) {
		context.Header(headerNameContentTypeOptions, headerValueNoSniff)
		context.Header(headerNameFrameOptions, headerValueSameOrigin)
		context.Header(headerNameReferrerPolicy, headerValueReferrerPolicy)
		context.Header(headerNameCacheControl, headerValueNoStore)
		context.Next()
	}
}

// AdminAuthMiddleware guards admin routes with a static bearer token.
func AdminAuthMiddleware(adminBearerToken string) gin.HandlerFunc {
	return func(context *gin.Context) {
		if adminBearerToken == "" {
			context.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageAdminDisabled})
			return
		}
		authorizationHeader := strings.TrimSpace(context.GetHeader(headerNameAuthorization))
		if !strings.HasPrefix(authorizationHeader, bearerTokenPrefix) {
			context.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageMissingBearerToken})
			return
		}
		providedToken := strings.TrimPrefix(authorizationHeader, bearerTokenPrefix)
		if providedToken != adminBearerToken {
			context.AbortWithStatusJSON(http.StatusForbidden, gin.H{jsonKeySuccess: false, jsonKeyMessage: messageForbidden})
			return
		}
		context.Next()
	}
}
