package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TheHenryLLC/site_backend/internal/httpapi"
)

func newTestHandlers() *httpapi.PublicHandlers {
	return httpapi.NewPublicHandlers(nil, zap.NewNop())
}

func newTestAdminHandlers() *httpapi.AdminHandlers {
	return httpapi.NewAdminHandlers(nil, zap.NewNop())
}

func performRouterRequest(router *gin.Engine, method string, path string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestBuildRouterAnswersPreflightWithWildcardCORS(testingT *testing.T) {
	gin.SetMode(gin.TestMode)
	router := buildRouter(zap.NewNop(), newTestHandlers(), newTestAdminHandlers(), "", "")

	request := httptest.NewRequest(http.MethodOptions, publicRouteContact, nil)
	request.Header.Set("Origin", "http://visitor.example")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	request.Header.Set("Access-Control-Request-Headers", "content-type")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(testingT, http.StatusNoContent, recorder.Code)
	require.Equal(testingT, corsOriginWildcard, recorder.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(testingT, recorder.Header().Get("Access-Control-Allow-Credentials"))
}

func TestBuildRouterDisablesAdminWithoutToken(testingT *testing.T) {
	gin.SetMode(gin.TestMode)
	router := buildRouter(zap.NewNop(), newTestHandlers(), newTestAdminHandlers(), "", "")

	recorder := performRouterRequest(router, http.MethodGet, adminRoutePrefix+adminRouteStats)
	require.Equal(testingT, http.StatusServiceUnavailable, recorder.Code)
}

func TestBuildRouterServesStaticAssetsWithIndexFallback(testingT *testing.T) {
	gin.SetMode(gin.TestMode)

	staticDirectory := testingT.TempDir()
	require.NoError(testingT, os.WriteFile(filepath.Join(staticDirectory, "index.html"), []byte("<html>home</html>"), 0o644))
	require.NoError(testingT, os.WriteFile(filepath.Join(staticDirectory, "styles.css"), []byte("body {}"), 0o644))

	router := buildRouter(zap.NewNop(), newTestHandlers(), newTestAdminHandlers(), "", staticDirectory)

	asset := performRouterRequest(router, http.MethodGet, "/styles.css")
	require.Equal(testingT, http.StatusOK, asset.Code)
	require.Equal(testingT, "body {}", asset.Body.String())

	fallback := performRouterRequest(router, http.MethodGet, "/some/client/route")
	require.Equal(testingT, http.StatusOK, fallback.Code)
	require.Equal(testingT, "<html>home</html>", fallback.Body.String())

	missingAPI := performRouterRequest(router, http.MethodGet, "/api/does-not-exist")
	require.Equal(testingT, http.StatusNotFound, missingAPI.Code)
}

func TestBuildRouterReturnsPlainNotFoundWithoutStaticDirectory(testingT *testing.T) {
	gin.SetMode(gin.TestMode)
	router := buildRouter(zap.NewNop(), newTestHandlers(), newTestAdminHandlers(), "", "")

	recorder := performRouterRequest(router, http.MethodGet, "/no-such-page")
	require.Equal(testingT, http.StatusNotFound, recorder.Code)
}
