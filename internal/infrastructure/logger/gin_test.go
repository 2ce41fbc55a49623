package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("logs the completed request with its id", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		base := zap.New(core)

		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set("request_id", "req-123")
			c.Next()
		})
		router.Use(GinMiddleware(base))
		router.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "ok"})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		entry := findEntry(t, recorded, "request")
		assert.Equal(t, zapcore.InfoLevel, entry.Level)
		assert.Equal(t, "req-123", entry.ContextMap()["request_id"])
		assert.Equal(t, "/ping", entry.ContextMap()["path"])
	})

	t.Run("server errors log at error level", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		base := zap.New(core)

		router := gin.New()
		router.Use(GinMiddleware(base))
		router.GET("/boom", func(c *gin.Context) {
			c.Status(http.StatusInternalServerError)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/boom", nil)
		router.ServeHTTP(w, req)

		entry := findEntry(t, recorded, "request")
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	})
}

func TestFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns the request-scoped logger inside a request", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		base := zap.New(core)

		router := gin.New()
		router.Use(GinMiddleware(base))
		router.GET("/ping", func(c *gin.Context) {
			FromContext(c).Info("inside handler")
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		router.ServeHTTP(w, req)

		entry := findEntry(t, recorded, "inside handler")
		assert.Equal(t, "/ping", entry.ContextMap()["path"])
	})

	t.Run("falls back to a no-op outside a request", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		require.NotNil(t, FromContext(c))
		FromContext(c).Info("dropped")
	})
}

func findEntry(t *testing.T, recorded *observer.ObservedLogs, message string) observer.LoggedEntry {
	t.Helper()
	for _, entry := range recorded.All() {
		if entry.Message == message {
			return entry
		}
	}
	t.Fatalf("no log entry with message %q", message)
	return observer.LoggedEntry{}
}
