package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactguard/pkg/logging"
)

type captureLogger struct {
	infos  []string
	errors []string
}

func (l *captureLogger) Infow(msg string, keysAndValues ...interface{}) {
	l.infos = append(l.infos, msg)
}

func (l *captureLogger) Errorw(msg string, keysAndValues ...interface{}) {
	l.errors = append(l.errors, msg)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware_GeneratesAndPropagates(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())

	var fromCtx string
	router.GET("/", func(c *gin.Context) {
		fromCtx = logging.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	generated := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, generated)
	assert.Equal(t, generated, fromCtx)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestRecoveryMiddleware_GenericBody(t *testing.T) {
	log := &captureLogger{}
	router := gin.New()
	router.Use(RecoveryMiddleware(log))
	router.POST("/", func(c *gin.Context) {
		panic("secret internal detail")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"We could not send your message. Please try again."}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secret")
	assert.Len(t, log.errors, 1)
}

func TestLoggerMiddleware_LevelByStatus(t *testing.T) {
	log := &captureLogger{}
	router := gin.New()
	router.Use(LoggerMiddleware(log))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Len(t, log.infos, 1)
	assert.Len(t, log.errors, 1)
}
