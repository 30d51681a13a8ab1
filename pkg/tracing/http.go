package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"contactguard/pkg/logging"
)

// GinMiddleware starts a server span for every request whose path is not in
// skipPaths.
func GinMiddleware(serviceName string, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		_, skipped := skip[r.URL.Path]
		return !skipped
	}))
}

// LogCorrelation copies the sampled trace ID into the request context so
// that context-aware log lines carry trace_id. It must run after
// GinMiddleware.
func LogCorrelation() gin.HandlerFunc {
	return func(c *gin.Context) {
		if traceID := TraceID(c.Request.Context()); traceID != "" {
			c.Request = c.Request.WithContext(logging.WithTraceID(c.Request.Context(), traceID))
		}
		c.Next()
	}
}
