package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"contactguard/internal/config"
	"contactguard/pkg/logging"
)

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(config.TracingConfig{Enabled: false}, "")
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewResource(t *testing.T) {
	res, err := newResource("contact-service", attribute.String("contact.path", "/api/contact"))
	require.NoError(t, err)

	values := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		values[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "contact-service", values["service.name"])
	assert.Equal(t, "/api/contact", values["contact.path"])
}

func TestInjectTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	headers := InjectTraceContext(ctx, []kafka.Header{{Key: "existing", Value: []byte("1")}})

	require.Len(t, headers, 2)
	assert.Equal(t, "traceparent", headers[1].Key)
	assert.Contains(t, string(headers[1].Value), span.SpanContext().TraceID().String())
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceID(ctx))
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func TestGinMiddleware_SkipsPathsAndCorrelatesLogs(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware("contact-service", "/health"), LogCorrelation())

	var seen string
	capture := func(c *gin.Context) {
		seen = logging.GetTraceID(c.Request.Context())
		c.Status(http.StatusNoContent)
	}
	router.POST("/api/contact", capture)
	router.GET("/health", capture)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/contact", nil))
	assert.Len(t, seen, 32)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, seen)
}
