package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"contactguard/pkg/logging"
)

func observed() (*SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &SugaredLogger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestCtxMethods_RedactIdentity(t *testing.T) {
	log, logs := observed()
	kv := []interface{}{IdentityKey, "203.0.113.7", "attempt", 4}

	log.InfowCtx(context.Background(), "Rate limit exceeded", kv...)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, logging.ClientFingerprint("203.0.113.7"), fields[IdentityKey])
	assert.EqualValues(t, 4, fields["attempt"])
	assert.Equal(t, "203.0.113.7", kv[1], "caller's slice must not be modified")
}

func TestCtxMethods_AddContextFields(t *testing.T) {
	log, logs := observed()
	log.SetServiceName("contact-service")

	ctx := logging.WithRequestID(context.Background(), "req-1")
	log.WarnwCtx(ctx, "Redis unreachable")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "contact-service", fields["service_name"])
	assert.NotContains(t, fields, IdentityKey)
}

func TestNew(t *testing.T) {
	log, err := New("debug", "console")
	require.NoError(t, err)
	assert.NotNil(t, log)
}
