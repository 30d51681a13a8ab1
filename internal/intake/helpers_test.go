package intake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"contactguard/internal/config"
	"contactguard/internal/logger"
	"contactguard/internal/mailer"
	"contactguard/internal/spam"
	"contactguard/internal/validation"
	"contactguard/pkg/models"
	"contactguard/pkg/ratelimit"
)

const contactPath = "/api/contact"

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeDispatcher struct {
	mu    sync.Mutex
	sent  []mailer.Envelope
	err   error
	block bool
}

func (d *fakeDispatcher) Send(ctx context.Context, env mailer.Envelope) error {
	if d.block {
		<-ctx.Done()
		return ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, env)
	return nil
}

func (d *fakeDispatcher) Sent() []mailer.Envelope {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]mailer.Envelope(nil), d.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.IntakeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event models.IntakeEvent) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *recordingPublisher) Events() []models.IntakeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.IntakeEvent(nil), p.events...)
}

type harness struct {
	service    *Service
	router     *gin.Engine
	clock      *testClock
	dispatcher *fakeDispatcher
	events     *recordingPublisher
}

func newHarness(t *testing.T, dispatcher *fakeDispatcher, sendTimeout time.Duration) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := &testClock{now: base}
	limiter := ratelimit.NewLimiter(
		ratelimit.Config{Window: time.Minute, MaxRequests: 3},
		ratelimit.NewMemoryStore(4),
		logger.NopLogger(),
		ratelimit.WithClock(clock.Now),
	)
	classifier, err := spam.NewClassifier(config.SpamConfig{}, logger.NopLogger())
	require.NoError(t, err)

	events := &recordingPublisher{}
	svc := NewService(
		Dependencies{
			Limiter:    limiter,
			Validator:  validation.NewValidator(config.IntakeConfig{MinSubmitTime: 3 * time.Second, MaxFormAge: time.Hour}),
			Classifier: classifier,
			Dispatcher: dispatcher,
			Events:     events,
		},
		MailSettings{From: "site@example.com", To: "owner@example.com", SendTimeout: sendTimeout},
		logger.NopLogger(),
		WithClock(clock.Now),
	)

	router := gin.New()
	NewHandler(svc, contactPath, 16*1024, logger.NopLogger()).RegisterRoutes(router)

	return &harness{
		service:    svc,
		router:     router,
		clock:      clock,
		dispatcher: dispatcher,
		events:     events,
	}
}

func (h *harness) post(body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, contactPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// renderedAgo is a _ts value for a form mounted d before the harness clock.
func (h *harness) renderedAgo(d time.Duration) int64 {
	return h.clock.Now().Add(-d).UnixMilli()
}

func payload(t *testing.T, overrides map[string]interface{}) string {
	t.Helper()
	body := map[string]interface{}{
		"name":    "Ada Lovelace",
		"email":   "ada@example.com",
		"subject": "Project inquiry",
		"message": "I would like to talk about a new project.",
		"_hp":     "",
	}
	for k, v := range overrides {
		if v == nil {
			delete(body, k)
			continue
		}
		body[k] = v
	}

	data, err := json.Marshal(body)
	require.NoError(t, err)
	return string(data)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
