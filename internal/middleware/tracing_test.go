package middleware

import (
	"net/http/httptest"
	"testing"

	"warbler/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := observability.Tracer
	observability.Tracer = provider.Tracer("warbler-test")
	t.Cleanup(func() { observability.Tracer = previous })
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestTracingMiddlewareTagsSessionUser(t *testing.T) {
	recorder := setupSpanRecorder(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Use(func(c *fiber.Ctx) error {
		if c.Get("X-Test-User") != "" {
			c.Locals("userID", uint(3333))
		}
		return c.Next()
	})
	app.Post("/messages/:id/delete", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodPost, "/messages/5/delete", nil)
	req.Header.Set("X-Test-User", "yes")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /messages/:id/delete", spans[0].Name())

	attrs := spanAttrs(spans[0])
	assert.Equal(t, "/messages/:id/delete", attrs["http.route"].AsString())
	assert.Equal(t, int64(fiber.StatusOK), attrs["http.status_code"].AsInt64())
	assert.True(t, attrs[AttrAuthenticated].AsBool())
	assert.Equal(t, int64(3333), attrs[AttrUserID].AsInt64())
}

func TestTracingMiddlewareAnonymousRequest(t *testing.T) {
	recorder := setupSpanRecorder(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/users/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	_, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/users/9", nil))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.False(t, attrs[AttrAuthenticated].AsBool())
	_, hasUser := attrs[AttrUserID]
	assert.False(t, hasUser)
	assert.Equal(t, int64(fiber.StatusNotFound), attrs["http.status_code"].AsInt64())
}
