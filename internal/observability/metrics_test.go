package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetrics_RecordRequest(t *testing.T) {
	m := NewMetrics("repair_desk")
	m.RecordRequest("/tickets/:id", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/tickets/:id", "GET", 200, 5*time.Millisecond)
	m.RecordError("/tickets/:id", "GET", "NOT_FOUND")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/tickets/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/tickets/:id", "GET", "NOT_FOUND")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordWhatsApp(true)
		m.RecordNotification("ticket_created", false)
	})
}

func TestRequestLogger_RecordsRoute(t *testing.T) {
	m := NewMetrics("repair_desk")
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/engineers/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/engineers/42", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/engineers/:id", "GET", "204")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("repair_desk")
	m.RecordWhatsApp(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `repair_desk_whatsapp_messages_total{outcome="success"} 1`)
}
