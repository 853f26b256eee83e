package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"estatehub/internal/services/credit"
	"estatehub/internal/services/interest"
	"estatehub/internal/services/notification"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ credit.MetricsCollector       = (*Metrics)(nil)
	_ interest.MetricsCollector     = (*Metrics)(nil)
	_ notification.MetricsCollector = (*Metrics)(nil)
)

func TestCollectors(t *testing.T) {
	m := New()

	m.RecordSettlement("webhook", "settled")
	m.RecordSettlement("webhook", "settled")
	m.RecordSettlement("verify", "already_settled")
	m.RecordUnlock("insufficient_credits")
	m.RecordDropped("credits_added")
	m.RecordGatewayCall("paystack", "verify", 120*time.Millisecond, errors.New("timeout"))
	m.RecordReconcile(&credit.ReconcileReport{Settled: 2, Expired: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.settlements.WithLabelValues("webhook", "settled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.settlements.WithLabelValues("verify", "already_settled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unlocks.WithLabelValues("insufficient_credits")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsDropped.WithLabelValues("credits_added")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reconciled.WithLabelValues("settled")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.gatewayCalls))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	m.GaugeFunc("realtime", "connections", "Open websocket connections.", func() float64 { return 3 })

	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/metrics", m.Handler())
	app.Get("/api/properties/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/api/properties/12", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/properties/:id", "200")))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "estatehub_http_requests_total")
	assert.Contains(t, string(body), "estatehub_realtime_connections 3")
}
