package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics("helpdesk_test")
	m.RecordRequest("/api/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/api/tickets", "GET", 200, 20*time.Millisecond)
	m.RecordError("/api/tickets/:id", "PUT", "FORBIDDEN")
	m.RecordNotification("dropped")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("/api/tickets", "GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("/api/tickets/:id", "PUT", "FORBIDDEN")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.notifications.WithLabelValues("dropped")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.RecordRequest("/", "GET", 200, time.Millisecond)
		nilMetrics.RecordError("/", "GET", "X")
		nilMetrics.RecordNotification("sent")
	})
}

func TestRequestLogger(t *testing.T) {
	m := NewMetrics("helpdesk_test")
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("/ping", "GET", "200")))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	metricsResp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "helpdesk_test_http_requests_total")
}
