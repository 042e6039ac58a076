package metrics

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "created"),
		attribute.String("tenant_id", "456"),
		attribute.String("step", "delete_tenant"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("outcome"), attrs[0].Key)
	assert.Equal(t, attribute.Key("step"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordSignup(context.Background(), "created", time.Second)
	m.RecordCompensation(context.Background(), "delete_tenant", "ok")

	var h *HTTPMetrics
	h.Observe(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
}

func TestNoopMetricsRecord(t *testing.T) {
	m := NewNoop()
	require.NotNil(t, m)
	m.RecordSignup(context.Background(), "replayed", 10*time.Millisecond)
	m.RecordNotification(context.Background(), "email", "ok")
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := NewHTTPMetrics(reg)
	require.NoError(t, err)

	h.Observe(http.MethodPost, "/public/signup", http.StatusCreated, 5*time.Millisecond)
	h.Observe(http.MethodPost, "/public/signup", http.StatusCreated, 5*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(h.requests.WithLabelValues(http.MethodPost, "/public/signup", "201")))

	_, err = NewHTTPMetrics(reg)
	assert.Error(t, err)
}
