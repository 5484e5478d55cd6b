package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/logging"
	"github.com/rhodecode/vcsserver/internal/metrics"
)

func TestMetricsClientRegistersInstruments(t *testing.T) {
	ctx := context.Background()
	_, ctx = logging.Configure(ctx, logging.Config{})

	client, err := metrics.New(ctx, metrics.Config{ServiceName: "vcsserver", Port: 9102})
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	client.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	client.RPCCalls.Add(ctx, 1)
	client.HookRejections.Add(ctx, 1)

	assert.NoError(t, client.Close())
}

func TestMetricsDedicatedServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, ctx = logging.Configure(ctx, logging.Config{})

	client, err := metrics.New(ctx, metrics.Config{ServiceName: "vcsserver-test", Port: 9103})
	assert.NoError(t, err)
	defer client.Close()

	err = client.ServeMetrics(ctx)
	assert.NoError(t, err)
}
