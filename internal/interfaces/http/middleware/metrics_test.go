package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stuffkit/backend/internal/infrastructure/telemetry"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetricByName(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestMetrics(t *testing.T) {
	mp, reader := setupTestMeter(t)
	mw, err := Metrics(mp.Meter("http.server"))
	require.NoError(t, err)

	engine := newEngine()
	engine.Use(mw)
	engine.POST("/profiles/:ref", func(c *gin.Context) { OK(c, c.Param("ref")) })

	for range 2 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/profiles/ann", strings.NewReader(`{"a":1}`))
		engine.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	rm := collectMetrics(t, reader)

	total := findMetricByName(rm, "http_server_request_total")
	require.NotNil(t, total)
	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		route, _ := dp.Attributes.Value(telemetry.AttrHTTPRoute)
		status, _ := dp.Attributes.Value(telemetry.AttrHTTPStatusCode)
		counts[route.AsString()+" "+status.AsString()] = dp.Value
	}
	assert.Equal(t, int64(2), counts["/profiles/:ref 200"])
	assert.Equal(t, int64(1), counts["unknown 404"])

	duration := findMetricByName(rm, "http_server_request_duration_seconds")
	require.NotNil(t, duration)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.NotEmpty(t, hist.DataPoints)

	reqSize := findMetricByName(rm, "http_server_request_size_bytes")
	require.NotNil(t, reqSize)
	sizes := reqSize.Data.(metricdata.Histogram[float64])
	require.Len(t, sizes.DataPoints, 1)
	assert.Equal(t, uint64(2), sizes.DataPoints[0].Count)
	assert.Equal(t, float64(14), sizes.DataPoints[0].Sum)

	active := findMetricByName(rm, "http_server_active_requests")
	require.NotNil(t, active)
	gauge := active.Data.(metricdata.Sum[int64])
	for _, dp := range gauge.DataPoints {
		assert.Zero(t, dp.Value)
	}
}

func TestMetricsFromProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	mw, err := MetricsFromProvider(mp)
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(mw)
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
