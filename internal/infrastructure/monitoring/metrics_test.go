package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUpstream("ok")
		m.RecordAssetRead("store")
		m.SetPluginsInstalled(3)
		NewTimer(m, "install").Stop(nil)
	})
}

func TestMetricsAreIsolated(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordRevalidation("immediate")
	a.RecordRevalidation("immediate")

	assert.Equal(t, 2.0, testutil.ToFloat64(a.Revalidations.WithLabelValues("immediate")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Revalidations.WithLabelValues("immediate")))
}

func TestTimerStatus(t *testing.T) {
	m := NewMetrics()

	NewTimer(m, "install").Stop(nil)
	NewTimer(m, "install").Stop(errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("install", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("install", "error")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/api/plugins/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/plugins/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/plugins/:id", "204")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "blog_http_requests_total")
}
