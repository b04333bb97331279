package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRouter(logger *zap.Logger, status int) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	seen := new(string)
	r := gin.New()
	r.Use(Middleware(), AccessLog(logger))
	r.GET("/x", func(c *gin.Context) {
		*seen = RequestID(c.Request.Context())
		c.Status(status)
	})
	return r, seen
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	r, seen := newRouter(zap.NewNop(), http.StatusOK)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	id := w.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, *seen)
}

func TestMiddlewareReusesCallerID(t *testing.T) {
	r, seen := newRouter(zap.NewNop(), http.StatusOK)
	caller := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, caller)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, caller, *seen)
	assert.Equal(t, caller, w.Header().Get(HeaderRequestID))
}

func TestMiddlewareReplacesMalformedID(t *testing.T) {
	r, seen := newRouter(zap.NewNop(), http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEqual(t, "<script>", *seen)
	_, err := uuid.Parse(*seen)
	assert.NoError(t, err)
}

func TestAccessLogLevels(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.DebugLevel},
		{http.StatusNotFound, zapcore.DebugLevel},
		{http.StatusBadGateway, zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			r, seen := newRouter(zap.New(core), tt.status)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.level, entry.Level)
			ctx := entry.ContextMap()
			assert.Equal(t, *seen, ctx["request_id"])
			assert.EqualValues(t, tt.status, ctx["status"])
		})
	}
}
