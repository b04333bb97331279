package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/installer"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/monitoring"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/shared/id"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	ch        chan installer.Event
	history   []installer.Event
	cancelled atomic.Bool
}

func (f *fakeSubscriber) Subscribe(int) (<-chan installer.Event, func()) {
	return f.ch, func() { f.cancelled.Store(true) }
}

func (f *fakeSubscriber) EventsSince(after string) []installer.Event {
	for i, evt := range f.history {
		if evt.ID.String() == after {
			return f.history[i+1:]
		}
	}
	return f.history
}

func dial(t *testing.T, h *Handler) (*websocket.Conn, func()) {
	return dialPath(t, h, "/events")
}

func dialPath(t *testing.T, h *Handler, target string) (*websocket.Conn, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/events", h.HandleConnection)
	srv := httptest.NewServer(r)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + target
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func readMap(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var out map[string]any
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestHandleConnectionStreamsEvents(t *testing.T) {
	sub := &fakeSubscriber{ch: make(chan installer.Event, 4)}
	metrics := monitoring.NewMetrics()
	conn, closeAll := dial(t, NewHandler(sub, nil, nil, metrics))
	defer closeAll()

	welcome := readMap(t, conn)
	assert.Equal(t, "system", welcome["type"])

	sub.ch <- installer.Event{Type: installer.EventInstalled, PluginID: "toc", At: time.Now()}
	evt := readMap(t, conn)
	assert.Equal(t, "installed", evt["type"])
	assert.Equal(t, "toc", evt["pluginId"])

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	assert.Equal(t, "pong", readMap(t, conn)["type"])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSMessages.WithLabelValues("installed")))
}

func TestHandleConnectionReplaysSince(t *testing.T) {
	gen := id.NewGenerator()
	history := []installer.Event{
		{ID: gen.NewEvent(), Type: installer.EventInstalled, PluginID: "toc"},
		{ID: gen.NewEvent(), Type: installer.EventEnabled, PluginID: "toc"},
		{ID: gen.NewEvent(), Type: installer.EventUninstalled, PluginID: "toc"},
	}
	sub := &fakeSubscriber{ch: make(chan installer.Event, 4), history: history}
	conn, closeAll := dialPath(t, NewHandler(sub, nil, nil, nil), "/events?since="+history[0].ID.String())
	defer closeAll()

	readMap(t, conn)
	assert.Equal(t, "enabled", readMap(t, conn)["type"])
	assert.Equal(t, "uninstalled", readMap(t, conn)["type"])

	// A live copy of a replayed event is skipped
	sub.ch <- history[2]
	sub.ch <- installer.Event{ID: gen.NewEvent(), Type: installer.EventActivated, PluginID: "paper"}
	next := readMap(t, conn)
	assert.Equal(t, "activated", next["type"])
	assert.Equal(t, "paper", next["pluginId"])
}

func TestHandleConnectionUnsubscribesOnClose(t *testing.T) {
	sub := &fakeSubscriber{ch: make(chan installer.Event)}
	metrics := monitoring.NewMetrics()
	conn, closeAll := dial(t, NewHandler(sub, []string{"*"}, nil, metrics))
	defer closeAll()

	readMap(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, sub.cancelled.Load, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.WSConnections) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    bool
	}{
		{"open by default", nil, "https://evil.example", true},
		{"wildcard", []string{"https://blog.example", "*"}, "https://evil.example", true},
		{"listed", []string{"https://blog.example"}, "https://blog.example", true},
		{"unlisted", []string{"https://blog.example"}, "https://evil.example", false},
		{"same origin has no header", []string{"https://blog.example"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.origins)(req))
		})
	}
}
