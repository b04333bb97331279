package ws

import (
	"net/http"
	"time"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/installer"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/monitoring"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/shared/id"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	bufferSize = 32
)

// Subscriber is the source of lifecycle events
type Subscriber interface {
	Subscribe(buffer int) (<-chan installer.Event, func())
	EventsSince(after string) []installer.Event
}

// Message is an inbound client frame
type Message struct {
	Type string `json:"type"`
}

// Handler manages websocket connections
type Handler struct {
	events   Subscriber
	upgrader websocket.Upgrader
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewHandler creates a websocket handler. An empty origins list or "*"
// accepts every origin.
func NewHandler(events Subscriber, origins []string, logger *zap.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		events:   events,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(origins)},
		logger:   logger,
		metrics:  metrics,
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// HandleConnection upgrades the request and forwards lifecycle events until
// the client goes away. A since query parameter replays retained events
// published after that event id.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	events, cancel := h.events.Subscribe(bufferSize)
	defer cancel()

	pongs := make(chan struct{}, 1)
	done := make(chan struct{})
	go h.read(conn, pongs, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := h.send(conn, gin.H{"type": "system", "message": "subscribed to plugin events"}); err != nil {
		return
	}

	// Subscribed before replaying, so live events may repeat the replay
	var last string
	if since := c.Query("since"); since != "" {
		for _, evt := range h.events.EventsSince(since) {
			if err := h.send(conn, evt); err != nil {
				return
			}
			h.metrics.RecordWSMessage(string(evt.Type))
			last = evt.ID.String()
		}
	}

	for {
		select {
		case <-done:
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if last != "" && !id.After(evt.ID.String(), last) {
				continue
			}
			if err := h.send(conn, evt); err != nil {
				return
			}
			h.metrics.RecordWSMessage(string(evt.Type))
		case <-pongs:
			if err := h.send(conn, gin.H{"type": "pong"}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// read drains client frames so control messages are processed. All writes
// stay on the HandleConnection goroutine.
func (h *Handler) read(conn *websocket.Conn, pongs chan<- struct{}, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if msg.Type == "ping" {
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, data any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(data)
}
