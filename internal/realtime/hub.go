package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
	"github.com/capitalize-ai/realtime-chat/pkg/metrics"
)

// FrameHandler processes inbound frames and connection teardown.
type FrameHandler interface {
	HandleFrame(ctx context.Context, c *Client, data []byte)
	Disconnect(ctx context.Context, c *Client)
}

// HubConfig tunes connection buffers.
type HubConfig struct {
	SendBuffer     int
	MaxMessageSize int64
}

// Hub owns every live connection, keyed by connection id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	cfg      HubConfig
	upgrader websocket.Upgrader
	handler  FrameHandler
	log      *logger.Logger
}

// NewHub creates a Hub. The handler must be set with SetHandler before
// serving connections.
func NewHub(cfg HubConfig, log *logger.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 64 * 1024
	}
	if log == nil {
		log = logger.Global()
	}
	return &Hub{
		clients: make(map[string]*Client),
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// SetHandler installs the frame handler.
func (h *Hub) SetHandler(handler FrameHandler) {
	h.handler = handler
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(uuid.NewString(), conn, h, h.cfg.SendBuffer)
	h.register(c)

	go c.writePump()
	c.readPump(context.WithoutCancel(r.Context()), h.cfg.MaxMessageSize)
}

// Send queues evt for connectionID.
func (h *Hub) Send(connectionID string, evt model.Event) bool {
	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	frame, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("failed to encode event", zap.String("event", string(evt.Name)), zap.Error(err))
		return false
	}
	return c.enqueue(frame)
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.closeSend()
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	metrics.IncrementWSConnections()
	c.log.Debug("connection opened")
}

func (h *Hub) unregister(ctx context.Context, c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.closeSend()
	metrics.DecrementWSConnections()
	if h.handler != nil {
		h.handler.Disconnect(ctx, c)
	}
	c.log.Debug("connection closed")
}
