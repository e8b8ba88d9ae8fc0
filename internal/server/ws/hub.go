// Package ws bridges the signal bus to browser and terminal clients over
// WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// DefaultChannels are the bus channels forwarded to clients.
var DefaultChannels = []string{
	domain.ChannelNotify,
	domain.ChannelPairs,
	domain.ChannelParams,
}

// Envelope is the JSON text frame sent to clients.
type Envelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Config selects the forwarded channels and the status sent on connect.
type Config struct {
	// Channels defaults to DefaultChannels.
	Channels []string
	// AllowedOrigins restricts the browser origins that may connect. Empty
	// or "*" allows any origin; requests without an Origin header (the
	// terminal client) are always accepted.
	AllowedOrigins []string
	// Status, when set, is sent to every client as its first frame.
	Status func() domain.ServiceStatus
}

// Hub fans bus messages out to the connected clients subscribed to their
// channel.
type Hub struct {
	bus      domain.SignalBus
	channels []string
	status   func() domain.ServiceStatus
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub. Call Run to start forwarding.
func NewHub(bus domain.SignalBus, logger *slog.Logger, cfg Config) *Hub {
	channels := cfg.Channels
	if len(channels) == 0 {
		channels = DefaultChannels
	}
	h := &Hub{
		bus:      bus,
		channels: channels,
		status:   cfg.Status,
		clients:  make(map[*client]struct{}),
		logger:   logger.With(slog.String("component", "ws_hub")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

// Run forwards every configured channel until ctx is cancelled, then closes
// all client connections.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, ch := range h.channels {
		msgs, err := h.bus.Subscribe(ctx, ch)
		if err != nil {
			h.logger.Error("ws: subscribe failed",
				slog.String("channel", ch),
				slog.String("error", err.Error()),
			)
			continue
		}
		wg.Add(1)
		go func(channel string) {
			defer wg.Done()
			h.forward(ctx, channel, msgs)
		}(ch)
	}
	h.logger.Info("ws hub started", slog.Any("channels", h.channels))

	<-ctx.Done()
	wg.Wait()

	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
	h.logger.Info("ws hub stopped")
	return ctx.Err()
}

func (h *Hub) forward(ctx context.Context, channel string, msgs <-chan []byte) {
	typ := channelType(channel)
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				h.logger.Warn("ws: bus subscription closed", slog.String("channel", channel))
				return
			}
			frame, err := envelope(typ, channel, data)
			if err != nil {
				h.logger.Warn("ws: dropping non-JSON payload", slog.String("channel", channel))
				continue
			}
			h.broadcast(channel, frame)
		}
	}
}

func (h *Hub) broadcast(channel string, frame []byte) {
	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		if !c.isSubscribed(channel) {
			continue
		}
		if !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("ws: disconnecting slow client",
			slog.String("remote_addr", c.remote),
			slog.String("channel", channel),
		)
		h.remove(c)
	}
}

// HandleWS upgrades the request and subscribes the new client to every
// forwarded channel.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(h, conn, r.RemoteAddr)
	for _, ch := range h.channels {
		c.subs[ch] = true
	}
	if !h.add(c) {
		conn.Close()
		return
	}
	if h.status != nil {
		if payload, err := json.Marshal(h.status()); err == nil {
			if frame, err := envelope("status", "", payload); err == nil {
				c.enqueue(frame)
			}
		}
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Info("ws: client connected",
		slog.String("remote_addr", c.remote),
		slog.Int("total_clients", len(h.clients)),
	)
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	h.logger.Info("ws: client disconnected",
		slog.String("remote_addr", c.remote),
		slog.Int("total_clients", len(h.clients)),
	)
}

// forwards reports whether channel is one the hub relays, either exactly or
// through a trailing "*" pattern.
func (h *Hub) forwards(channel string) bool {
	for _, ch := range h.channels {
		if ch == channel {
			return true
		}
	}
	if prefix, ok := strings.CutSuffix(channel, "*"); ok {
		for _, ch := range h.channels {
			if strings.HasPrefix(ch, prefix) {
				return true
			}
		}
	}
	return false
}

var errNotJSON = errors.New("ws: payload is not JSON")

// channelType names an envelope after its channel: "ch:notify" → "notify".
func channelType(channel string) string {
	return strings.TrimPrefix(channel, "ch:")
}

func envelope(typ, channel string, payload []byte) ([]byte, error) {
	if !json.Valid(payload) {
		return nil, errNotJSON
	}
	return json.Marshal(Envelope{Type: typ, Channel: channel, Payload: payload})
}
