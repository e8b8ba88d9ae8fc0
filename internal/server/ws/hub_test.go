package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/arblens/internal/cache/memory"
	"github.com/alanyoungcy/arblens/internal/domain"
)

func TestHubForwardsBusMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewSignalBus()
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		Status: func() domain.ServiceStatus { return domain.ServiceStatus{Mode: "server"} },
	})
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first Envelope
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if first.Type != "status" {
		t.Fatalf("first frame type = %q, want status", first.Type)
	}

	// The hub subscribes asynchronously; publish until the frame arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				_ = bus.Publish(ctx, domain.ChannelNotify, []byte(`{"kind":"added"}`))
				_ = bus.Publish(ctx, domain.ChannelNotify, []byte(`not json`))
			}
		}
	}()

	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != "notify" || env.Channel != domain.ChannelNotify {
		t.Fatalf("envelope = %s/%s, want notify/%s", env.Type, env.Channel, domain.ChannelNotify)
	}
	var payload map[string]string
	if err := json.Unmarshal(env.Payload, &payload); err != nil || payload["kind"] != "added" {
		t.Fatalf("payload = %s, %v", env.Payload, err)
	}
}

func TestClientSubscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{}}
	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"ch:*"}})
	if !c.isSubscribed(domain.ChannelPairs) {
		t.Fatal("wildcard subscription did not match ch:pairs")
	}
	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"ch:*"}})
	if c.isSubscribed(domain.ChannelPairs) {
		t.Fatal("still subscribed after unsubscribe")
	}
}

func TestSubscriptionLimitedToForwardedChannels(t *testing.T) {
	hub := NewHub(memory.NewSignalBus(), slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		Channels: []string{domain.ChannelNotify},
	})
	c := newClient(hub, nil, "test")

	got := c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{domain.ChannelNotify, domain.ChannelPairs, "ch:*"}})
	if strings.Join(got, ",") != "ch:*,"+domain.ChannelNotify {
		t.Fatalf("subs = %v", got)
	}
	if !c.isSubscribed(domain.ChannelNotify) {
		t.Fatal("not subscribed to forwarded channel")
	}
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", []string{"http://localhost:3000"}, "", true},
		{"listed", []string{"http://localhost:3000/"}, "http://localhost:3000", true},
		{"unlisted", []string{"http://localhost:3000"}, "http://evil.test", false},
		{"wildcard", []string{"*"}, "http://evil.test", true},
		{"empty list", nil, "http://evil.test", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := originChecker(tt.allowed)(r); got != tt.want {
				t.Fatalf("check = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubscribeAck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(memory.NewSignalBus(), slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})
	go hub.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelPairs, domain.ChannelParams}}); err != nil {
		t.Fatal(err)
	}
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != "subscribed" {
		t.Fatalf("type = %q, want subscribed", env.Type)
	}
	var body struct {
		Channels []string `json:"channels"`
	}
	if err := json.Unmarshal(env.Payload, &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Channels) != 1 || body.Channels[0] != domain.ChannelNotify {
		t.Fatalf("channels = %v", body.Channels)
	}
}
