package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arblens/internal/domain"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "test:")
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestLockExcludesSecondHolder(t *testing.T) {
	c, mr := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "pairs:bulk", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := lm.Acquire(ctx, "pairs:bulk", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("second Acquire = %v, want ErrLockHeld", err)
	}
	if ttl := mr.TTL("test:lock:pairs:bulk"); ttl != time.Minute {
		t.Fatalf("lock ttl = %v, want 1m", ttl)
	}

	unlock()
	unlock()
	if mr.Exists("test:lock:pairs:bulk") {
		t.Fatal("lock still held after unlock")
	}
	if _, err := lm.Acquire(ctx, "pairs:bulk", time.Minute); err != nil {
		t.Fatalf("Acquire after unlock: %v", err)
	}
}

func TestLockExpiredHolderCannotRelease(t *testing.T) {
	c, mr := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	stale, err := lm.Acquire(ctx, "pairs:bulk", time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	mr.FastForward(2 * time.Second)

	current, err := lm.Acquire(ctx, "pairs:bulk", time.Minute)
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	stale()
	if !mr.Exists("test:lock:pairs:bulk") {
		t.Fatal("expired holder released the current lock")
	}
	if _, err := lm.Acquire(ctx, "pairs:bulk", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("Acquire = %v, want ErrLockHeld", err)
	}

	current()
	if mr.Exists("test:lock:pairs:bulk") {
		t.Fatal("current holder could not release")
	}
}

func TestPairCacheRoundTrip(t *testing.T) {
	c, mr := newTestClient(t)
	pc := NewPairCache(c, 30*time.Second)
	ctx := context.Background()

	if _, err := pc.Get(ctx, "pair-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("empty Get = %v, want ErrNotFound", err)
	}

	pair := domain.MarketPair{ID: "pair-1", Confidence: 94, Status: domain.PairStatusActive, OverrideReason: "checked"}
	for _, p := range []domain.MarketPair{pair, {ID: "pair-2", Confidence: 87}} {
		if err := pc.Set(ctx, p); err != nil {
			t.Fatalf("Set %s: %v", p.ID, err)
		}
	}
	got, err := pc.Get(ctx, "pair-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != pair.ID || got.Confidence != pair.Confidence || got.Status != pair.Status || got.OverrideReason != pair.OverrideReason {
		t.Fatalf("Get = %+v, want %+v", got, pair)
	}
	if ttl := mr.TTL("test:pair:pair-1"); ttl != 30*time.Second {
		t.Fatalf("ttl = %v, want 30s", ttl)
	}

	if err := pc.Invalidate(ctx, "pair-1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := pc.Get(ctx, "pair-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after Invalidate = %v, want ErrNotFound", err)
	}
	if _, err := pc.Get(ctx, "pair-2"); err != nil {
		t.Fatalf("untouched pair = %v", err)
	}

	mr.FastForward(31 * time.Second)
	if _, err := pc.Get(ctx, "pair-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after expiry = %v, want ErrNotFound", err)
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	c, _ := newTestClient(t)
	rl := NewRateLimiter(c, 0, 0)
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	const limit = 3
	for i := 1; i <= limit+1; i++ {
		allowed, err := rl.Allow(ctx, "api:ip:10.0.0.1", limit, time.Minute)
		if err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		if want := i <= limit; allowed != want {
			t.Fatalf("request %d allowed = %v, want %v", i, allowed, want)
		}
		now = now.Add(time.Second)
	}

	if allowed, _ := rl.Allow(ctx, "api:ip:10.0.0.2", limit, time.Minute); !allowed {
		t.Fatal("separate key was throttled")
	}

	now = now.Add(time.Minute)
	if allowed, err := rl.Allow(ctx, "api:ip:10.0.0.1", limit, time.Minute); err != nil || !allowed {
		t.Fatalf("after window allowed = %v, %v, want true", allowed, err)
	}
}

func TestRateLimiterWaitHonoursContext(t *testing.T) {
	c, _ := newTestClient(t)
	rl := NewRateLimiter(c, 1, time.Hour)
	ctx := context.Background()

	if err := rl.Wait(ctx, "export"); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx, "export"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Wait = %v, want DeadlineExceeded", err)
	}
}

func TestSignalBusPublishSubscribe(t *testing.T) {
	c, _ := newTestClient(t)
	sb := NewSignalBus(c, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := sb.Subscribe(ctx, domain.ChannelPairs)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := sb.Publish(ctx, domain.ChannelPairs, []byte(`{"kind":"updated"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case msg := <-ch:
		if string(msg) != `{"kind":"updated"}` {
			t.Fatalf("payload = %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unexpected message after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSignalBusStream(t *testing.T) {
	c, _ := newTestClient(t)
	sb := NewSignalBus(c, 0)
	ctx := context.Background()

	for _, p := range []string{"a", "b"} {
		if err := sb.StreamAppend(ctx, "audit", []byte(p)); err != nil {
			t.Fatalf("StreamAppend: %v", err)
		}
	}
	msgs, err := sb.StreamRead(ctx, "audit", "0", 10)
	if err != nil {
		t.Fatalf("StreamRead: %v", err)
	}
	if len(msgs) != 2 || string(msgs[0].Payload) != "a" || string(msgs[1].Payload) != "b" {
		t.Fatalf("messages = %+v", msgs)
	}
	rest, err := sb.StreamRead(ctx, "audit", msgs[0].ID, 10)
	if err != nil || len(rest) != 1 || string(rest[0].Payload) != "b" {
		t.Fatalf("after first = %+v, %v", rest, err)
	}
}
