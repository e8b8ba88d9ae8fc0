package redis

import (
	"strings"
	"testing"

	goredis "github.com/redis/go-redis/v9"
)

func TestKeyNamespacing(t *testing.T) {
	c := NewFromClient(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"}), "")
	defer c.Close()

	if got := c.Key("x"); got != "arblens:x" {
		t.Fatalf("Key = %q, want arblens:x", got)
	}
	if got := NewPairCache(c, 0).pairKey("pair-1"); got != "arblens:pair:pair-1" {
		t.Fatalf("pairKey = %q", got)
	}
	if got := NewLockManager(c).lockKey("pairs:bulk"); got != "arblens:lock:pairs:bulk" {
		t.Fatalf("lockKey = %q", got)
	}
	if got := NewRateLimiter(c, 0, 0).rateLimitKey("api:1.2.3.4"); got != "arblens:ratelimit:api:1.2.3.4" {
		t.Fatalf("rateLimitKey = %q", got)
	}
}

func TestHasPattern(t *testing.T) {
	tests := map[string]bool{
		"ch:notify": false,
		"ch:*":      true,
		"ch:pair?":  true,
		"ch:[ab]":   true,
	}
	for ch, want := range tests {
		if got := hasPattern(ch); got != want {
			t.Fatalf("hasPattern(%q) = %v, want %v", ch, got, want)
		}
	}
}

func TestSlidingWindowScriptEmbedded(t *testing.T) {
	if !strings.Contains(slidingWindowLua, "ZREMRANGEBYSCORE") {
		t.Fatal("sliding window script not embedded")
	}
}

func TestPayloadBytes(t *testing.T) {
	if b, ok := payloadBytes("abc"); !ok || string(b) != "abc" {
		t.Fatalf("string payload = %q, %v", b, ok)
	}
	if _, ok := payloadBytes(42); ok {
		t.Fatal("int payload accepted")
	}
}
