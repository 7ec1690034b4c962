package assembler

import (
	"testing"
	"time"

	"github.com/goliatone/go-formblocks/pkg/twostep"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestCache(ttl time.Duration) (*flowCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := newFlowCache(ttl)
	c.now = clock.now
	return c, clock
}

func TestFlowCache_ExpiresAfterTTL(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.put("alice", twostep.New(nil, "fp"))

	clock.t = clock.t.Add(59 * time.Second)
	if c.get("alice") == nil {
		t.Fatalf("flow dropped before its ttl")
	}
	clock.t = clock.t.Add(time.Second)
	if c.get("alice") != nil {
		t.Fatalf("expired flow still served")
	}
	if c.len() != 0 {
		t.Fatalf("expired flow kept, len = %d", c.len())
	}
}

func TestFlowCache_PutSweepsExpired(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	for _, key := range []string{"a", "b", "c"} {
		c.put(key, twostep.New(nil, key))
	}
	clock.t = clock.t.Add(2 * time.Minute)
	c.put("d", twostep.New(nil, "d"))
	if c.len() != 1 {
		t.Fatalf("abandoned flows not swept, len = %d", c.len())
	}
}

func TestFlowCache_RejectDropsAfterMaxAttempts(t *testing.T) {
	c, _ := newTestCache(0)
	c.put("alice", twostep.New(nil, "fp"))

	for i := 1; i < MaxCodeAttempts; i++ {
		if !c.reject("alice") {
			t.Fatalf("attempt %d should allow a retry", i)
		}
	}
	if c.reject("alice") {
		t.Fatalf("last attempt should drop the flow")
	}
	if c.get("alice") != nil {
		t.Fatalf("flow kept after %d rejected codes", MaxCodeAttempts)
	}
	if c.reject("unknown") {
		t.Fatalf("unknown key must not be retried")
	}
}

func TestFlowCache_RemoveAndLimit(t *testing.T) {
	c, clock := newTestCache(time.Hour)
	c.limit = 2
	c.put("a", twostep.New(nil, "a"))
	clock.t = clock.t.Add(time.Second)
	c.put("b", twostep.New(nil, "b"))
	clock.t = clock.t.Add(time.Second)
	c.put("c", twostep.New(nil, "c"))

	if c.len() != 2 || c.get("a") != nil || c.get("c") == nil {
		t.Fatalf("oldest flow should be evicted at the limit")
	}
	c.remove("c")
	if c.get("c") != nil {
		t.Fatalf("completed flow kept")
	}
}
