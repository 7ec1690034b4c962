package assembler

import (
	"sync"
	"time"

	"github.com/goliatone/go-formblocks/pkg/twostep"
)

const (
	// DefaultFlowTTL bounds how long a login waits for its code.
	DefaultFlowTTL = 10 * time.Minute
	// MaxCodeAttempts is the number of rejected codes a login survives.
	MaxCodeAttempts = 3

	maxPendingFlows = 10000
)

type pendingFlow struct {
	flow     *twostep.Flow
	expires  time.Time
	failures int
}

// flowCache holds the logins awaiting a verification code, keyed by
// visitor session. Entries leave on completion, after MaxCodeAttempts
// rejected codes, or once their TTL passes.
type flowCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	limit   int
	now     func() time.Time
	pending map[string]*pendingFlow
}

func newFlowCache(ttl time.Duration) *flowCache {
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}
	return &flowCache{
		ttl:     ttl,
		limit:   maxPendingFlows,
		now:     time.Now,
		pending: make(map[string]*pendingFlow),
	}
}

// put stores flow for key, replacing any previous login of that visitor.
func (c *flowCache) put(key string, flow *twostep.Flow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.sweep(now)
	if _, ok := c.pending[key]; !ok && len(c.pending) >= c.limit {
		c.evictOldest()
	}
	c.pending[key] = &pendingFlow{flow: flow, expires: now.Add(c.ttl)}
}

// get returns the live flow of key, or nil.
func (c *flowCache) get(key string) *twostep.Flow {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pending[key]
	if !ok {
		return nil
	}
	if !c.now().Before(entry.expires) {
		delete(c.pending, key)
		return nil
	}
	return entry.flow
}

// reject counts a rejected code and reports whether the flow may be
// retried. The flow is dropped once its attempts run out.
func (c *flowCache) reject(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pending[key]
	if !ok {
		return false
	}
	entry.failures++
	if entry.failures >= MaxCodeAttempts {
		delete(c.pending, key)
		return false
	}
	return true
}

func (c *flowCache) remove(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

func (c *flowCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *flowCache) sweep(now time.Time) {
	for key, entry := range c.pending {
		if !now.Before(entry.expires) {
			delete(c.pending, key)
		}
	}
}

func (c *flowCache) evictOldest() {
	var (
		oldest string
		first  time.Time
	)
	for key, entry := range c.pending {
		if oldest == "" || entry.expires.Before(first) {
			oldest, first = key, entry.expires
		}
	}
	delete(c.pending, oldest)
}
