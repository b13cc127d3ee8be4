package reconcile

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// cachedResult is one stored run result.
type cachedResult struct {
	result *Result
	built  time.Time
}

// flight tracks the callers waiting on one shared run. The run's context is
// cancelled once the last of them gives up.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// flightResult is what a shared run hands to its callers.
type flightResult struct {
	result *Result
	flight *flight
}

// ResultCache memoizes run results for a caller. It holds no process-wide
// state; every owner creates its own instance.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]cachedResult
	flights map[string]*flight
	sf      singleflight.Group
	ttl     time.Duration
	now     func() time.Time
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewResultCache creates a cache whose entries live for ttl.
// A zero ttl disables caching.
func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		entries: make(map[string]cachedResult),
		flights: make(map[string]*flight),
		ttl:     ttl,
		now:     time.Now,
	}
}

// CacheKey returns the key for a query: entity, language, limit and the
// order-insensitive exclusion set.
func CacheKey(q Query, normalize func(string) string) string {
	if normalize == nil {
		normalize = strings.TrimSpace
	}
	excludes := make([]string, 0, len(q.Exclude))
	seen := make(map[string]struct{}, len(q.Exclude))
	for _, id := range q.Exclude {
		n := normalize(id)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		excludes = append(excludes, n)
	}
	sort.Strings(excludes)

	raw := fmt.Sprintf("%s|%s|%d|%s", q.EntityID, q.Language, q.Limit, strings.Join(excludes, "\x1f"))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("media:%s:%x", q.EntityID, hash[:16])
}

// Get returns a fresh cached result for key.
func (c *ResultCache) Get(key string) (*Result, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(entry.built) > c.ttl {
		return nil, false
	}
	return entry.result, true
}

// Set stores result under key and evicts expired entries.
func (c *ResultCache) Set(key string, result *Result) {
	if c.ttl <= 0 {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, entry := range c.entries {
		if now.Sub(entry.built) > c.ttl {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cachedResult{result: result, built: now}
}

// Len returns the number of stored entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrRun returns the cached result for the query, or runs it.
// Concurrent callers for the same key share one run, which keeps going
// while any of them still waits. A caller whose ctx ends leaves the run;
// the last one to leave cancels it and receives the partial result along
// with its context error. Partial results are never stored.
// The boolean reports a cache hit.
func (c *ResultCache) GetOrRun(ctx context.Context, spec *Spec, query Query) (*Result, bool, error) {
	key := CacheKey(query, spec.Normalize)

	if result, ok := c.Get(key); ok {
		c.hits.Add(1)
		return result, true, nil
	}
	c.misses.Add(1)

	for {
		f := c.join(ctx, key)
		ch := c.sf.DoChan(key, func() (interface{}, error) {
			if result, ok := c.Get(key); ok {
				return flightResult{result: result, flight: f}, nil
			}
			result, err := Run(f.ctx, spec, query)
			if err != nil {
				return flightResult{result: result, flight: f}, err
			}
			c.Set(key, result)
			return flightResult{result: result, flight: f}, nil
		})

		select {
		case res := <-ch:
			out := res.Val.(flightResult)
			abandoned := out.flight != f && out.flight.ctx.Err() != nil
			c.leave(key, f)
			if res.Err != nil && abandoned && ctx.Err() == nil {
				// joined a run its other callers had already abandoned
				continue
			}
			return out.result, false, res.Err
		case <-ctx.Done():
			if !c.leave(key, f) {
				return nil, false, ctx.Err()
			}
			res := <-ch
			result := res.Val.(flightResult).result
			switch {
			case res.Err == nil:
				return result, false, nil
			case isContextError(res.Err):
				return result, false, ctx.Err()
			default:
				return result, false, res.Err
			}
		}
	}
}

// join registers a waiter on the run for key, starting a new flight if none
// is open. The flight's context keeps ctx's values but not its cancellation.
func (c *ResultCache) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: runCtx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

// leave removes a waiter and reports whether it was the last one, in which
// case the flight is closed and its run cancelled.
func (c *ResultCache) leave(key string, f *flight) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return false
	}
	if c.flights[key] == f {
		delete(c.flights, key)
	}
	f.cancel()
	return true
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Invalidate drops every entry for entityID, or all entries if it is empty.
func (c *ResultCache) Invalidate(entityID string) int {
	prefix := "media:" + entityID + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.entries {
		if entityID == "" || strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns hit and miss counters.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
