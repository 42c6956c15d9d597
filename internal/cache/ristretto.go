package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Ristretto is a TTL cache on top of ristretto where every entry costs 1.
// Keys are tracked on the side so Size can be answered.
type Ristretto[T any] struct {
	c    *ristretto.Cache
	ttl  time.Duration
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewRistretto creates a cache holding about maxEntries values for ttl each.
// A zero ttl keeps entries until evicted.
func NewRistretto[T any](maxEntries int, ttl time.Duration) (*Ristretto[T], error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        int64(maxEntries) * 10, // number of keys to track frequency of
		MaxCost:            int64(maxEntries),
		BufferItems:        64, // number of keys per Get buffer
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &Ristretto[T]{c: c, ttl: ttl, keys: make(map[string]struct{})}, nil
}

func (r *Ristretto[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := r.c.Get(key)
	if !ok {
		return zero, false
	}
	data, ok := v.(T)
	if !ok {
		return zero, false
	}
	return data, true
}

// Set waits for the write buffer so a following Get observes the value.
func (r *Ristretto[T]) Set(key string, data T) {
	if r.c.SetWithTTL(key, data, 1, r.ttl) {
		r.mu.Lock()
		r.keys[key] = struct{}{}
		r.mu.Unlock()
	}
	r.c.Wait()
}

func (r *Ristretto[T]) Delete(key string) {
	r.mu.Lock()
	delete(r.keys, key)
	r.mu.Unlock()
	r.c.Del(key)
}

// Size counts tracked keys that are still resident, forgetting the rest.
func (r *Ristretto[T]) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.keys {
		if _, ok := r.c.Get(k); ok {
			n++
			continue
		}
		delete(r.keys, k)
	}
	return n
}

func (r *Ristretto[T]) Close() {
	r.c.Close()
}
