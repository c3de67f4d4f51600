// Package memstore provides an in-memory implementation of the keyed store
// port. It backs tests and the "memory" storage driver.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/ewilliams-labs/resonate/internal/core/ports"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Adapter is a map-backed keyed store with an optional byte quota. Safe for
// concurrent use.
type Adapter struct {
	mu         sync.Mutex // Get evicts expired entries, so reads write too
	entries    map[string]entry
	quotaBytes int
	now        func() time.Time
}

// compile-time interface assertion
var _ ports.KeyValueStore = (*Adapter)(nil)

// NewAdapter constructs an in-memory store. quotaBytes of zero or less means
// unbounded.
func NewAdapter(quotaBytes int) *Adapter {
	return &Adapter{
		entries:    make(map[string]entry),
		quotaBytes: quotaBytes,
		now:        time.Now,
	}
}

// Name identifies the backend in logs.
func (a *Adapter) Name() string { return "memory" }

func (a *Adapter) Get(_ context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if !e.expiresAt.IsZero() && a.now().After(e.expiresAt) {
		delete(a.entries, key)
		return nil, ports.ErrNotFound
	}
	return e.value, nil
}

func (a *Adapter) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.quotaBytes > 0 {
		used := 0
		for k, e := range a.entries {
			if k != key {
				used += len(e.value)
			}
		}
		if used+len(value) > a.quotaBytes {
			return ports.QuotaExceededError{Key: key, Size: len(value)}
		}
	}

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = a.now().Add(ttl)
	}
	a.entries[key] = e
	return nil
}

func (a *Adapter) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, key)
	return nil
}

func (a *Adapter) Close() error { return nil }
