package ports

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates a key is absent (or expired) in the store.
var ErrNotFound = errors.New("store: key not found")

// ErrQuotaExceeded indicates a write would push the store past its quota.
var ErrQuotaExceeded = errors.New("store: quota exceeded")

// QuotaExceededError carries context for a rejected write.
type QuotaExceededError struct {
	Key  string
	Size int
}

func (e QuotaExceededError) Error() string {
	return fmt.Sprintf("store: quota exceeded writing %q (%d bytes)", e.Key, e.Size)
}

func (e QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// KeyValueStore is the persistent store boundary: a keyed byte store with a
// finite quota. A ttl of zero means the entry does not expire.
type KeyValueStore interface {
	// Name returns the backend name, for logs.
	Name() string

	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	Close() error
}
