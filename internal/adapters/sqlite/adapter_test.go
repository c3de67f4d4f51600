package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ewilliams-labs/resonate/internal/core/ports"
)

func newTestAdapter(t *testing.T, quotaBytes int64) *Adapter {
	t.Helper()
	a, err := NewAdapter(filepath.Join(t.TempDir(), "test.db"), quotaBytes)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSetGetRoundtrip(t *testing.T) {
	a := newTestAdapter(t, 0)
	ctx := context.Background()

	if err := a.Set(ctx, "k", []byte(`{"energy":0.8}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := a.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"energy":0.8}` {
		t.Fatalf("Get: got %q", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	a := newTestAdapter(t, 0)
	if _, err := a.Get(context.Background(), "absent"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("Get absent: got %v, want ErrNotFound", err)
	}
}

func TestSetOverwritesExistingKey(t *testing.T) {
	a := newTestAdapter(t, 0)
	ctx := context.Background()

	if err := a.Set(ctx, "k", []byte("old"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := a.Set(ctx, "k", []byte("new"), 0); err != nil {
		t.Fatalf("overwrite Set: %v", err)
	}
	got, err := a.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "new" {
		t.Fatalf("Get after overwrite: got %q, want %q", got, "new")
	}
}

func TestTTLExpiry(t *testing.T) {
	a := newTestAdapter(t, 0)
	ctx := context.Background()
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	now := base
	a.now = func() time.Time { return now }

	if err := a.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := a.Get(ctx, "k"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	now = base.Add(2 * time.Minute)
	if _, err := a.Get(ctx, "k"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("Get after expiry: got %v, want ErrNotFound", err)
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	a := newTestAdapter(t, 0)
	ctx := context.Background()
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	now := base
	a.now = func() time.Time { return now }

	if err := a.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	now = base.Add(1000 * time.Hour)
	if _, err := a.Get(ctx, "k"); err != nil {
		t.Fatalf("Get far in the future: %v", err)
	}
}

func TestQuotaRejectsOversizedWrites(t *testing.T) {
	a := newTestAdapter(t, 10)
	ctx := context.Background()

	if err := a.Set(ctx, "a", []byte("12345"), 0); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	err := a.Set(ctx, "b", []byte("123456"), 0)
	if !errors.Is(err, ports.ErrQuotaExceeded) {
		t.Fatalf("oversized Set: got %v, want ErrQuotaExceeded", err)
	}
	var quotaErr ports.QuotaExceededError
	if !errors.As(err, &quotaErr) || quotaErr.Key != "b" {
		t.Fatalf("quota error detail: got %+v", err)
	}

	// Replacing an existing key only counts the new value against the quota.
	if err := a.Set(ctx, "a", []byte("1234567890"), 0); err != nil {
		t.Fatalf("replace Set: %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	a := newTestAdapter(t, 0)
	ctx := context.Background()

	if err := a.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := a.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := a.Delete(ctx, "k"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := a.Get(ctx, "k"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("Get after delete: got %v, want ErrNotFound", err)
	}
}
