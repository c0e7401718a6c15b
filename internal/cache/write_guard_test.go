package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GTDGit/gtd_catalog/internal/utils"
)

func TestMemoryWriteGuardLock(t *testing.T) {
	g := NewMemoryWriteGuard(time.Minute, time.Hour)
	ctx := context.Background()

	release, err := g.Lock(ctx, "store-1:SKU")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := g.Lock(ctx, "store-1:SKU"); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("second lock err = %v, want conflict", err)
	}
	if _, err := g.Lock(ctx, "store-2:SKU"); err != nil {
		t.Fatalf("other key: %v", err)
	}
	release()
	if _, err := g.Lock(ctx, "store-1:SKU"); err != nil {
		t.Fatalf("lock after release: %v", err)
	}
}

func TestMemoryWriteGuardLockExpires(t *testing.T) {
	g := NewMemoryWriteGuard(time.Minute, time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := g.Lock(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := g.Lock(ctx, "k"); err != nil {
		t.Fatalf("expired lock still held: %v", err)
	}
}

func TestMemoryWriteGuardIdempotency(t *testing.T) {
	g := NewMemoryWriteGuard(time.Minute, time.Hour)
	ctx := context.Background()

	if id, err := g.Begin(ctx, "req-1"); err != nil || id != "" {
		t.Fatalf("Begin = %q, %v", id, err)
	}
	if _, err := g.Begin(ctx, "req-1"); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("pending Begin err = %v, want conflict", err)
	}
	if err := g.Complete(ctx, "req-1", "prod-9"); err != nil {
		t.Fatal(err)
	}
	if id, err := g.Begin(ctx, "req-1"); err != nil || id != "prod-9" {
		t.Fatalf("replayed Begin = %q, %v", id, err)
	}

	if _, err := g.Begin(ctx, "req-2"); err != nil {
		t.Fatal(err)
	}
	if err := g.Abort(ctx, "req-2"); err != nil {
		t.Fatal(err)
	}
	if id, err := g.Begin(ctx, "req-2"); err != nil || id != "" {
		t.Fatalf("Begin after abort = %q, %v", id, err)
	}
}
