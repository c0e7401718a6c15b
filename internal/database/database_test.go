package database

import (
	"context"
	"errors"
	"testing"
	"time"

	appconfig "github.com/GTDGit/gtd_catalog/internal/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	got := DSN(&appconfig.DatabaseConfig{
		Host: "db", Port: "5432", User: "cat@log", Password: "p/w:x", Name: "catalog", SSLMode: "disable",
	})
	want := "postgres://cat%40log:p%2Fw%3Ax@db:5432/catalog?sslmode=disable"
	if got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	if d := backoff(1, 500*time.Millisecond); d != 500*time.Millisecond {
		t.Fatalf("attempt 1 = %s", d)
	}
	if d := backoff(3, 500*time.Millisecond); d != 2*time.Second {
		t.Fatalf("attempt 3 = %s", d)
	}
	if d := backoff(10, 500*time.Millisecond); d != 5*time.Second {
		t.Fatalf("attempt 10 = %s", d)
	}
}

func TestConnectStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Nothing listens on port 1; the cancelled context ends the retry loop
	// after the first failed attempt instead of sleeping through all of them.
	start := time.Now()
	_, err := Connect(ctx, &appconfig.DatabaseConfig{Host: "127.0.0.1", Port: "1", User: "u", Name: "n", SSLMode: "disable"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("Connect kept retrying after cancel")
	}
}

func TestConnectNilConfig(t *testing.T) {
	if _, err := Connect(context.Background(), nil); err == nil {
		t.Fatal("expected an error for nil config")
	}
}
