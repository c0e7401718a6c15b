package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestRollbackLedgerRunsInReverse(t *testing.T) {
	l := NewRollbackLedger()
	var order []string
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("step-%d", i)
		l.Record(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if failures := l.Rollback(context.Background()); len(failures) != 0 {
		t.Fatalf("unexpected failures %v", failures)
	}
	want := []string{"step-2", "step-1", "step-0"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if l.Len() != 0 {
		t.Fatalf("ledger not cleared, len = %d", l.Len())
	}
}

func TestRollbackLedgerContinuesPastFailures(t *testing.T) {
	l := NewRollbackLedger()
	ran := 0
	l.Record("a", func(context.Context) error { ran++; return nil })
	l.Record("b", func(context.Context) error { ran++; return errors.New("boom") })
	l.Record("c", func(context.Context) error { ran++; return nil })

	failures := l.Rollback(context.Background())
	if ran != 3 {
		t.Fatalf("ran %d actions, want 3", ran)
	}
	if len(failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(failures))
	}
}

func TestRollbackLedgerConcurrentRecord(t *testing.T) {
	l := NewRollbackLedger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record("x", func(context.Context) error { return nil })
		}()
	}
	wg.Wait()
	if l.Len() != 50 {
		t.Fatalf("len = %d, want 50", l.Len())
	}
}
