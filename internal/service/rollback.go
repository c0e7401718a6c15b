package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// UndoAction reverses one completed write.
type UndoAction struct {
	Description string
	Undo        func(ctx context.Context) error
}

// RollbackLedger records the writes of a multi-document operation so they can
// be reversed if a later step fails. It is safe for concurrent use.
type RollbackLedger struct {
	mu      sync.Mutex
	actions []UndoAction
}

// NewRollbackLedger creates an empty ledger.
func NewRollbackLedger() *RollbackLedger {
	return &RollbackLedger{}
}

// Record appends an undo action for a write. Callers may record before the
// write is sent, in which case the undo must tolerate a missing row.
func (l *RollbackLedger) Record(description string, undo func(ctx context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, UndoAction{Description: description, Undo: undo})
}

// Len returns the number of recorded actions.
func (l *RollbackLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.actions)
}

// Rollback runs every recorded action once, newest first. It keeps going past
// failures and returns them; the ledger is empty afterwards.
func (l *RollbackLedger) Rollback(ctx context.Context) []error {
	l.mu.Lock()
	actions := l.actions
	l.actions = nil
	l.mu.Unlock()

	var failures []error
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		if err := a.Undo(ctx); err != nil {
			log.Error().Err(err).Str("action", a.Description).Msg("Rollback step failed")
			failures = append(failures, fmt.Errorf("%s: %w", a.Description, err))
		}
	}
	return failures
}
