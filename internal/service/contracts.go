package service

import (
	"context"

	"github.com/GTDGit/gtd_catalog/internal/models"
)

// WriteGuard serializes conflicting product writes and deduplicates client
// retries by request id.
type WriteGuard interface {
	// Lock takes the write lock for key and returns its release func.
	Lock(ctx context.Context, key string) (func(), error)
	// Begin claims requestID. A non-empty result is the product created by an
	// earlier request with the same id.
	Begin(ctx context.Context, requestID string) (string, error)
	Complete(ctx context.Context, requestID, productID string) error
	Abort(ctx context.Context, requestID string) error
}

// UsageCounter reports how many product variants hold each value of a template.
type UsageCounter interface {
	Counts(ctx context.Context, templateID string, values []string) (map[string]int, error)
}

// UsageRecorder keeps a maintained UsageCounter current as variants are
// written and deleted.
type UsageRecorder interface {
	Add(ctx context.Context, templateID string, values []string, delta int) error
}

// FilterIndexCache stores built filter indexes.
type FilterIndexCache interface {
	Get(ctx context.Context, scope models.Scope, productType, category string) (*models.FilterIndex, bool, error)
	Set(ctx context.Context, scope models.Scope, productType, category string, index *models.FilterIndex) error
	InvalidateAll(ctx context.Context) error
}
