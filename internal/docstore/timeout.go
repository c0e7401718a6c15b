package docstore

import (
	"context"
	"time"
)

// timeoutStore bounds every call of the wrapped Store.
type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout wraps s so that each call runs under its own deadline. A zero
// or negative timeout returns s unchanged.
func WithTimeout(s Store, timeout time.Duration) Store {
	if timeout <= 0 {
		return s
	}
	return &timeoutStore{next: s, timeout: timeout}
}

func (t *timeoutStore) CreateDocument(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.CreateDocument(ctx, collection, id, data)
}

func (t *timeoutStore) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.GetDocument(ctx, collection, id)
}

func (t *timeoutStore) ListDocuments(ctx context.Context, collection string, queries ...Query) (*DocumentList, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ListDocuments(ctx, collection, queries...)
}

func (t *timeoutStore) UpdateDocument(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.UpdateDocument(ctx, collection, id, data)
}

func (t *timeoutStore) DeleteDocument(ctx context.Context, collection, id string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DeleteDocument(ctx, collection, id)
}

func (t *timeoutStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Ping(ctx)
}
