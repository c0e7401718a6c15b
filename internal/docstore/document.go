// Package docstore is the document-collection capability the catalog core is
// built on: create/get/list/update/delete documents in named collections, plus
// object storage for uploaded files. The store has no joins and no aggregation;
// everything above it works with single-collection queries only.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document or file does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a document id is already taken in a collection.
	ErrDuplicate = errors.New("document already exists")
	// ErrInvalidQuery is returned for malformed queries (bad attribute names, negative limits).
	ErrInvalidQuery = errors.New("invalid query")
)

// Document is one stored record. Data only ever holds JSON-compatible values:
// string, float64, bool, nil, []any and map[string]any.
type Document struct {
	ID         string         `json:"$id"`
	Collection string         `json:"$collection"`
	CreatedAt  time.Time      `json:"$createdAt"`
	UpdatedAt  time.Time      `json:"$updatedAt"`
	Data       map[string]any `json:"data"`
}

// DocumentList is the result of ListDocuments. Total counts every match,
// ignoring limit and offset.
type DocumentList struct {
	Documents []Document
	Total     int
}

// Store is the document-collection API.
type Store interface {
	CreateDocument(ctx context.Context, collection, id string, data map[string]any) (*Document, error)
	GetDocument(ctx context.Context, collection, id string) (*Document, error)
	ListDocuments(ctx context.Context, collection string, queries ...Query) (*DocumentList, error)
	// UpdateDocument merges data into the stored document (top-level keys replace).
	UpdateDocument(ctx context.Context, collection, id string, data map[string]any) (*Document, error)
	DeleteDocument(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
}

// File is an uploaded blob.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// FileStorage is the object-storage API.
type FileStorage interface {
	CreateFile(ctx context.Context, bucket, id string, file File) (string, error)
	DeleteFile(ctx context.Context, bucket, id string) error
}

// String returns the string stored under key, or "".
func (d *Document) String(key string) string {
	s, _ := d.Data[key].(string)
	return s
}

// Float returns the number stored under key, or 0.
func (d *Document) Float(key string) float64 {
	f, _ := d.Data[key].(float64)
	return f
}

// OptionalFloat returns the number stored under key, or nil when absent.
func (d *Document) OptionalFloat(key string) *float64 {
	f, ok := d.Data[key].(float64)
	if !ok {
		return nil
	}
	return &f
}

// Int returns the number stored under key truncated to int.
func (d *Document) Int(key string) int {
	return int(d.Float(key))
}

// Bool returns the bool stored under key, or false.
func (d *Document) Bool(key string) bool {
	b, _ := d.Data[key].(bool)
	return b
}

// Strings returns the string elements of the array stored under key.
func (d *Document) Strings(key string) []string {
	raw, ok := d.Data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Decode converts the value under key into out through its JSON form.
func (d *Document) Decode(key string, out any) error {
	v, ok := d.Data[key]
	if !ok || v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// normalize converts arbitrary Go values into the JSON-compatible shapes a
// Document holds, so every backend compares the same types.
func normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
