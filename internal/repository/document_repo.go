package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

// Collection names.
const (
	CollectionProducts            = "products"
	CollectionProductVariants     = "product_variants"
	CollectionVariantOptions      = "variant_options"
	CollectionVariantTemplates    = "variant_templates"
	CollectionVariantCombinations = "variant_combinations"
	CollectionCombinationValues   = "combination_values"
	CollectionVirtualProducts     = "virtual_products"
)

// pageSize is the batch size used when a repository walks a whole result set.
const pageSize = 500

// getMapped loads one document and converts it. A missing document becomes a
// utils.NotFoundError naming resource.
func getMapped[T any](ctx context.Context, store docstore.Store, collection, resource, id string, fromDoc func(*docstore.Document) T) (T, error) {
	var zero T
	doc, err := store.GetDocument(ctx, collection, id)
	if err != nil {
		return zero, translate(err, resource, id)
	}
	return fromDoc(doc), nil
}

// listMapped runs one list call and converts the page.
func listMapped[T any](ctx context.Context, store docstore.Store, collection string, fromDoc func(*docstore.Document) T, queries ...docstore.Query) ([]T, int, error) {
	res, err := store.ListDocuments(ctx, collection, queries...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", collection, err)
	}
	out := make([]T, 0, len(res.Documents))
	for i := range res.Documents {
		out = append(out, fromDoc(&res.Documents[i]))
	}
	return out, res.Total, nil
}

// listAllMapped pages through every match of queries.
func listAllMapped[T any](ctx context.Context, store docstore.Store, collection string, fromDoc func(*docstore.Document) T, queries ...docstore.Query) ([]T, error) {
	var out []T
	for offset := 0; ; offset += pageSize {
		q := append(append([]docstore.Query{}, queries...), docstore.Limit(pageSize), docstore.Offset(offset))
		page, total, err := listMapped(ctx, store, collection, fromDoc, q...)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < pageSize || offset+len(page) >= total {
			return out, nil
		}
	}
}

func deleteDocument(ctx context.Context, store docstore.Store, collection, resource, id string) error {
	if err := store.DeleteDocument(ctx, collection, id); err != nil {
		return translate(err, resource, id)
	}
	return nil
}

func translate(err error, resource, id string) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return utils.NotFoundError(resource, id)
	}
	if errors.Is(err, docstore.ErrDuplicate) {
		return utils.ConflictError("DUPLICATE_ID", "%s %s already exists", resource, id)
	}
	return err
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func decimalField(doc *docstore.Document, key string) decimal.Decimal {
	return decimal.NewFromFloat(doc.Float(key))
}

func optionalString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func optionalFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func stringPtr(doc *docstore.Document, key string) *string {
	s := doc.String(key)
	if s == "" {
		return nil
	}
	return &s
}
