package repository

import (
	"context"

	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
)

// ProductVariantRepository handles data access for product variants.
type ProductVariantRepository struct {
	store docstore.Store
}

// NewProductVariantRepository creates a new ProductVariantRepository.
func NewProductVariantRepository(store docstore.Store) *ProductVariantRepository {
	return &ProductVariantRepository{store: store}
}

// Create inserts v. An empty ID is assigned by the store.
func (r *ProductVariantRepository) Create(ctx context.Context, v *models.ProductVariant) error {
	doc, err := r.store.CreateDocument(ctx, CollectionProductVariants, v.ID, productVariantData(v))
	if err != nil {
		return translate(err, "product variant", v.ID)
	}
	*v = productVariantFromDocument(doc)
	return nil
}

// ListByProduct returns the variants of a product in sortOrder.
func (r *ProductVariantRepository) ListByProduct(ctx context.Context, productID string) ([]models.ProductVariant, error) {
	return listAllMapped(ctx, r.store, CollectionProductVariants, productVariantFromDocument,
		docstore.Equal("productId", productID),
		docstore.OrderAsc("sortOrder"),
	)
}

// ListByTemplate returns one page of the variants bound to a template.
func (r *ProductVariantRepository) ListByTemplate(ctx context.Context, templateID string, limit, offset int) ([]models.ProductVariant, int, error) {
	return listMapped(ctx, r.store, CollectionProductVariants, productVariantFromDocument,
		docstore.Equal("templateId", templateID),
		docstore.Limit(limit), docstore.Offset(offset),
	)
}

// List returns one page of all variants, oldest first.
func (r *ProductVariantRepository) List(ctx context.Context, limit, offset int) ([]models.ProductVariant, int, error) {
	return listMapped(ctx, r.store, CollectionProductVariants, productVariantFromDocument,
		docstore.Limit(limit), docstore.Offset(offset),
	)
}

// FindByTokens returns up to limit variants of templateID holding any of
// tokens, and the total number of matches.
func (r *ProductVariantRepository) FindByTokens(ctx context.Context, templateID string, tokens []string, limit int) ([]models.ProductVariant, int, error) {
	return listMapped(ctx, r.store, CollectionProductVariants, productVariantFromDocument,
		docstore.Equal("templateId", templateID),
		docstore.Contains("tokens", anySlice(tokens)...),
		docstore.Limit(limit),
	)
}

// FindByRange returns up to limit variants of templateID whose
// [minValue, maxValue] overlaps rng, and the total number of matches.
func (r *ProductVariantRepository) FindByRange(ctx context.Context, templateID string, rng models.NumericRange, limit int) ([]models.ProductVariant, int, error) {
	queries := []docstore.Query{docstore.Equal("templateId", templateID)}
	if rng.Max != nil {
		queries = append(queries, docstore.LessThanEqual("minValue", *rng.Max))
	}
	if rng.Min != nil {
		queries = append(queries, docstore.GreaterThanEqual("maxValue", *rng.Min))
	}
	if rng.Min == nil && rng.Max == nil {
		queries = append(queries, docstore.GreaterThanEqual("minValue", -maxFloat))
	}
	queries = append(queries, docstore.Limit(limit))
	return listMapped(ctx, r.store, CollectionProductVariants, productVariantFromDocument, queries...)
}

// CountWithValue counts the variants of templateID holding value.
func (r *ProductVariantRepository) CountWithValue(ctx context.Context, templateID, value string) (int, error) {
	_, total, err := listMapped(ctx, r.store, CollectionProductVariants, productVariantFromDocument,
		docstore.Equal("templateId", templateID),
		docstore.Contains("values", value),
		docstore.Limit(1),
	)
	return total, err
}

// ValueRange returns the smallest minValue and largest maxValue recorded for
// templateID. ok is false when no variant carries a numeric value.
func (r *ProductVariantRepository) ValueRange(ctx context.Context, templateID string) (lo, hi float64, ok bool, err error) {
	low, _, err := listMapped(ctx, r.store, CollectionProductVariants, productVariantFromDocument,
		docstore.Equal("templateId", templateID),
		docstore.GreaterThanEqual("minValue", -maxFloat),
		docstore.OrderAsc("minValue"),
		docstore.Limit(1),
	)
	if err != nil || len(low) == 0 {
		return 0, 0, false, err
	}
	high, _, err := listMapped(ctx, r.store, CollectionProductVariants, productVariantFromDocument,
		docstore.Equal("templateId", templateID),
		docstore.GreaterThanEqual("maxValue", -maxFloat),
		docstore.OrderDesc("maxValue"),
		docstore.Limit(1),
	)
	if err != nil || len(high) == 0 {
		return 0, 0, false, err
	}
	return *low[0].MinValue, *high[0].MaxValue, true, nil
}

// Delete removes a variant.
func (r *ProductVariantRepository) Delete(ctx context.Context, id string) error {
	return deleteDocument(ctx, r.store, CollectionProductVariants, "product variant", id)
}

// maxFloat bounds numeric "has a value" predicates.
const maxFloat = 1e300

func productVariantData(v *models.ProductVariant) map[string]any {
	return map[string]any{
		"productId":  v.ProductID,
		"templateId": v.TemplateID,
		"name":       v.Name,
		"inputType":  string(v.InputType),
		"values":     stringsOrEmpty(v.Values),
		"tokens":     stringsOrEmpty(v.Tokens),
		"minValue":   optionalFloat(v.MinValue),
		"maxValue":   optionalFloat(v.MaxValue),
		"isRequired": v.IsRequired,
		"sortOrder":  v.SortOrder,
	}
}

func productVariantFromDocument(doc *docstore.Document) models.ProductVariant {
	return models.ProductVariant{
		ID:         doc.ID,
		ProductID:  doc.String("productId"),
		TemplateID: doc.String("templateId"),
		Name:       doc.String("name"),
		InputType:  models.InputType(doc.String("inputType")),
		Values:     doc.Strings("values"),
		Tokens:     doc.Strings("tokens"),
		MinValue:   doc.OptionalFloat("minValue"),
		MaxValue:   doc.OptionalFloat("maxValue"),
		IsRequired: doc.Bool("isRequired"),
		SortOrder:  doc.Int("sortOrder"),
		CreatedAt:  doc.CreatedAt,
	}
}
