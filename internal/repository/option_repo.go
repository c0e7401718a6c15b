package repository

import (
	"context"

	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
)

// OptionRepository handles data access for variant options.
type OptionRepository struct {
	store docstore.Store
}

// NewOptionRepository creates a new OptionRepository.
func NewOptionRepository(store docstore.Store) *OptionRepository {
	return &OptionRepository{store: store}
}

// Create inserts o. An empty ID is assigned by the store.
func (r *OptionRepository) Create(ctx context.Context, o *models.VariantOption) error {
	doc, err := r.store.CreateDocument(ctx, CollectionVariantOptions, o.ID, optionData(o))
	if err != nil {
		return translate(err, "variant option", o.ID)
	}
	*o = optionFromDocument(doc)
	return nil
}

// ListTemplateLevel returns the options of the given templates that do not
// belong to a product, ordered by sortOrder.
func (r *OptionRepository) ListTemplateLevel(ctx context.Context, templateIDs ...string) ([]models.VariantOption, error) {
	if len(templateIDs) == 0 {
		return nil, nil
	}
	return listAllMapped(ctx, r.store, CollectionVariantOptions, optionFromDocument,
		docstore.Equal("templateId", anySlice(templateIDs)...),
		docstore.IsNull("productId"),
		docstore.OrderAsc("sortOrder"),
	)
}

// ListByTemplates returns every option of the given templates, template-level
// and product-level alike, ordered by sortOrder.
func (r *OptionRepository) ListByTemplates(ctx context.Context, templateIDs ...string) ([]models.VariantOption, error) {
	if len(templateIDs) == 0 {
		return nil, nil
	}
	return listAllMapped(ctx, r.store, CollectionVariantOptions, optionFromDocument,
		docstore.Equal("templateId", anySlice(templateIDs)...),
		docstore.OrderAsc("sortOrder"),
	)
}

// ListByProduct returns the options written for a product.
func (r *OptionRepository) ListByProduct(ctx context.Context, productID string) ([]models.VariantOption, error) {
	return listAllMapped(ctx, r.store, CollectionVariantOptions, optionFromDocument,
		docstore.Equal("productId", productID),
		docstore.OrderAsc("sortOrder"),
	)
}

// ListProductLevel returns one page of options that belong to some product.
func (r *OptionRepository) ListProductLevel(ctx context.Context, limit, offset int) ([]models.VariantOption, int, error) {
	return listMapped(ctx, r.store, CollectionVariantOptions, optionFromDocument,
		docstore.GreaterThan("productId", ""),
		docstore.Limit(limit), docstore.Offset(offset),
	)
}

// Delete removes an option.
func (r *OptionRepository) Delete(ctx context.Context, id string) error {
	return deleteDocument(ctx, r.store, CollectionVariantOptions, "variant option", id)
}

func optionData(o *models.VariantOption) map[string]any {
	data := map[string]any{
		"templateId":      o.TemplateID,
		"value":           o.Value,
		"name":            o.Name,
		"colorCode":       o.ColorCode,
		"additionalPrice": money(o.AdditionalPrice),
		"isDefault":       o.IsDefault,
		"sortOrder":       o.SortOrder,
		"productId":       nil,
		"variantId":       nil,
	}
	if o.ProductID != "" {
		data["productId"] = o.ProductID
		data["variantId"] = o.VariantID
	}
	return data
}

func optionFromDocument(doc *docstore.Document) models.VariantOption {
	return models.VariantOption{
		ID:              doc.ID,
		TemplateID:      doc.String("templateId"),
		ProductID:       doc.String("productId"),
		VariantID:       doc.String("variantId"),
		Value:           doc.String("value"),
		Name:            doc.String("name"),
		ColorCode:       doc.String("colorCode"),
		AdditionalPrice: decimalField(doc, "additionalPrice"),
		IsDefault:       doc.Bool("isDefault"),
		SortOrder:       doc.Int("sortOrder"),
		CreatedAt:       doc.CreatedAt,
	}
}
