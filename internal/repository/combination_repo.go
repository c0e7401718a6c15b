package repository

import (
	"context"

	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
)

// CombinationRepository handles data access for variant combinations and
// their combination values.
type CombinationRepository struct {
	store docstore.Store
}

// NewCombinationRepository creates a new CombinationRepository.
func NewCombinationRepository(store docstore.Store) *CombinationRepository {
	return &CombinationRepository{store: store}
}

// Create inserts c. An empty ID is assigned by the store.
func (r *CombinationRepository) Create(ctx context.Context, c *models.VariantCombination) error {
	doc, err := r.store.CreateDocument(ctx, CollectionVariantCombinations, c.ID, combinationData(c))
	if err != nil {
		return translate(err, "variant combination", c.ID)
	}
	*c = combinationFromDocument(doc)
	return nil
}

// GetByID returns a combination by id.
func (r *CombinationRepository) GetByID(ctx context.Context, id string) (models.VariantCombination, error) {
	return getMapped(ctx, r.store, CollectionVariantCombinations, "variant combination", id, combinationFromDocument)
}

// ListByProduct returns the combinations of a product, oldest first.
func (r *CombinationRepository) ListByProduct(ctx context.Context, productID string) ([]models.VariantCombination, error) {
	return listAllMapped(ctx, r.store, CollectionVariantCombinations, combinationFromDocument,
		docstore.Equal("productId", productID))
}

// List returns one page of all combinations, oldest first.
func (r *CombinationRepository) List(ctx context.Context, limit, offset int) ([]models.VariantCombination, int, error) {
	return listMapped(ctx, r.store, CollectionVariantCombinations, combinationFromDocument,
		docstore.Limit(limit), docstore.Offset(offset))
}

// Delete removes a combination.
func (r *CombinationRepository) Delete(ctx context.Context, id string) error {
	return deleteDocument(ctx, r.store, CollectionVariantCombinations, "variant combination", id)
}

// CreateValue inserts v. An empty ID is assigned by the store.
func (r *CombinationRepository) CreateValue(ctx context.Context, v *models.CombinationValue) error {
	doc, err := r.store.CreateDocument(ctx, CollectionCombinationValues, v.ID, combinationValueData(v))
	if err != nil {
		return translate(err, "combination value", v.ID)
	}
	*v = combinationValueFromDocument(doc)
	return nil
}

// ListValuesByProduct returns every combination value of a product.
func (r *CombinationRepository) ListValuesByProduct(ctx context.Context, productID string) ([]models.CombinationValue, error) {
	return listAllMapped(ctx, r.store, CollectionCombinationValues, combinationValueFromDocument,
		docstore.Equal("productId", productID))
}

// ListValues returns one page of all combination values, oldest first.
func (r *CombinationRepository) ListValues(ctx context.Context, limit, offset int) ([]models.CombinationValue, int, error) {
	return listMapped(ctx, r.store, CollectionCombinationValues, combinationValueFromDocument,
		docstore.Limit(limit), docstore.Offset(offset))
}

// DeleteValue removes a combination value.
func (r *CombinationRepository) DeleteValue(ctx context.Context, id string) error {
	return deleteDocument(ctx, r.store, CollectionCombinationValues, "combination value", id)
}

func combinationData(c *models.VariantCombination) map[string]any {
	values := make(map[string]any, len(c.VariantValues))
	for k, v := range c.VariantValues {
		values[k] = v
	}
	data := map[string]any{
		"productId":       c.ProductID,
		"variantStrings":  stringsOrEmpty(c.VariantStrings),
		"variantValues":   values,
		"displayName":     c.DisplayName,
		"sku":             c.SKU,
		"price":           money(c.Price),
		"additionalPrice": money(c.AdditionalPrice),
		"stockQuantity":   c.StockQuantity,
		"isActive":        c.IsActive,
		"weight":          optionalFloat(c.Weight),
		"images":          stringsOrEmpty(c.Images),
	}
	if c.Dimensions != nil {
		data["dimensions"] = *c.Dimensions
	}
	return data
}

func combinationFromDocument(doc *docstore.Document) models.VariantCombination {
	c := models.VariantCombination{
		ID:              doc.ID,
		ProductID:       doc.String("productId"),
		VariantStrings:  doc.Strings("variantStrings"),
		VariantValues:   map[string]string{},
		DisplayName:     doc.String("displayName"),
		SKU:             doc.String("sku"),
		Price:           decimalField(doc, "price"),
		AdditionalPrice: decimalField(doc, "additionalPrice"),
		StockQuantity:   doc.Int("stockQuantity"),
		IsActive:        doc.Bool("isActive"),
		Weight:          doc.OptionalFloat("weight"),
		Images:          doc.Strings("images"),
		CreatedAt:       doc.CreatedAt,
	}
	_ = doc.Decode("variantValues", &c.VariantValues)
	if _, ok := doc.Data["dimensions"]; ok {
		var dims models.Dimensions
		if err := doc.Decode("dimensions", &dims); err == nil {
			c.Dimensions = &dims
		}
	}
	return c
}

func combinationValueData(v *models.CombinationValue) map[string]any {
	return map[string]any{
		"combinationId": v.CombinationID,
		"productId":     v.ProductID,
		"templateId":    v.TemplateID,
		"value":         v.Value,
		"token":         v.Token,
	}
}

func combinationValueFromDocument(doc *docstore.Document) models.CombinationValue {
	return models.CombinationValue{
		ID:            doc.ID,
		CombinationID: doc.String("combinationId"),
		ProductID:     doc.String("productId"),
		TemplateID:    doc.String("templateId"),
		Value:         doc.String("value"),
		Token:         doc.String("token"),
	}
}
