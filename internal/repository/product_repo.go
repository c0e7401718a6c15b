package repository

import (
	"context"

	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
)

// ProductRepository handles data access for original products.
type ProductRepository struct {
	store docstore.Store
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(store docstore.Store) *ProductRepository {
	return &ProductRepository{store: store}
}

// Create inserts p. An empty ID is assigned by the store.
func (r *ProductRepository) Create(ctx context.Context, p *models.OriginalProduct) error {
	doc, err := r.store.CreateDocument(ctx, CollectionProducts, p.ID, productData(p))
	if err != nil {
		return translate(err, "product", p.ID)
	}
	*p = productFromDocument(doc)
	return nil
}

// GetByID returns a product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (models.OriginalProduct, error) {
	return getMapped(ctx, r.store, CollectionProducts, "product", id, productFromDocument)
}

// SetVariantRefs records the ids of the rows a product owns.
func (r *ProductRepository) SetVariantRefs(ctx context.Context, id string, variantIDs, combinationIDs []string) (models.OriginalProduct, error) {
	doc, err := r.store.UpdateDocument(ctx, CollectionProducts, id, map[string]any{
		"variantIds":     stringsOrEmpty(variantIDs),
		"combinationIds": stringsOrEmpty(combinationIDs),
	})
	if err != nil {
		return models.OriginalProduct{}, translate(err, "product", id)
	}
	return productFromDocument(doc), nil
}

// ExistsWithSKU reports whether storeID already lists a product with sku.
func (r *ProductRepository) ExistsWithSKU(ctx context.Context, storeID, sku string) (bool, error) {
	_, total, err := listMapped(ctx, r.store, CollectionProducts, productFromDocument,
		docstore.Equal("storeId", storeID),
		docstore.Equal("sku", sku),
		docstore.Limit(1),
	)
	return total > 0, err
}

// List returns one page of products matching queries and the total match count.
func (r *ProductRepository) List(ctx context.Context, queries ...docstore.Query) ([]models.OriginalProduct, int, error) {
	return listMapped(ctx, r.store, CollectionProducts, productFromDocument, queries...)
}

// ExistingIDs returns the subset of ids that are stored products.
func (r *ProductRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	products, err := listAllMapped(ctx, r.store, CollectionProducts, productFromDocument,
		docstore.Equal(docstore.AttrID, anySlice(ids)...))
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = true
	}
	return out, nil
}

// Delete removes a product document only; owned rows are removed by the caller.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return deleteDocument(ctx, r.store, CollectionProducts, "product", id)
}

func productData(p *models.OriginalProduct) map[string]any {
	data := map[string]any{
		"storeId":        p.StoreID,
		"createdBy":      p.CreatedBy,
		"title":          p.Title,
		"description":    p.Description,
		"sku":            p.SKU,
		"basePrice":      money(p.BasePrice),
		"category":       p.Category,
		"subcategory":    p.Subcategory,
		"productType":    p.ProductType,
		"categories":     stringsOrEmpty(p.Categories),
		"hasVariants":    p.HasVariants,
		"variantIds":     stringsOrEmpty(p.VariantIDs),
		"combinationIds": stringsOrEmpty(p.CombinationIDs),
		"images":         stringsOrEmpty(p.Images),
		"stockQuantity":  p.StockQuantity,
		"rating":         p.Rating,
		"popularity":     p.Popularity,
		"status":         string(p.Status),
	}
	if p.Location != nil {
		data["location"] = *p.Location
	}
	return data
}

func productFromDocument(doc *docstore.Document) models.OriginalProduct {
	p := models.OriginalProduct{
		ID:             doc.ID,
		StoreID:        doc.String("storeId"),
		CreatedBy:      doc.String("createdBy"),
		Title:          doc.String("title"),
		Description:    doc.String("description"),
		SKU:            doc.String("sku"),
		BasePrice:      decimalField(doc, "basePrice"),
		Category:       doc.String("category"),
		Subcategory:    doc.String("subcategory"),
		ProductType:    doc.String("productType"),
		Categories:     doc.Strings("categories"),
		HasVariants:    doc.Bool("hasVariants"),
		VariantIDs:     stringsOrEmpty(doc.Strings("variantIds")),
		CombinationIDs: stringsOrEmpty(doc.Strings("combinationIds")),
		Images:         stringsOrEmpty(doc.Strings("images")),
		StockQuantity:  doc.Int("stockQuantity"),
		Rating:         doc.Float("rating"),
		Popularity:     doc.Int("popularity"),
		Status:         models.ProductStatus(doc.String("status")),
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	if _, ok := doc.Data["location"]; ok {
		var loc models.Location
		if err := doc.Decode("location", &loc); err == nil {
			p.Location = &loc
		}
	}
	return p
}
