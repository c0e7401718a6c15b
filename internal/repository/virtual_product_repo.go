package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
)

// VirtualProductRepository handles data access for virtual products.
type VirtualProductRepository struct {
	store docstore.Store
}

// NewVirtualProductRepository creates a new VirtualProductRepository.
func NewVirtualProductRepository(store docstore.Store) *VirtualProductRepository {
	return &VirtualProductRepository{store: store}
}

// Create inserts vp. An empty ID is assigned by the store.
func (r *VirtualProductRepository) Create(ctx context.Context, vp *models.VirtualProduct) error {
	doc, err := r.store.CreateDocument(ctx, CollectionVirtualProducts, vp.ID, virtualProductData(vp))
	if err != nil {
		return translate(err, "virtual product", vp.ID)
	}
	*vp = virtualProductFromDocument(doc)
	return nil
}

// GetByID returns a virtual product by id.
func (r *VirtualProductRepository) GetByID(ctx context.Context, id string) (models.VirtualProduct, error) {
	return getMapped(ctx, r.store, CollectionVirtualProducts, "virtual product", id, virtualProductFromDocument)
}

// Update replaces the stored fields of vp.
func (r *VirtualProductRepository) Update(ctx context.Context, vp *models.VirtualProduct) error {
	doc, err := r.store.UpdateDocument(ctx, CollectionVirtualProducts, vp.ID, virtualProductData(vp))
	if err != nil {
		return translate(err, "virtual product", vp.ID)
	}
	*vp = virtualProductFromDocument(doc)
	return nil
}

// ListByStore returns one page of a store's virtual products, newest first.
func (r *VirtualProductRepository) ListByStore(ctx context.Context, storeID string, limit, offset int) ([]models.VirtualProduct, int, error) {
	return listMapped(ctx, r.store, CollectionVirtualProducts, virtualProductFromDocument,
		docstore.Equal("storeId", storeID),
		docstore.OrderDesc(docstore.AttrCreatedAt),
		docstore.Limit(limit), docstore.Offset(offset),
	)
}

// ExistsForOriginal reports whether storeID already resells originalProductID.
func (r *VirtualProductRepository) ExistsForOriginal(ctx context.Context, storeID, originalProductID string) (bool, error) {
	_, total, err := listMapped(ctx, r.store, CollectionVirtualProducts, virtualProductFromDocument,
		docstore.Equal("storeId", storeID),
		docstore.Equal("originalProductId", originalProductID),
		docstore.Limit(1),
	)
	return total > 0, err
}

// Delete removes a virtual product.
func (r *VirtualProductRepository) Delete(ctx context.Context, id string) error {
	return deleteDocument(ctx, r.store, CollectionVirtualProducts, "virtual product", id)
}

type storedCombinationPrice struct {
	CombinationID string  `json:"combinationId"`
	Commission    float64 `json:"commission"`
	Price         float64 `json:"price"`
	IsOverride    bool    `json:"isOverride"`
}

func virtualProductData(vp *models.VirtualProduct) map[string]any {
	prices := make([]storedCombinationPrice, 0, len(vp.CombinationPrices))
	for _, cp := range vp.CombinationPrices {
		prices = append(prices, storedCombinationPrice{
			CombinationID: cp.CombinationID,
			Commission:    money(cp.Commission),
			Price:         money(cp.Price),
			IsOverride:    cp.IsOverride,
		})
	}
	return map[string]any{
		"storeId":           vp.StoreID,
		"originalProductId": vp.OriginalProductID,
		"createdBy":         vp.CreatedBy,
		"title":             vp.Title,
		"description":       vp.Description,
		"basePrice":         money(vp.BasePrice),
		"commission":        money(vp.Commission),
		"sellingPrice":      money(vp.SellingPrice),
		"combinationPrices": prices,
		"images":            stringsOrEmpty(vp.Images),
		"status":            string(vp.Status),
	}
}

func virtualProductFromDocument(doc *docstore.Document) models.VirtualProduct {
	vp := models.VirtualProduct{
		ID:                doc.ID,
		StoreID:           doc.String("storeId"),
		OriginalProductID: doc.String("originalProductId"),
		CreatedBy:         doc.String("createdBy"),
		Title:             doc.String("title"),
		Description:       doc.String("description"),
		BasePrice:         decimalField(doc, "basePrice"),
		Commission:        decimalField(doc, "commission"),
		SellingPrice:      decimalField(doc, "sellingPrice"),
		CombinationPrices: []models.CombinationPrice{},
		Images:            stringsOrEmpty(doc.Strings("images")),
		Status:            models.ProductStatus(doc.String("status")),
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
	var stored []storedCombinationPrice
	if err := doc.Decode("combinationPrices", &stored); err == nil {
		for _, s := range stored {
			vp.CombinationPrices = append(vp.CombinationPrices, models.CombinationPrice{
				CombinationID: s.CombinationID,
				Commission:    decimal.NewFromFloat(s.Commission),
				Price:         decimal.NewFromFloat(s.Price),
				IsOverride:    s.IsOverride,
			})
		}
	}
	return vp
}
