package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

// VirtualProductService manages resale clones of original products.
// Deleting an original product leaves its clones untouched.
type VirtualProductService struct {
	repos *repository.Repositories
}

// NewVirtualProductService constructs a VirtualProductService.
func NewVirtualProductService(repos *repository.Repositories) *VirtualProductService {
	return &VirtualProductService{repos: repos}
}

// Create clones an original product into a virtual store with a commission
// on top of the original prices.
func (s *VirtualProductService) Create(ctx context.Context, req *models.CreateVirtualProductRequest) (*models.VirtualProduct, error) {
	if strings.TrimSpace(req.StoreID) == "" {
		return nil, utils.ValidationError("STORE_REQUIRED", "storeId is required")
	}
	if req.Commission.IsNegative() {
		return nil, utils.ValidationError("INVALID_COMMISSION", "commission must not be negative")
	}
	for id, c := range req.CommissionOverrides {
		if c.IsNegative() {
			return nil, utils.ValidationError("INVALID_COMMISSION", "commission for combination %s must not be negative", id)
		}
	}

	original, err := s.repos.Products.GetByID(ctx, req.OriginalProductID)
	if err != nil {
		return nil, err
	}
	if original.StoreID == req.StoreID {
		return nil, utils.ValidationError("SAME_STORE", "a store cannot resell its own product")
	}
	exists, err := s.repos.VirtualProducts.ExistsForOriginal(ctx, req.StoreID, original.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, utils.ConflictError("DUPLICATE_VIRTUAL_PRODUCT", "store %s already resells product %s", req.StoreID, original.ID)
	}

	combos, err := s.repos.Combinations.ListByProduct(ctx, original.ID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(combos))
	for _, c := range combos {
		known[c.ID] = true
	}
	for id := range req.CommissionOverrides {
		if !known[id] {
			return nil, utils.ValidationError("UNKNOWN_COMBINATION", "combination %s does not belong to product %s", id, original.ID)
		}
	}

	vp := &models.VirtualProduct{
		StoreID:           req.StoreID,
		OriginalProductID: original.ID,
		CreatedBy:         req.CreatedBy,
		Title:             firstNonEmpty(req.Title, original.Title),
		Description:       firstNonEmpty(req.Description, original.Description),
		BasePrice:         original.BasePrice,
		Commission:        req.Commission,
		SellingPrice:      original.BasePrice.Add(req.Commission),
		CombinationPrices: combinationPrices(combos, req.Commission, req.CommissionOverrides),
		Images:            original.Images,
		Status:            models.ProductStatusActive,
	}
	if err := s.repos.VirtualProducts.Create(ctx, vp); err != nil {
		return nil, err
	}
	log.Info().Str("virtual_product_id", vp.ID).Str("store_id", vp.StoreID).Str("original_product_id", original.ID).Msg("Virtual product created")
	return vp, nil
}

// Get returns a virtual product by id.
func (s *VirtualProductService) Get(ctx context.Context, id string) (*models.VirtualProduct, error) {
	vp, err := s.repos.VirtualProducts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &vp, nil
}

// ListByStore returns one page of a store's virtual products.
func (s *VirtualProductService) ListByStore(ctx context.Context, storeID string, page, limit int) ([]models.VirtualProduct, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxFilterLimit {
		limit = defaultFilterLimit
	}
	return s.repos.VirtualProducts.ListByStore(ctx, storeID, limit, (page-1)*limit)
}

// Update edits the fields a virtual store owns. A commission change reprices
// the product and every combination without a per-combination override.
func (s *VirtualProductService) Update(ctx context.Context, id string, req *models.UpdateVirtualProductRequest) (*models.VirtualProduct, error) {
	vp, err := s.repos.VirtualProducts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, utils.ValidationError("TITLE_REQUIRED", "title must not be empty")
		}
		vp.Title = *req.Title
	}
	if req.Description != nil {
		vp.Description = *req.Description
	}
	if req.Status != nil {
		switch *req.Status {
		case models.ProductStatusActive, models.ProductStatusDraft, models.ProductStatusArchived:
			vp.Status = *req.Status
		default:
			return nil, utils.ValidationError("INVALID_STATUS", "unknown status %q", *req.Status)
		}
	}
	if req.Commission != nil {
		if req.Commission.IsNegative() {
			return nil, utils.ValidationError("INVALID_COMMISSION", "commission must not be negative")
		}
		combos, err := s.repos.Combinations.ListByProduct(ctx, vp.OriginalProductID)
		if err != nil {
			return nil, err
		}
		overrides := make(map[string]decimal.Decimal)
		for _, cp := range vp.CombinationPrices {
			if cp.IsOverride {
				overrides[cp.CombinationID] = cp.Commission
			}
		}
		vp.Commission = *req.Commission
		vp.SellingPrice = vp.BasePrice.Add(vp.Commission)
		vp.CombinationPrices = combinationPrices(combos, vp.Commission, overrides)
	}

	if err := s.repos.VirtualProducts.Update(ctx, &vp); err != nil {
		return nil, err
	}
	return &vp, nil
}

// Delete removes a virtual product. The original is not touched.
func (s *VirtualProductService) Delete(ctx context.Context, id string) error {
	return s.repos.VirtualProducts.Delete(ctx, id)
}

func combinationPrices(combos []models.VariantCombination, commission decimal.Decimal, overrides map[string]decimal.Decimal) []models.CombinationPrice {
	out := make([]models.CombinationPrice, 0, len(combos))
	for _, c := range combos {
		cm, override := overrides[c.ID]
		if !override {
			cm = commission
		}
		out = append(out, models.CombinationPrice{
			CombinationID: c.ID,
			Commission:    cm,
			Price:         c.Price.Add(cm),
			IsOverride:    override,
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
