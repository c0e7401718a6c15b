package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CombinationPrice is a virtual store's price for one combination of the original.
// IsOverride marks a commission set for this combination alone; it survives
// changes to the product commission.
type CombinationPrice struct {
	CombinationID string          `json:"combinationId"`
	Commission    decimal.Decimal `json:"commission"`
	Price         decimal.Decimal `json:"price"`
	IsOverride    bool            `json:"isOverride"`
}

// VirtualProduct is a virtual store's resale clone of an OriginalProduct.
// SellingPrice is BasePrice plus Commission.
type VirtualProduct struct {
	ID                string             `json:"id"`
	StoreID           string             `json:"storeId"`
	OriginalProductID string             `json:"originalProductId"`
	CreatedBy         string             `json:"createdBy"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	BasePrice         decimal.Decimal    `json:"basePrice"`
	Commission        decimal.Decimal    `json:"commission"`
	SellingPrice      decimal.Decimal    `json:"sellingPrice"`
	CombinationPrices []CombinationPrice `json:"combinationPrices"`
	Images            []string           `json:"images"`
	Status            ProductStatus      `json:"status"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// CreateVirtualProductRequest clones an original product into a store.
// CommissionOverrides maps combinationId to a commission replacing Commission.
type CreateVirtualProductRequest struct {
	StoreID             string                     `json:"storeId" binding:"required"`
	OriginalProductID   string                     `json:"originalProductId" binding:"required"`
	CreatedBy           string                     `json:"-"`
	Title               string                     `json:"title"`
	Description         string                     `json:"description"`
	Commission          decimal.Decimal            `json:"commission"`
	CommissionOverrides map[string]decimal.Decimal `json:"commissionOverrides"`
}

// UpdateVirtualProductRequest edits the fields a virtual store owns. Nil
// fields are left unchanged.
type UpdateVirtualProductRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Commission  *decimal.Decimal `json:"commission"`
	Status      *ProductStatus   `json:"status"`
}
