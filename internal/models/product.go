package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus enumerates the listing states of a product.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusArchived ProductStatus = "archived"
)

// Location is the geolocation of the owning store.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// OriginalProduct is a physical-store listing. It owns its variants,
// combinations and combination values.
type OriginalProduct struct {
	ID             string          `json:"id"`
	StoreID        string          `json:"storeId"`
	CreatedBy      string          `json:"createdBy"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	SKU            string          `json:"sku,omitempty"`
	BasePrice      decimal.Decimal `json:"basePrice"`
	Category       string          `json:"category,omitempty"`
	Subcategory    string          `json:"subcategory,omitempty"`
	ProductType    string          `json:"productType,omitempty"`
	Categories     []string        `json:"categories,omitempty"`
	HasVariants    bool            `json:"hasVariants"`
	VariantIDs     []string        `json:"variantIds"`
	CombinationIDs []string        `json:"combinationIds"`
	Images         []string        `json:"images"`
	Location       *Location       `json:"location,omitempty"`
	StockQuantity  int             `json:"stockQuantity"`
	Rating         float64         `json:"rating"`
	Popularity     int             `json:"popularity"`
	Status         ProductStatus   `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ProductDetail is a product with the rows it owns.
type ProductDetail struct {
	OriginalProduct
	Variants     []ProductVariant     `json:"variants"`
	Options      []VariantOption      `json:"options"`
	Combinations []VariantCombination `json:"combinations"`
}

// ImageUpload is an image sent with a create request. Data is base64 in JSON.
type ImageUpload struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// OptionInput overrides or adds an option for one product variant.
type OptionInput struct {
	Value           string          `json:"value" binding:"required"`
	Name            string          `json:"name"`
	ColorCode       string          `json:"colorCode"`
	AdditionalPrice decimal.Decimal `json:"additionalPrice"`
	IsDefault       bool            `json:"isDefault"`
	SortOrder       int             `json:"sortOrder"`
}

// VariantInput selects values of one template for a new product. When Options
// is empty the template-level options supply names and price deltas.
type VariantInput struct {
	TemplateID     string        `json:"templateId" binding:"required"`
	SelectedValues []string      `json:"selectedValues"`
	Options        []OptionInput `json:"options"`
	IsRequired     bool          `json:"isRequired"`
	SortOrder      int           `json:"sortOrder"`
}

// CombinationInput is one combination supplied by the client. VariantValues
// maps templateId to the chosen value.
type CombinationInput struct {
	VariantValues map[string]string `json:"variantValues" binding:"required"`
	SKU           string            `json:"sku"`
	Price         decimal.Decimal   `json:"price"`
	StockQuantity int               `json:"stockQuantity"`
	IsActive      *bool             `json:"isActive"`
	Weight        *float64          `json:"weight"`
	Dimensions    *Dimensions       `json:"dimensions"`
	Images        []ImageUpload     `json:"images"`
}

// CreateProductRequest is the input of the product write pipeline. When
// HasVariants is set and Combinations is empty the combinations are generated.
type CreateProductRequest struct {
	RequestID     string             `json:"requestId"`
	StoreID       string             `json:"storeId"`
	CreatedBy     string             `json:"-"`
	Title         string             `json:"title" binding:"required"`
	Description   string             `json:"description"`
	SKU           string             `json:"sku"`
	BasePrice     decimal.Decimal    `json:"basePrice"`
	Category      string             `json:"category"`
	Subcategory   string             `json:"subcategory"`
	ProductType   string             `json:"productType"`
	Categories    []string           `json:"categories"`
	HasVariants   bool               `json:"hasVariants"`
	Images        []ImageUpload      `json:"images"`
	Location      *Location          `json:"location"`
	StockQuantity int                `json:"stockQuantity"`
	Status        ProductStatus      `json:"status"`
	AutoSKU       *bool              `json:"autoSku"`
	Variants      []VariantInput     `json:"variants"`
	Combinations  []CombinationInput `json:"combinations"`
}

// GenerateCombinationsRequest previews the combinations of a variant
// selection without writing anything.
type GenerateCombinationsRequest struct {
	BasePrice decimal.Decimal `json:"basePrice"`
	SKUPrefix string          `json:"skuPrefix"`
	AutoSKU   *bool           `json:"autoSku"`
	Variants  []VariantInput  `json:"variants" binding:"required"`
}
