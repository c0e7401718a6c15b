package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dimensions of a shippable combination, in centimeters.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// VariantCombination is one purchasable cartesian-product row of a product.
// VariantValues maps templateId to the chosen value; VariantStrings holds the
// filter tokens in template order.
type VariantCombination struct {
	ID              string            `json:"id"`
	ProductID       string            `json:"productId"`
	VariantStrings  []string          `json:"variantStrings"`
	VariantValues   map[string]string `json:"variantValues"`
	DisplayName     string            `json:"displayName"`
	SKU             string            `json:"sku,omitempty"`
	Price           decimal.Decimal   `json:"price"`
	AdditionalPrice decimal.Decimal   `json:"additionalPrice"`
	StockQuantity   int               `json:"stockQuantity"`
	IsActive        bool              `json:"isActive"`
	Weight          *float64          `json:"weight,omitempty"`
	Dimensions      *Dimensions       `json:"dimensions,omitempty"`
	Images          []string          `json:"images,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// CombinationValue records that a combination holds Value for TemplateID.
type CombinationValue struct {
	ID            string `json:"id"`
	CombinationID string `json:"combinationId"`
	ProductID     string `json:"productId"`
	TemplateID    string `json:"templateId"`
	Value         string `json:"value"`
	Token         string `json:"token"`
}
