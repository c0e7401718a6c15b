package models

import "github.com/shopspring/decimal"

// SortOption orders filter results.
type SortOption string

const (
	SortNewest    SortOption = "newest"
	SortPriceAsc  SortOption = "price_asc"
	SortPriceDesc SortOption = "price_desc"
	SortPopular   SortOption = "popular"
	SortRating    SortOption = "rating"
)

// Valid reports whether s is a known sort option.
func (s SortOption) Valid() bool {
	switch s {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortPopular, SortRating:
		return true
	}
	return false
}

// NumericRange is an inclusive range; a nil bound is open.
type NumericRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// AttributeFilter selects products having any of Values for a template, or a
// numeric value overlapping Range.
type AttributeFilter struct {
	TemplateID string        `json:"templateId"`
	Values     []string      `json:"values,omitempty"`
	Range      *NumericRange `json:"range,omitempty"`
}

// PriceRange bounds the product base price; a nil bound is open.
type PriceRange struct {
	Min *decimal.Decimal `json:"min,omitempty"`
	Max *decimal.Decimal `json:"max,omitempty"`
}

// FilterCriteria is a storefront product query. Attribute filters are ANDed.
type FilterCriteria struct {
	StoreID    string            `json:"storeId,omitempty"`
	Attributes []AttributeFilter `json:"attributes,omitempty"`
	PriceRange *PriceRange       `json:"priceRange,omitempty"`
	Search     string            `json:"search,omitempty"`
	Category   string            `json:"category,omitempty"`
	SortBy     SortOption        `json:"sortBy,omitempty"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

// FilterResult is one page of filtered products.
type FilterResult struct {
	Products    []OriginalProduct `json:"products"`
	Total       int               `json:"total"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	Limit       int               `json:"limit"`
}

// FilterOption is a facet value with its usage across product variants.
type FilterOption struct {
	VariantOption
	UsageCount int  `json:"usageCount"`
	IsPopular  bool `json:"isPopular"`
}

// ValueRange is the observed min and max of a numeric template.
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterTemplate is a template as it appears in the filter index.
type FilterTemplate struct {
	VariantTemplate
	Group   string         `json:"group"`
	Options []FilterOption `json:"options"`
	Range   *ValueRange    `json:"range,omitempty"`
}

// FilterGroup is a display group of templates.
type FilterGroup struct {
	Name      string           `json:"name"`
	Priority  int              `json:"priority"`
	Templates []FilterTemplate `json:"templates"`
}

// FilterIndex is the facet index shown next to a product listing. Groups are
// ordered by priority; GroupedVariants holds the same templates keyed by group.
type FilterIndex struct {
	Groups              []FilterGroup               `json:"groups"`
	GroupedVariants     map[string][]FilterTemplate `json:"groupedVariants"`
	TotalVariants       int                         `json:"totalVariants"`
	AvailableAttributes []string                    `json:"availableAttributes"`
}
