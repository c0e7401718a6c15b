package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InputType enumerates how a variant template is presented and filtered.
type InputType string

const (
	InputTypeSelect      InputType = "select"
	InputTypeMultiselect InputType = "multiselect"
	InputTypeRange       InputType = "range"
	InputTypeColor       InputType = "color"
	InputTypeText        InputType = "text"
)

// Valid reports whether t is a known input type.
func (t InputType) Valid() bool {
	switch t {
	case InputTypeSelect, InputTypeMultiselect, InputTypeRange, InputTypeColor, InputTypeText:
		return true
	}
	return false
}

// IsNumeric reports whether values of this input type are filtered by range.
func (t InputType) IsNumeric() bool {
	return t == InputTypeRange
}

// VariantTemplate is a reusable attribute definition such as Color or Size.
// A nil StoreID makes the template global.
type VariantTemplate struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	InputType    InputType `json:"inputType"`
	IsRequired   bool      `json:"isRequired"`
	IsFilterable bool      `json:"isFilterable"`
	FilterGroup  string    `json:"filterGroup,omitempty"`
	FilterOrder  int       `json:"filterOrder"`
	SortOrder    int       `json:"sortOrder"`
	Type         string    `json:"type,omitempty"`
	MinValue     *float64  `json:"minValue,omitempty"`
	MaxValue     *float64  `json:"maxValue,omitempty"`
	Step         *float64  `json:"step,omitempty"`
	Unit         string    `json:"unit,omitempty"`
	ProductTypes []string  `json:"productTypes,omitempty"`
	Categories   []string  `json:"categories,omitempty"`
	StoreID      *string   `json:"storeId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// VariantOption is one selectable value of a template. Template-level options
// have an empty ProductID; options written for a product carry ProductID and
// VariantID.
type VariantOption struct {
	ID              string          `json:"id"`
	TemplateID      string          `json:"templateId"`
	ProductID       string          `json:"productId,omitempty"`
	VariantID       string          `json:"variantId,omitempty"`
	Value           string          `json:"value"`
	Name            string          `json:"name"`
	ColorCode       string          `json:"colorCode,omitempty"`
	AdditionalPrice decimal.Decimal `json:"additionalPrice"`
	IsDefault       bool            `json:"isDefault"`
	SortOrder       int             `json:"sortOrder"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// DisplayName returns Name, falling back to Value.
func (o VariantOption) DisplayName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Value
}

// ProductVariant binds a template to one product with the values selected for it.
// Tokens hold the filter tokens of Values; MinValue/MaxValue are set for numeric
// templates.
type ProductVariant struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"productId"`
	TemplateID string    `json:"templateId"`
	Name       string    `json:"name"`
	InputType  InputType `json:"inputType"`
	Values     []string  `json:"values"`
	Tokens     []string  `json:"tokens"`
	MinValue   *float64  `json:"minValue,omitempty"`
	MaxValue   *float64  `json:"maxValue,omitempty"`
	IsRequired bool      `json:"isRequired"`
	SortOrder  int       `json:"sortOrder"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Scope selects which templates apply: every global template, plus the
// templates of one store when store-specific.
type Scope struct {
	storeID string
}

// GlobalScope matches only templates without a store.
func GlobalScope() Scope { return Scope{} }

// StoreScope matches global templates and the templates of storeID.
func StoreScope(storeID string) Scope { return Scope{storeID: storeID} }

// ScopeFor returns StoreScope(storeID), or GlobalScope when storeID is empty.
func ScopeFor(storeID string) Scope {
	if storeID == "" {
		return GlobalScope()
	}
	return StoreScope(storeID)
}

// StoreID returns the store of a store-specific scope.
func (s Scope) StoreID() (string, bool) {
	return s.storeID, s.storeID != ""
}

func (s Scope) IsGlobal() bool { return s.storeID == "" }

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "store:" + s.storeID
}
