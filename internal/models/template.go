package models

// CreateTemplateRequest creates a template together with its template-level options.
type CreateTemplateRequest struct {
	ID           string        `json:"id"`
	Name         string        `json:"name" binding:"required"`
	Description  string        `json:"description"`
	InputType    InputType     `json:"inputType" binding:"required"`
	IsRequired   bool          `json:"isRequired"`
	IsFilterable bool          `json:"isFilterable"`
	FilterGroup  string        `json:"filterGroup"`
	FilterOrder  int           `json:"filterOrder"`
	SortOrder    int           `json:"sortOrder"`
	Type         string        `json:"type"`
	MinValue     *float64      `json:"minValue"`
	MaxValue     *float64      `json:"maxValue"`
	Step         *float64      `json:"step"`
	Unit         string        `json:"unit"`
	ProductTypes []string      `json:"productTypes"`
	Categories   []string      `json:"categories"`
	StoreID      string        `json:"storeId"`
	Options      []OptionInput `json:"options"`
}

// TemplateQuery narrows a template listing. Empty fields match everything.
type TemplateQuery struct {
	Scope          Scope
	ProductType    string
	Category       string
	FilterableOnly bool
}
