package repository

import (
	"context"

	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
)

// TemplateRepository handles data access for variant templates.
type TemplateRepository struct {
	store docstore.Store
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(store docstore.Store) *TemplateRepository {
	return &TemplateRepository{store: store}
}

// Create inserts t. An empty ID is assigned by the store.
func (r *TemplateRepository) Create(ctx context.Context, t *models.VariantTemplate) error {
	doc, err := r.store.CreateDocument(ctx, CollectionVariantTemplates, t.ID, templateData(t))
	if err != nil {
		return translate(err, "variant template", t.ID)
	}
	*t = templateFromDocument(doc)
	return nil
}

// GetByID returns a template by id.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (models.VariantTemplate, error) {
	return getMapped(ctx, r.store, CollectionVariantTemplates, "variant template", id, templateFromDocument)
}

// GetByIDs returns the templates with the given ids, keyed by id. Missing ids are omitted.
func (r *TemplateRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.VariantTemplate, error) {
	out := make(map[string]models.VariantTemplate, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	templates, err := listAllMapped(ctx, r.store, CollectionVariantTemplates, templateFromDocument,
		docstore.Equal(docstore.AttrID, anySlice(ids)...))
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		out[t.ID] = t
	}
	return out, nil
}

// List returns the templates matching q, ordered by sortOrder.
func (r *TemplateRepository) List(ctx context.Context, q models.TemplateQuery) ([]models.VariantTemplate, error) {
	queries := ScopeQueries(q)
	queries = append(queries, docstore.OrderAsc("sortOrder"))
	return listAllMapped(ctx, r.store, CollectionVariantTemplates, templateFromDocument, queries...)
}

// ListAll returns every template regardless of scope.
func (r *TemplateRepository) ListAll(ctx context.Context) ([]models.VariantTemplate, error) {
	return listAllMapped(ctx, r.store, CollectionVariantTemplates, templateFromDocument)
}

// ScopeQueries renders a template query. Store, product type and category
// each match either the given value or templates that leave the field unset.
func ScopeQueries(q models.TemplateQuery) []docstore.Query {
	var queries []docstore.Query
	if q.FilterableOnly {
		queries = append(queries, docstore.Equal("isFilterable", true))
	}
	if storeID, ok := q.Scope.StoreID(); ok {
		queries = append(queries, docstore.Or(docstore.Equal("storeId", storeID), docstore.IsNull("storeId")))
	} else {
		queries = append(queries, docstore.IsNull("storeId"))
	}
	if q.ProductType != "" {
		queries = append(queries, docstore.Or(docstore.Contains("productTypes", q.ProductType), docstore.IsNull("productTypes")))
	}
	if q.Category != "" {
		queries = append(queries, docstore.Or(docstore.Contains("categories", q.Category), docstore.IsNull("categories")))
	}
	return queries
}

// Delete removes a template.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	return deleteDocument(ctx, r.store, CollectionVariantTemplates, "variant template", id)
}

func templateData(t *models.VariantTemplate) map[string]any {
	return map[string]any{
		"name":         t.Name,
		"description":  t.Description,
		"inputType":    string(t.InputType),
		"isRequired":   t.IsRequired,
		"isFilterable": t.IsFilterable,
		"filterGroup":  t.FilterGroup,
		"filterOrder":  t.FilterOrder,
		"sortOrder":    t.SortOrder,
		"type":         t.Type,
		"minValue":     optionalFloat(t.MinValue),
		"maxValue":     optionalFloat(t.MaxValue),
		"step":         optionalFloat(t.Step),
		"unit":         t.Unit,
		"productTypes": stringsOrEmpty(t.ProductTypes),
		"categories":   stringsOrEmpty(t.Categories),
		"storeId":      optionalString(t.StoreID),
	}
}

func templateFromDocument(doc *docstore.Document) models.VariantTemplate {
	return models.VariantTemplate{
		ID:           doc.ID,
		Name:         doc.String("name"),
		Description:  doc.String("description"),
		InputType:    models.InputType(doc.String("inputType")),
		IsRequired:   doc.Bool("isRequired"),
		IsFilterable: doc.Bool("isFilterable"),
		FilterGroup:  doc.String("filterGroup"),
		FilterOrder:  doc.Int("filterOrder"),
		SortOrder:    doc.Int("sortOrder"),
		Type:         doc.String("type"),
		MinValue:     doc.OptionalFloat("minValue"),
		MaxValue:     doc.OptionalFloat("maxValue"),
		Step:         doc.OptionalFloat("step"),
		Unit:         doc.String("unit"),
		ProductTypes: doc.Strings("productTypes"),
		Categories:   doc.Strings("categories"),
		StoreID:      stringPtr(doc, "storeId"),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
