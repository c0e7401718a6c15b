package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_catalog/internal/catalog"
	"github.com/GTDGit/gtd_catalog/internal/combination"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

// TemplateService manages variant templates, their template-level options
// and the built-in taxonomy.
type TemplateService struct {
	repos *repository.Repositories
	cache FilterIndexCache
}

// NewTemplateService constructs a TemplateService.
func NewTemplateService(repos *repository.Repositories) *TemplateService {
	return &TemplateService{repos: repos}
}

// SetFilterCache makes template writes invalidate cached filter indexes.
func (s *TemplateService) SetFilterCache(c FilterIndexCache) { s.cache = c }

// TemplateWithOptions is a template and its template-level options.
type TemplateWithOptions struct {
	models.VariantTemplate
	Options []models.VariantOption `json:"options"`
}

// CreateTemplate stores a template with its options. Options written before
// a failure are removed again.
func (s *TemplateService) CreateTemplate(ctx context.Context, req *models.CreateTemplateRequest) (*TemplateWithOptions, error) {
	if err := validateTemplateRequest(req); err != nil {
		return nil, err
	}

	t := models.VariantTemplate{
		ID:           req.ID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		InputType:    req.InputType,
		IsRequired:   req.IsRequired,
		IsFilterable: req.IsFilterable,
		FilterGroup:  req.FilterGroup,
		FilterOrder:  req.FilterOrder,
		SortOrder:    req.SortOrder,
		Type:         req.Type,
		MinValue:     req.MinValue,
		MaxValue:     req.MaxValue,
		Step:         req.Step,
		Unit:         req.Unit,
		ProductTypes: req.ProductTypes,
		Categories:   req.Categories,
	}
	if req.StoreID != "" {
		storeID := req.StoreID
		t.StoreID = &storeID
	}

	options := make([]models.VariantOption, 0, len(req.Options))
	for i, in := range req.Options {
		o := models.VariantOption{
			Value:           strings.TrimSpace(in.Value),
			Name:            in.Name,
			ColorCode:       in.ColorCode,
			AdditionalPrice: in.AdditionalPrice,
			IsDefault:       in.IsDefault,
			SortOrder:       in.SortOrder,
		}
		if o.SortOrder == 0 {
			o.SortOrder = i
		}
		options = append(options, o)
	}

	created, err := s.writeTemplate(ctx, t, options)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	log.Info().Str("template_id", created.ID).Int("options", len(created.Options)).Msg("Variant template created")
	return created, nil
}

// ListTemplates returns the templates matching q.
func (s *TemplateService) ListTemplates(ctx context.Context, q models.TemplateQuery) ([]models.VariantTemplate, error) {
	return s.repos.Templates.List(ctx, q)
}

// ListOptions returns the template-level options of a template.
func (s *TemplateService) ListOptions(ctx context.Context, templateID string) ([]models.VariantOption, error) {
	if _, err := s.repos.Templates.GetByID(ctx, templateID); err != nil {
		return nil, err
	}
	return s.repos.Options.ListTemplateLevel(ctx, templateID)
}

// Taxonomy returns the built-in category tree.
func (s *TemplateService) Taxonomy() []catalog.Category {
	return catalog.Taxonomy()
}

// RecommendedTemplates returns the stored templates recommended for a product
// type, in recommendation order. Recommended templates that were never seeded
// are skipped.
func (s *TemplateService) RecommendedTemplates(ctx context.Context, category, subcategory, productType string) ([]models.VariantTemplate, error) {
	ids, ok := catalog.RecommendedTemplates(category, subcategory, productType)
	if !ok {
		return nil, utils.NotFoundError("product type", strings.Join([]string{category, subcategory, productType}, "/"))
	}
	stored, err := s.repos.Templates.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.VariantTemplate, 0, len(ids))
	for _, id := range ids {
		if t, ok := stored[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// SeedTemplates writes the built-in templates and options. Rows that already
// exist are left as they are, so seeding can run on every start.
func (s *TemplateService) SeedTemplates(ctx context.Context) (int, error) {
	created := 0
	for _, seed := range catalog.Seeds() {
		t := seed.Template
		if err := s.repos.Templates.Create(ctx, &t); err != nil {
			if !errors.Is(err, utils.ErrConflict) {
				return created, fmt.Errorf("seed template %s: %w", seed.Template.ID, err)
			}
		} else {
			created++
		}
		for _, o := range seed.Options {
			if err := s.repos.Options.Create(ctx, &o); err != nil && !errors.Is(err, utils.ErrConflict) {
				return created, fmt.Errorf("seed option %s: %w", o.ID, err)
			}
		}
	}
	if created > 0 {
		s.invalidate(ctx)
	}
	log.Info().Int("created", created).Msg("Built-in templates seeded")
	return created, nil
}

func (s *TemplateService) writeTemplate(ctx context.Context, t models.VariantTemplate, options []models.VariantOption) (*TemplateWithOptions, error) {
	if err := s.repos.Templates.Create(ctx, &t); err != nil {
		return nil, err
	}
	ledger := NewRollbackLedger()
	templateID := t.ID
	ledger.Record("template "+templateID, func(ctx context.Context) error {
		return s.repos.Templates.Delete(ctx, templateID)
	})

	out := &TemplateWithOptions{VariantTemplate: t, Options: make([]models.VariantOption, 0, len(options))}
	for _, o := range options {
		o.TemplateID = templateID
		o.ID = catalog.OptionID(templateID, o.Value)
		optionID := o.ID
		ledger.Record("option "+optionID, func(ctx context.Context) error {
			if err := s.repos.Options.Delete(ctx, optionID); err != nil && !isNotFound(err) {
				return err
			}
			return nil
		})
		if err := s.repos.Options.Create(ctx, &o); err != nil {
			ledger.Rollback(context.WithoutCancel(ctx))
			return nil, utils.PartialWriteError("failed to create template options", err)
		}
		out.Options = append(out.Options, o)
	}
	return out, nil
}

func (s *TemplateService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(context.WithoutCancel(ctx)); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate filter cache")
	}
}

func validateTemplateRequest(req *models.CreateTemplateRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return utils.ValidationError("NAME_REQUIRED", "name is required")
	}
	if !req.InputType.Valid() {
		return utils.ValidationError("INVALID_INPUT_TYPE", "unknown inputType %q", req.InputType)
	}
	if req.MinValue != nil && req.MaxValue != nil && *req.MinValue > *req.MaxValue {
		return utils.ValidationError("INVALID_RANGE", "minValue is greater than maxValue")
	}
	if req.Step != nil && *req.Step <= 0 {
		return utils.ValidationError("INVALID_RANGE", "step must be positive")
	}
	if !req.InputType.IsNumeric() && len(req.Options) == 0 {
		return utils.ValidationError("OPTIONS_REQUIRED", "%s templates need at least one option", req.InputType)
	}
	seen := make(map[string]bool, len(req.Options))
	for _, o := range req.Options {
		v := strings.TrimSpace(o.Value)
		if v == "" {
			return utils.ValidationError("INVALID_OPTION", "option value must not be empty")
		}
		key := combination.Slug(v)
		if seen[key] {
			return utils.ValidationError("DUPLICATE_OPTION", "option %q duplicates another option", v)
		}
		seen[key] = true
	}
	return nil
}
