package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
)

// popularThreshold is the usage count above which an option is popular.
const popularThreshold = 10

// FilterIndexService builds the facet index shown next to product listings.
type FilterIndexService struct {
	repos       *repository.Repositories
	usage       UsageCounter
	categorizer Categorizer
	cache       FilterIndexCache
	timeout     time.Duration
}

// NewFilterIndexService constructs a FilterIndexService. A nil categorizer
// selects the keyword categorizer.
func NewFilterIndexService(repos *repository.Repositories, usage UsageCounter, categorizer Categorizer, timeout time.Duration) *FilterIndexService {
	if categorizer == nil {
		categorizer = NewKeywordCategorizer()
	}
	return &FilterIndexService{repos: repos, usage: usage, categorizer: categorizer, timeout: timeout}
}

// SetCache enables caching of built indexes.
func (s *FilterIndexService) SetCache(c FilterIndexCache) { s.cache = c }

// BuildFilterIndex returns the filterable templates in scope with their used
// options, grouped and ordered for display.
func (s *FilterIndexService) BuildFilterIndex(ctx context.Context, scope models.Scope, productType, category string) (*models.FilterIndex, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.cache != nil {
		index, ok, err := s.cache.Get(ctx, scope, productType, category)
		if err != nil {
			log.Warn().Err(err).Str("scope", scope.String()).Msg("Filter cache read failed")
		} else if ok {
			return index, nil
		}
	}

	templates, err := s.repos.Templates.List(ctx, models.TemplateQuery{
		Scope:          scope,
		ProductType:    productType,
		Category:       category,
		FilterableOnly: true,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(templates))
	for _, t := range templates {
		ids = append(ids, t.ID)
	}
	options, err := s.repos.Options.ListByTemplates(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byTemplate := distinctOptions(options)

	built := make([]*models.FilterTemplate, len(templates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, t := range templates {
		i, t := i, t
		g.Go(func() error {
			ft, err := s.buildTemplate(gctx, t, byTemplate[t.ID])
			if err != nil {
				return err
			}
			built[i] = ft
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := s.group(built)
	if s.cache != nil {
		if err := s.cache.Set(ctx, scope, productType, category, index); err != nil {
			log.Warn().Err(err).Str("scope", scope.String()).Msg("Filter cache write failed")
		}
	}
	return index, nil
}

// buildTemplate returns nil for a template without used options or range.
func (s *FilterIndexService) buildTemplate(ctx context.Context, t models.VariantTemplate, options []models.VariantOption) (*models.FilterTemplate, error) {
	ft := &models.FilterTemplate{
		VariantTemplate: t,
		Group:           s.categorizer.Group(t),
		Options:         []models.FilterOption{},
	}

	if len(options) > 0 {
		values := make([]string, 0, len(options))
		for _, o := range options {
			values = append(values, o.Value)
		}
		counts, err := s.usage.Counts(ctx, t.ID, values)
		if err != nil {
			return nil, err
		}
		for _, o := range options {
			n := counts[o.Value]
			if n <= 0 {
				continue
			}
			ft.Options = append(ft.Options, models.FilterOption{
				VariantOption: o,
				UsageCount:    n,
				IsPopular:     n > popularThreshold,
			})
		}
		sort.SliceStable(ft.Options, func(i, j int) bool {
			a, b := ft.Options[i], ft.Options[j]
			if a.IsPopular != b.IsPopular {
				return a.IsPopular
			}
			if a.UsageCount != b.UsageCount {
				return a.UsageCount > b.UsageCount
			}
			return a.SortOrder < b.SortOrder
		})
	}

	if t.InputType.IsNumeric() {
		lo, hi, ok, err := s.repos.Variants.ValueRange(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			ft.Range = &models.ValueRange{Min: lo, Max: hi}
		}
	}

	if len(ft.Options) == 0 && ft.Range == nil {
		return nil, nil
	}
	return ft, nil
}

// distinctOptions groups options by template with one option per value. A
// template-level option wins over the copies products made of it.
func distinctOptions(options []models.VariantOption) map[string][]models.VariantOption {
	out := make(map[string][]models.VariantOption)
	pos := make(map[[2]string]int, len(options))
	for _, o := range options {
		key := [2]string{o.TemplateID, o.Value}
		if i, ok := pos[key]; ok {
			if out[o.TemplateID][i].ProductID != "" && o.ProductID == "" {
				out[o.TemplateID][i] = o
			}
			continue
		}
		pos[key] = len(out[o.TemplateID])
		out[o.TemplateID] = append(out[o.TemplateID], o)
	}
	return out
}

func (s *FilterIndexService) group(built []*models.FilterTemplate) *models.FilterIndex {
	index := &models.FilterIndex{
		Groups:              []models.FilterGroup{},
		GroupedVariants:     make(map[string][]models.FilterTemplate),
		AvailableAttributes: []string{},
	}
	for _, ft := range built {
		if ft == nil {
			continue
		}
		index.GroupedVariants[ft.Group] = append(index.GroupedVariants[ft.Group], *ft)
		index.TotalVariants++
	}

	for name, templates := range index.GroupedVariants {
		sort.SliceStable(templates, func(i, j int) bool {
			return templates[i].FilterOrder < templates[j].FilterOrder
		})
		index.Groups = append(index.Groups, models.FilterGroup{
			Name:      name,
			Priority:  s.categorizer.Priority(name),
			Templates: templates,
		})
	}
	sort.Slice(index.Groups, func(i, j int) bool {
		if index.Groups[i].Priority != index.Groups[j].Priority {
			return index.Groups[i].Priority < index.Groups[j].Priority
		}
		return index.Groups[i].Name < index.Groups[j].Name
	})

	for _, g := range index.Groups {
		for _, t := range g.Templates {
			index.AvailableAttributes = append(index.AvailableAttributes, t.Name)
		}
	}
	return index
}

// QueryUsageCounter counts usage with one count query per value. It is used
// when no maintained counter is configured.
type QueryUsageCounter struct {
	variants *repository.ProductVariantRepository
}

// NewQueryUsageCounter creates a new QueryUsageCounter.
func NewQueryUsageCounter(variants *repository.ProductVariantRepository) *QueryUsageCounter {
	return &QueryUsageCounter{variants: variants}
}

func (c *QueryUsageCounter) Counts(ctx context.Context, templateID string, values []string) (map[string]int, error) {
	var mu sync.Mutex
	out := make(map[string]int, len(values))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for _, v := range values {
		v := v
		g.Go(func() error {
			n, err := c.variants.CountWithValue(gctx, templateID, v)
			if err != nil {
				return err
			}
			mu.Lock()
			out[v] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
