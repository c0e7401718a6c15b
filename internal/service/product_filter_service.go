package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/GTDGit/gtd_catalog/internal/combination"
	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

const (
	// DefaultAttributeQueryCap is the most variant rows one attribute filter may match.
	DefaultAttributeQueryCap = 1000

	defaultFilterLimit = 20
	maxFilterLimit     = 100
)

// ProductFilterService answers storefront product queries with attribute
// filters ANDed across templates.
type ProductFilterService struct {
	repos    *repository.Repositories
	queryCap int
	timeout  time.Duration
}

// NewProductFilterService constructs a ProductFilterService. queryCap <= 0
// selects DefaultAttributeQueryCap.
func NewProductFilterService(repos *repository.Repositories, queryCap int, timeout time.Duration) *ProductFilterService {
	if queryCap <= 0 {
		queryCap = DefaultAttributeQueryCap
	}
	return &ProductFilterService{repos: repos, queryCap: queryCap, timeout: timeout}
}

// Filter returns one page of products matching criteria. Attribute filters
// are resolved to product id sets independently and intersected, so the
// result does not depend on their order.
func (s *ProductFilterService) Filter(ctx context.Context, criteria models.FilterCriteria) (*models.FilterResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	page, limit := criteria.Page, criteria.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultFilterLimit
	}
	if limit > maxFilterLimit {
		limit = maxFilterLimit
	}
	sortBy := criteria.SortBy
	if sortBy == "" {
		sortBy = models.SortNewest
	}
	if !sortBy.Valid() {
		return nil, utils.ValidationError("INVALID_SORT", "unknown sort option %q", sortBy)
	}
	if pr := criteria.PriceRange; pr != nil && pr.Min != nil && pr.Max != nil && pr.Min.GreaterThan(*pr.Max) {
		return nil, utils.ValidationError("INVALID_PRICE_RANGE", "minPrice is greater than maxPrice")
	}

	empty := &models.FilterResult{Products: []models.OriginalProduct{}, CurrentPage: page, Limit: limit}

	queries := []docstore.Query{}
	if len(criteria.Attributes) > 0 {
		ids, err := s.matchingProducts(ctx, criteria.Attributes)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return empty, nil
		}
		queries = append(queries, docstore.Equal(docstore.AttrID, anyStrings(ids)...))
	}

	queries = append(queries, docstore.Equal("status", string(models.ProductStatusActive)))
	if criteria.StoreID != "" {
		queries = append(queries, docstore.Equal("storeId", criteria.StoreID))
	}
	if pr := criteria.PriceRange; pr != nil {
		if pr.Min != nil {
			queries = append(queries, docstore.GreaterThanEqual("basePrice", pr.Min.InexactFloat64()))
		}
		if pr.Max != nil {
			queries = append(queries, docstore.LessThanEqual("basePrice", pr.Max.InexactFloat64()))
		}
	}
	if criteria.Search != "" {
		queries = append(queries, docstore.Search("title", criteria.Search))
	}
	if criteria.Category != "" {
		queries = append(queries, docstore.Or(
			docstore.Contains("categories", criteria.Category),
			docstore.Equal("category", criteria.Category),
		))
	}
	queries = append(queries, sortQuery(sortBy), docstore.Limit(limit), docstore.Offset((page-1)*limit))

	products, total, err := s.repos.Products.List(ctx, queries...)
	if err != nil {
		return nil, err
	}
	return &models.FilterResult{
		Products:    products,
		Total:       total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

// matchingProducts intersects the product ids matched by each attribute filter.
func (s *ProductFilterService) matchingProducts(ctx context.Context, attrs []models.AttributeFilter) ([]string, error) {
	sets := make([]map[string]bool, len(attrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, a := range attrs {
		i, a := i, a
		g.Go(func() error {
			set, err := s.productsFor(gctx, a)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := sets[0]
	for _, set := range sets[1:] {
		if len(result) == 0 {
			break
		}
		next := make(map[string]bool, len(result))
		for id := range result {
			if set[id] {
				next[id] = true
			}
		}
		result = next
	}

	ids := make([]string, 0, len(result))
	for id := range result {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *ProductFilterService) productsFor(ctx context.Context, a models.AttributeFilter) (map[string]bool, error) {
	if len(a.Values) == 0 && a.Range == nil {
		return nil, utils.ValidationError("INVALID_ATTRIBUTE_FILTER", "attribute filter %s needs values or a range", a.TemplateID)
	}
	if r := a.Range; r != nil && r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return nil, utils.ValidationError("INVALID_ATTRIBUTE_FILTER", "range of %s has min above max", a.TemplateID)
	}

	t, err := s.repos.Templates.GetByID(ctx, a.TemplateID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			log.Debug().Str("template_id", a.TemplateID).Msg("Filter references unknown template")
			return map[string]bool{}, nil
		}
		return nil, err
	}

	var (
		variants []models.ProductVariant
		total    int
	)
	if a.Range != nil {
		variants, total, err = s.repos.Variants.FindByRange(ctx, t.ID, *a.Range, s.queryCap+1)
	} else {
		variants, total, err = s.repos.Variants.FindByTokens(ctx, t.ID, combination.Tokens(t.Name, a.Values), s.queryCap+1)
	}
	if err != nil {
		return nil, err
	}
	if total > s.queryCap {
		return nil, utils.ScaleLimitError("ATTRIBUTE_QUERY_LIMIT_EXCEEDED",
			"filter on %s matches %d variants, limit is %d", t.Name, total, s.queryCap)
	}

	set := make(map[string]bool, len(variants))
	for _, v := range variants {
		set[v.ProductID] = true
	}
	return set, nil
}

func sortQuery(sortBy models.SortOption) docstore.Query {
	switch sortBy {
	case models.SortPriceAsc:
		return docstore.OrderAsc("basePrice")
	case models.SortPriceDesc:
		return docstore.OrderDesc("basePrice")
	case models.SortPopular:
		return docstore.OrderDesc("popularity")
	case models.SortRating:
		return docstore.OrderDesc("rating")
	default:
		return docstore.OrderDesc(docstore.AttrCreatedAt)
	}
}

func anyStrings(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
