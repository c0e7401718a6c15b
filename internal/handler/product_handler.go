package handler

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/middleware"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/service"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

const (
	attrParamPrefix  = "attr."
	rangeParamPrefix = "range."
)

// ProductHandler handles product, combination and filter HTTP endpoints.
type ProductHandler struct {
	products *service.ProductService
	filter   *service.ProductFilterService
	index    *service.FilterIndexService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(products *service.ProductService, filter *service.ProductFilterService, index *service.FilterIndexService) *ProductHandler {
	return &ProductHandler{products: products, filter: filter, index: index}
}

// ListProducts handles GET /v1/products
//
// Attribute filters use attr.{templateId}=v1,v2 (any value matches) and
// range.{templateId}=min:max (either bound may be empty). Different
// attributes are ANDed.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	criteria, err := parseFilterCriteria(c)
	if err != nil {
		respondError(c, err, "Invalid filter")
		return
	}

	result, err := h.filter.Filter(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, err, "Failed to retrieve products")
		return
	}
	utils.SuccessWithPagination(c, 200, "Products retrieved", result.Products, result.CurrentPage, result.Limit, result.Total)
}

// GetProduct handles GET /v1/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	detail, err := h.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve product")
		return
	}
	utils.Success(c, 200, "Product retrieved", detail)
}

// CreateProduct handles POST /v1/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.StoreID == "" {
		req.StoreID = middleware.StoreID(c, "")
	} else if !middleware.CanActFor(c, req.StoreID) {
		forbidden(c)
		return
	}
	if req.RequestID == "" {
		req.RequestID = c.GetHeader("Idempotency-Key")
	}
	req.CreatedBy = middleware.UserID(c)

	detail, err := h.products.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create product")
		return
	}
	utils.Success(c, 201, "Product created", detail)
}

// DeleteProduct handles DELETE /v1/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	detail, err := h.products.GetProduct(ctx, id)
	if err != nil {
		respondError(c, err, "Failed to delete product")
		return
	}
	if !middleware.CanActFor(c, detail.StoreID) {
		forbidden(c)
		return
	}
	if err := h.products.DeleteProduct(ctx, id); err != nil {
		respondError(c, err, "Failed to delete product")
		return
	}
	utils.Success(c, 200, "Product deleted", gin.H{"id": id})
}

// GenerateCombinations handles POST /v1/combinations/generate
func (h *ProductHandler) GenerateCombinations(c *gin.Context) {
	var req models.GenerateCombinationsRequest
	if !bindJSON(c, &req) {
		return
	}

	combos, err := h.products.PreviewCombinations(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to generate combinations")
		return
	}
	utils.Success(c, 200, "Combinations generated", gin.H{
		"combinations": combos,
		"total":        len(combos),
	})
}

// GetFilters handles GET /v1/filters
func (h *ProductHandler) GetFilters(c *gin.Context) {
	scope := models.ScopeFor(c.Query("storeId"))
	index, err := h.index.BuildFilterIndex(c.Request.Context(), scope, c.Query("productType"), c.Query("category"))
	if err != nil {
		respondError(c, err, "Failed to build filters")
		return
	}
	utils.Success(c, 200, "Filters retrieved", index)
}

func parseFilterCriteria(c *gin.Context) (models.FilterCriteria, error) {
	criteria := models.FilterCriteria{
		StoreID:  c.Query("storeId"),
		Search:   strings.TrimSpace(c.Query("search")),
		Category: c.Query("category"),
		SortBy:   models.SortOption(c.Query("sortBy")),
	}
	if page := c.Query("page"); page != "" {
		p, err := strconv.Atoi(page)
		if err != nil {
			return criteria, utils.ValidationError("INVALID_PAGE", "page must be a number")
		}
		criteria.Page = p
	}
	if limit := c.Query("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil {
			return criteria, utils.ValidationError("INVALID_LIMIT", "limit must be a number")
		}
		criteria.Limit = l
	}

	minPrice, err := queryDecimal(c, "minPrice")
	if err != nil {
		return criteria, err
	}
	maxPrice, err := queryDecimal(c, "maxPrice")
	if err != nil {
		return criteria, err
	}
	if minPrice != nil || maxPrice != nil {
		criteria.PriceRange = &models.PriceRange{Min: minPrice, Max: maxPrice}
	}

	query := c.Request.URL.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch {
		case strings.HasPrefix(key, attrParamPrefix):
			templateID := strings.TrimPrefix(key, attrParamPrefix)
			var values []string
			for _, raw := range query[key] {
				for _, v := range strings.Split(raw, ",") {
					if v = strings.TrimSpace(v); v != "" {
						values = append(values, v)
					}
				}
			}
			criteria.Attributes = append(criteria.Attributes, models.AttributeFilter{TemplateID: templateID, Values: values})
		case strings.HasPrefix(key, rangeParamPrefix):
			templateID := strings.TrimPrefix(key, rangeParamPrefix)
			r, err := parseRange(query.Get(key))
			if err != nil {
				return criteria, utils.ValidationError("INVALID_ATTRIBUTE_FILTER", "%s: %v", key, err)
			}
			criteria.Attributes = append(criteria.Attributes, models.AttributeFilter{TemplateID: templateID, Range: r})
		}
	}
	return criteria, nil
}

// parseRange reads "min:max" where either side may be empty.
func parseRange(raw string) (*models.NumericRange, error) {
	lo, hi, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, strconv.ErrSyntax
	}
	r := &models.NumericRange{}
	if lo = strings.TrimSpace(lo); lo != "" {
		v, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return nil, err
		}
		r.Min = &v
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		v, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return nil, err
		}
		r.Max = &v
	}
	return r, nil
}

func queryDecimal(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, utils.ValidationError("INVALID_PRICE_RANGE", "%s must be a number", key)
	}
	return &d, nil
}
