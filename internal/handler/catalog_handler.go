package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_catalog/internal/middleware"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/service"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

// CatalogHandler serves the taxonomy and variant template endpoints.
type CatalogHandler struct {
	templates *service.TemplateService
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(templates *service.TemplateService) *CatalogHandler {
	return &CatalogHandler{templates: templates}
}

// GetTaxonomy handles GET /v1/catalog/taxonomy
func (h *CatalogHandler) GetTaxonomy(c *gin.Context) {
	utils.Success(c, 200, "Taxonomy retrieved", h.templates.Taxonomy())
}

// GetRecommendedTemplates handles GET /v1/catalog/recommended-templates
func (h *CatalogHandler) GetRecommendedTemplates(c *gin.Context) {
	category := c.Query("category")
	subcategory := c.Query("subcategory")
	productType := c.Query("productType")
	if category == "" || subcategory == "" || productType == "" {
		utils.Error(c, 400, "INVALID_REQUEST", "category, subcategory and productType are required")
		return
	}

	templates, err := h.templates.RecommendedTemplates(c.Request.Context(), category, subcategory, productType)
	if err != nil {
		respondError(c, err, "Failed to retrieve recommended templates")
		return
	}
	utils.Success(c, 200, "Recommended templates retrieved", templates)
}

// ListTemplates handles GET /v1/templates
func (h *CatalogHandler) ListTemplates(c *gin.Context) {
	q := models.TemplateQuery{
		Scope:          models.ScopeFor(c.Query("storeId")),
		ProductType:    c.Query("productType"),
		Category:       c.Query("category"),
		FilterableOnly: c.Query("filterable") == "true",
	}
	templates, err := h.templates.ListTemplates(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "Failed to retrieve templates")
		return
	}
	utils.Success(c, 200, "Templates retrieved", templates)
}

// CreateTemplate handles POST /v1/templates
func (h *CatalogHandler) CreateTemplate(c *gin.Context) {
	var req models.CreateTemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	// Store-bound tokens only create templates for their own store.
	if req.StoreID == "" {
		req.StoreID = middleware.StoreID(c, "")
	} else if !middleware.CanActFor(c, req.StoreID) {
		forbidden(c)
		return
	}

	created, err := h.templates.CreateTemplate(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create template")
		return
	}
	utils.Success(c, 201, "Template created", created)
}

// ListOptions handles GET /v1/templates/:id/options
func (h *CatalogHandler) ListOptions(c *gin.Context) {
	options, err := h.templates.ListOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve options")
		return
	}
	utils.Success(c, 200, "Options retrieved", options)
}
