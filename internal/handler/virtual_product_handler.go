package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_catalog/internal/middleware"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/service"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

// VirtualProductHandler handles virtual store resale listings.
type VirtualProductHandler struct {
	virtualProducts *service.VirtualProductService
}

// NewVirtualProductHandler constructs a VirtualProductHandler.
func NewVirtualProductHandler(virtualProducts *service.VirtualProductService) *VirtualProductHandler {
	return &VirtualProductHandler{virtualProducts: virtualProducts}
}

// Create handles POST /v1/virtual-products
func (h *VirtualProductHandler) Create(c *gin.Context) {
	var req models.CreateVirtualProductRequest
	if !bindJSON(c, &req) {
		return
	}
	if !middleware.CanActFor(c, req.StoreID) {
		forbidden(c)
		return
	}
	req.CreatedBy = middleware.UserID(c)

	vp, err := h.virtualProducts.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create virtual product")
		return
	}
	utils.Success(c, 201, "Virtual product created", vp)
}

// List handles GET /v1/virtual-products?storeId=
func (h *VirtualProductHandler) List(c *gin.Context) {
	storeID := c.Query("storeId")
	if storeID == "" {
		utils.Error(c, 400, "STORE_REQUIRED", "storeId is required")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, total, err := h.virtualProducts.ListByStore(c.Request.Context(), storeID, page, limit)
	if err != nil {
		respondError(c, err, "Failed to retrieve virtual products")
		return
	}
	utils.SuccessWithPagination(c, 200, "Virtual products retrieved", items, page, limit, total)
}

// Get handles GET /v1/virtual-products/:id
func (h *VirtualProductHandler) Get(c *gin.Context) {
	vp, err := h.virtualProducts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve virtual product")
		return
	}
	utils.Success(c, 200, "Virtual product retrieved", vp)
}

// Update handles PUT /v1/virtual-products/:id
func (h *VirtualProductHandler) Update(c *gin.Context) {
	var req models.UpdateVirtualProductRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.authorize(c) {
		return
	}

	vp, err := h.virtualProducts.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to update virtual product")
		return
	}
	utils.Success(c, 200, "Virtual product updated", vp)
}

// Delete handles DELETE /v1/virtual-products/:id
func (h *VirtualProductHandler) Delete(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	id := c.Param("id")
	if err := h.virtualProducts.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete virtual product")
		return
	}
	utils.Success(c, 200, "Virtual product deleted", gin.H{"id": id})
}

// authorize loads the target listing and checks the caller owns its store.
func (h *VirtualProductHandler) authorize(c *gin.Context) bool {
	vp, err := h.virtualProducts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve virtual product")
		return false
	}
	if !middleware.CanActFor(c, vp.StoreID) {
		forbidden(c)
		return false
	}
	return true
}
