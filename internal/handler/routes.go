package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_catalog/internal/middleware"
)

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health         *HealthHandler
	Catalog        *CatalogHandler
	Product        *ProductHandler
	VirtualProduct *VirtualProductHandler
}

// RegisterRoutes registers all routes. Reads are public; writes require a JWT.
func RegisterRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	v1 := router.Group("/v1")
	auth := jwtMiddleware.Handle()

	v1.GET("/health", handlers.Health.GetHealth)

	// Taxonomy and templates
	v1.GET("/catalog/taxonomy", handlers.Catalog.GetTaxonomy)
	v1.GET("/catalog/recommended-templates", handlers.Catalog.GetRecommendedTemplates)
	v1.GET("/templates", handlers.Catalog.ListTemplates)
	v1.POST("/templates", auth, handlers.Catalog.CreateTemplate)
	v1.GET("/templates/:id/options", handlers.Catalog.ListOptions)

	// Products
	v1.POST("/combinations/generate", handlers.Product.GenerateCombinations)
	v1.GET("/products", handlers.Product.ListProducts)
	v1.GET("/products/:id", handlers.Product.GetProduct)
	v1.POST("/products", auth, handlers.Product.CreateProduct)
	v1.DELETE("/products/:id", auth, handlers.Product.DeleteProduct)
	v1.GET("/filters", handlers.Product.GetFilters)

	// Virtual store listings
	v1.GET("/virtual-products", handlers.VirtualProduct.List)
	v1.GET("/virtual-products/:id", handlers.VirtualProduct.Get)
	v1.POST("/virtual-products", auth, handlers.VirtualProduct.Create)
	v1.PUT("/virtual-products/:id", auth, handlers.VirtualProduct.Update)
	v1.DELETE("/virtual-products/:id", auth, handlers.VirtualProduct.Delete)
}
