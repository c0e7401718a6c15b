package repository

import "github.com/GTDGit/gtd_catalog/internal/docstore"

// Repositories groups the repositories of every catalog collection.
type Repositories struct {
	Products        *ProductRepository
	Variants        *ProductVariantRepository
	Options         *OptionRepository
	Templates       *TemplateRepository
	Combinations    *CombinationRepository
	VirtualProducts *VirtualProductRepository
}

// NewRepositories builds every repository over one store.
func NewRepositories(store docstore.Store) *Repositories {
	return &Repositories{
		Products:        NewProductRepository(store),
		Variants:        NewProductVariantRepository(store),
		Options:         NewOptionRepository(store),
		Templates:       NewTemplateRepository(store),
		Combinations:    NewCombinationRepository(store),
		VirtualProducts: NewVirtualProductRepository(store),
	}
}
