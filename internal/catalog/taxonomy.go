// Package catalog holds the built-in product taxonomy and the variant
// templates recommended for each product type.
package catalog

import "strings"

// ProductType is a leaf of the taxonomy with the templates sellers are
// offered when listing it.
type ProductType struct {
	Name                 string   `json:"name"`
	RecommendedTemplates []string `json:"recommendedTemplates"`
}

type Subcategory struct {
	Name         string        `json:"name"`
	ProductTypes []ProductType `json:"productTypes"`
}

type Category struct {
	Name          string        `json:"name"`
	Subcategories []Subcategory `json:"subcategories"`
}

var taxonomy = []Category{
	{
		Name: "Fashion",
		Subcategories: []Subcategory{
			{Name: "Clothing", ProductTypes: []ProductType{
				{Name: "T-Shirt", RecommendedTemplates: []string{TemplateSize, TemplateColor, TemplateMaterial, TemplateBrand}},
				{Name: "Jeans", RecommendedTemplates: []string{TemplateWaistSize, TemplateColor, TemplateFabric, TemplateBrand}},
				{Name: "Dress", RecommendedTemplates: []string{TemplateSize, TemplateColor, TemplateFabric}},
			}},
			{Name: "Footwear", ProductTypes: []ProductType{
				{Name: "Sneakers", RecommendedTemplates: []string{TemplateShoeSize, TemplateColor, TemplateMaterial, TemplateBrand}},
				{Name: "Sandals", RecommendedTemplates: []string{TemplateShoeSize, TemplateColor}},
			}},
		},
	},
	{
		Name: "Electronics",
		Subcategories: []Subcategory{
			{Name: "Phones", ProductTypes: []ProductType{
				{Name: "Smartphone", RecommendedTemplates: []string{TemplateStorage, TemplateRAM, TemplateColor, TemplateScreenSize, TemplateBattery, TemplateBrand}},
			}},
			{Name: "Computers", ProductTypes: []ProductType{
				{Name: "Laptop", RecommendedTemplates: []string{TemplateCPU, TemplateRAM, TemplateStorage, TemplateScreenSize, TemplateConnectivity, TemplateBrand}},
				{Name: "Monitor", RecommendedTemplates: []string{TemplateScreenSize, TemplateResolution, TemplateConnectivity, TemplateBrand}},
			}},
			{Name: "Audio", ProductTypes: []ProductType{
				{Name: "Headphones", RecommendedTemplates: []string{TemplateColor, TemplateConnectivity, TemplateBattery, TemplateBrand}},
			}},
		},
	},
	{
		Name: "Home & Living",
		Subcategories: []Subcategory{
			{Name: "Furniture", ProductTypes: []ProductType{
				{Name: "Sofa", RecommendedTemplates: []string{TemplateColor, TemplateFabric, TemplateSeats}},
				{Name: "Table", RecommendedTemplates: []string{TemplateMaterial, TemplateColor}},
			}},
			{Name: "Bedding", ProductTypes: []ProductType{
				{Name: "Bed Sheet", RecommendedTemplates: []string{TemplateBedSize, TemplateColor, TemplateFabric}},
			}},
		},
	},
}

// Taxonomy returns the category tree.
func Taxonomy() []Category {
	return taxonomy
}

// RecommendedTemplates returns the template ids recommended for a product
// type. Names match case-insensitively. ok is false for an unknown path.
func RecommendedTemplates(category, subcategory, productType string) ([]string, bool) {
	for _, c := range taxonomy {
		if !strings.EqualFold(c.Name, category) {
			continue
		}
		for _, s := range c.Subcategories {
			if !strings.EqualFold(s.Name, subcategory) {
				continue
			}
			for _, p := range s.ProductTypes {
				if strings.EqualFold(p.Name, productType) {
					return p.RecommendedTemplates, true
				}
			}
		}
	}
	return nil, false
}
