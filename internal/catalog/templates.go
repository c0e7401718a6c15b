package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/combination"
	"github.com/GTDGit/gtd_catalog/internal/models"
)

// Ids of the built-in templates.
const (
	TemplateColor        = "color"
	TemplateSize         = "size"
	TemplateWaistSize    = "waist-size"
	TemplateShoeSize     = "shoe-size"
	TemplateBedSize      = "bed-size"
	TemplateMaterial     = "material"
	TemplateFabric       = "fabric"
	TemplateBrand        = "brand"
	TemplateStorage      = "storage"
	TemplateRAM          = "ram"
	TemplateCPU          = "cpu"
	TemplateScreenSize   = "screen-size"
	TemplateResolution   = "resolution"
	TemplateBattery      = "battery-capacity"
	TemplateConnectivity = "connectivity"
	TemplateSeats        = "seats"
)

// Seed is a built-in template with its template-level options.
type Seed struct {
	Template models.VariantTemplate
	Options  []models.VariantOption
}

// OptionID is the fixed id of a built-in option.
func OptionID(templateID, value string) string {
	return templateID + "-" + combination.Slug(value)
}

type optionSeed struct {
	value string
	color string
	delta int64
}

func seed(t models.VariantTemplate, opts ...optionSeed) Seed {
	t.IsFilterable = true
	s := Seed{Template: t}
	for i, o := range opts {
		s.Options = append(s.Options, models.VariantOption{
			ID:              OptionID(t.ID, o.value),
			TemplateID:      t.ID,
			Value:           o.value,
			Name:            o.value,
			ColorCode:       o.color,
			AdditionalPrice: decimal.NewFromInt(o.delta),
			IsDefault:       i == 0,
			SortOrder:       i,
		})
	}
	return s
}

func values(vs ...string) []optionSeed {
	out := make([]optionSeed, len(vs))
	for i, v := range vs {
		out[i] = optionSeed{value: v}
	}
	return out
}

func ptr(f float64) *float64 { return &f }

// Seeds returns the built-in templates in display order.
func Seeds() []Seed {
	return []Seed{
		seed(models.VariantTemplate{ID: TemplateBrand, Name: "Brand", InputType: models.InputTypeSelect, SortOrder: 1, FilterOrder: 1}),
		seed(models.VariantTemplate{ID: TemplateColor, Name: "Color", InputType: models.InputTypeColor, IsRequired: true, SortOrder: 2, FilterOrder: 1},
			optionSeed{value: "Black", color: "#000000"},
			optionSeed{value: "White", color: "#FFFFFF"},
			optionSeed{value: "Red", color: "#FF0000"},
			optionSeed{value: "Navy", color: "#000080"},
			optionSeed{value: "Grey", color: "#808080"},
		),
		seed(models.VariantTemplate{ID: TemplateSize, Name: "Size", InputType: models.InputTypeSelect, IsRequired: true, SortOrder: 3, FilterOrder: 1,
			ProductTypes: []string{"T-Shirt", "Dress"}},
			append(values("XS", "S", "M"), optionSeed{value: "L", delta: 5000}, optionSeed{value: "XL", delta: 10000}, optionSeed{value: "XXL", delta: 15000})...,
		),
		seed(models.VariantTemplate{ID: TemplateWaistSize, Name: "Waist Size", InputType: models.InputTypeSelect, SortOrder: 3, FilterOrder: 2,
			ProductTypes: []string{"Jeans"}},
			values("28", "30", "32", "34", "36")...,
		),
		seed(models.VariantTemplate{ID: TemplateShoeSize, Name: "Shoe Size", InputType: models.InputTypeSelect, SortOrder: 3, FilterOrder: 3,
			Categories: []string{"Fashion"}},
			values("38", "39", "40", "41", "42", "43", "44")...,
		),
		seed(models.VariantTemplate{ID: TemplateBedSize, Name: "Bed Size", InputType: models.InputTypeSelect, SortOrder: 3, FilterOrder: 4,
			Categories: []string{"Home & Living"}},
			values("Single", "Double", "Queen", "King")...,
		),
		seed(models.VariantTemplate{ID: TemplateMaterial, Name: "Material", InputType: models.InputTypeSelect, SortOrder: 4, FilterOrder: 1},
			values("Cotton", "Polyester", "Leather", "Wood", "Metal")...,
		),
		seed(models.VariantTemplate{ID: TemplateFabric, Name: "Fabric", InputType: models.InputTypeSelect, SortOrder: 4, FilterOrder: 2},
			values("Denim", "Linen", "Velvet", "Silk")...,
		),
		seed(models.VariantTemplate{ID: TemplateStorage, Name: "Storage", InputType: models.InputTypeSelect, SortOrder: 5, FilterOrder: 2,
			Categories: []string{"Electronics"}},
			optionSeed{value: "64GB"}, optionSeed{value: "128GB", delta: 500000}, optionSeed{value: "256GB", delta: 1200000}, optionSeed{value: "512GB", delta: 2500000},
		),
		seed(models.VariantTemplate{ID: TemplateRAM, Name: "RAM", InputType: models.InputTypeSelect, SortOrder: 5, FilterOrder: 1,
			Categories: []string{"Electronics"}},
			optionSeed{value: "4GB"}, optionSeed{value: "8GB", delta: 400000}, optionSeed{value: "16GB", delta: 1000000},
		),
		seed(models.VariantTemplate{ID: TemplateCPU, Name: "CPU", InputType: models.InputTypeSelect, SortOrder: 5, FilterOrder: 0,
			ProductTypes: []string{"Laptop"}},
			values("Intel Core i5", "Intel Core i7", "AMD Ryzen 5", "AMD Ryzen 7", "Apple M3")...,
		),
		seed(models.VariantTemplate{ID: TemplateScreenSize, Name: "Screen Size", InputType: models.InputTypeRange, SortOrder: 6, FilterOrder: 1, FilterGroup: "Display",
			Unit: "inch", MinValue: ptr(1), MaxValue: ptr(100), Step: ptr(0.1), Categories: []string{"Electronics"}}),
		seed(models.VariantTemplate{ID: TemplateResolution, Name: "Resolution", InputType: models.InputTypeSelect, SortOrder: 6, FilterOrder: 2,
			ProductTypes: []string{"Monitor"}},
			values("1080p", "1440p", "4K")...,
		),
		seed(models.VariantTemplate{ID: TemplateBattery, Name: "Battery Capacity", InputType: models.InputTypeRange, SortOrder: 7, FilterOrder: 1,
			Unit: "mAh", MinValue: ptr(100), MaxValue: ptr(20000), Step: ptr(100), Categories: []string{"Electronics"}}),
		seed(models.VariantTemplate{ID: TemplateConnectivity, Name: "Connectivity", InputType: models.InputTypeMultiselect, SortOrder: 8, FilterOrder: 1,
			Categories: []string{"Electronics"}},
			values("Bluetooth", "Wi-Fi", "USB-C", "HDMI")...,
		),
		seed(models.VariantTemplate{ID: TemplateSeats, Name: "Seats", InputType: models.InputTypeSelect, SortOrder: 9, FilterOrder: 1,
			Type: "Features", ProductTypes: []string{"Sofa"}},
			values("2", "3", "4")...,
		),
	}
}

// SeedByID returns the built-in template with id.
func SeedByID(id string) (Seed, bool) {
	for _, s := range Seeds() {
		if s.Template.ID == id {
			return s, true
		}
	}
	return Seed{}, false
}
