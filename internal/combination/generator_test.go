package combination

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

func option(templateID, value string, delta int64) models.VariantOption {
	return models.VariantOption{TemplateID: templateID, Value: value, Name: value, AdditionalPrice: decimal.NewFromInt(delta)}
}

func tshirtInstances() []Instance {
	return []Instance{
		{
			TemplateID:     "size",
			Template:       models.VariantTemplate{ID: "size", Name: "Size"},
			SelectedValues: []string{"S", "L"},
			Options:        []models.VariantOption{option("size", "S", 0), option("size", "L", 10)},
		},
		{
			TemplateID:     "color",
			Template:       models.VariantTemplate{ID: "color", Name: "Color"},
			SelectedValues: []string{"Red", "Blue"},
			Options:        []models.VariantOption{option("color", "Red", 0), option("color", "Blue", 5)},
		},
	}
}

func TestGenerateTshirtScenario(t *testing.T) {
	g := NewGenerator(0, true)
	combos, err := g.Generate(tshirtInstances(), decimal.NewFromInt(100), "TSHIRT")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []struct {
		sku     string
		price   int64
		display string
		tokens  string
	}{
		{"TSHIRT-S-RED", 100, "S - Red", "size-s,color-red"},
		{"TSHIRT-S-BLU", 105, "S - Blue", "size-s,color-blue"},
		{"TSHIRT-L-RED", 110, "L - Red", "size-l,color-red"},
		{"TSHIRT-L-BLU", 115, "L - Blue", "size-l,color-blue"},
	}
	if len(combos) != len(want) {
		t.Fatalf("got %d combinations, want %d", len(combos), len(want))
	}
	for i, w := range want {
		c := combos[i]
		if c.SKU != w.sku {
			t.Errorf("combo %d sku = %q, want %q", i, c.SKU, w.sku)
		}
		if !c.Price.Equal(decimal.NewFromInt(w.price)) {
			t.Errorf("combo %d price = %s, want %d", i, c.Price, w.price)
		}
		if c.DisplayName != w.display {
			t.Errorf("combo %d displayName = %q, want %q", i, c.DisplayName, w.display)
		}
		if got := strings.Join(c.VariantStrings, ","); got != w.tokens {
			t.Errorf("combo %d variantStrings = %q, want %q", i, got, w.tokens)
		}
	}
	if combos[3].VariantValues["size"] != "L" || combos[3].VariantValues["color"] != "Blue" {
		t.Errorf("unexpected variant values %v", combos[3].VariantValues)
	}
}

func TestGenerateCartesianCompleteness(t *testing.T) {
	counts := []int{3, 1, 4, 2}
	var instances []Instance
	for i, n := range counts {
		id := fmt.Sprintf("t%d", i)
		inst := Instance{TemplateID: id, Template: models.VariantTemplate{ID: id, Name: id}}
		for j := 0; j < n; j++ {
			inst.SelectedValues = append(inst.SelectedValues, fmt.Sprintf("v%d", j))
		}
		instances = append(instances, inst)
	}

	combos, err := NewGenerator(0, false).Generate(instances, decimal.NewFromInt(1), "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(combos) != 24 {
		t.Fatalf("got %d combinations, want 24", len(combos))
	}
	seen := map[string]bool{}
	for _, c := range combos {
		key := strings.Join(c.VariantStrings, "|")
		if seen[key] {
			t.Fatalf("duplicate combination %s", key)
		}
		seen[key] = true
		if c.SKU != "" {
			t.Errorf("auto-SKU off but got sku %q", c.SKU)
		}
	}
}

func TestGeneratePriceIsBasePlusDeltas(t *testing.T) {
	instances := tshirtInstances()
	instances[1].Options[1].AdditionalPrice = decimal.RequireFromString("-7.25")

	combos, err := NewGenerator(0, true).Generate(instances, decimal.NewFromInt(100), "X")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, c := range combos {
		sum := decimal.Zero
		for _, ch := range c.Choices {
			sum = sum.Add(ch.AdditionalPrice)
		}
		if !c.AdditionalPrice.Equal(sum) {
			t.Errorf("%s additionalPrice = %s, want %s", c.DisplayName, c.AdditionalPrice, sum)
		}
		if !c.Price.Equal(decimal.NewFromInt(100).Add(sum)) {
			t.Errorf("%s price = %s", c.DisplayName, c.Price)
		}
	}
	if !combos[1].Price.Equal(decimal.RequireFromString("92.75")) {
		t.Errorf("S/Blue price = %s, want 92.75", combos[1].Price)
	}
}

func TestGenerateSkipsEmptyInstances(t *testing.T) {
	instances := tshirtInstances()
	instances = append(instances, Instance{TemplateID: "material", Template: models.VariantTemplate{Name: "Material"}})

	combos, err := NewGenerator(0, true).Generate(instances, decimal.NewFromInt(100), "TSHIRT")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(combos) != 4 {
		t.Fatalf("got %d combinations, want 4", len(combos))
	}
	for _, c := range combos {
		if _, ok := c.VariantValues["material"]; ok {
			t.Fatalf("empty instance leaked into %v", c.VariantValues)
		}
	}
}

func TestGenerateNoInstances(t *testing.T) {
	combos, err := NewGenerator(0, true).Generate(nil, decimal.NewFromInt(100), "X")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(combos) != 0 {
		t.Fatalf("got %d combinations, want 0", len(combos))
	}
}

func TestGenerateRejectsAboveCap(t *testing.T) {
	var instances []Instance
	for i := 0; i < 3; i++ {
		inst := Instance{TemplateID: fmt.Sprintf("t%d", i), Template: models.VariantTemplate{Name: fmt.Sprintf("T%d", i)}}
		for j := 0; j < 10; j++ {
			inst.SelectedValues = append(inst.SelectedValues, fmt.Sprintf("%d", j))
		}
		instances = append(instances, inst)
	}

	_, err := NewGenerator(999, false).Generate(instances, decimal.NewFromInt(1), "")
	if !errors.Is(err, utils.ErrScaleLimitExceeded) {
		t.Fatalf("err = %v, want scale limit", err)
	}

	combos, err := NewGenerator(1000, false).Generate(instances, decimal.NewFromInt(1), "")
	if err != nil {
		t.Fatalf("at cap: %v", err)
	}
	if len(combos) != 1000 {
		t.Fatalf("got %d combinations, want 1000", len(combos))
	}
}

func TestGenerateDedupesAndDefaultsMissingOptions(t *testing.T) {
	instances := []Instance{{
		TemplateID:     "storage",
		Template:       models.VariantTemplate{Name: "Storage"},
		SelectedValues: []string{"128GB", "128GB", " 256GB "},
	}}
	combos, err := NewGenerator(0, true).Generate(instances, decimal.NewFromInt(50), "PH")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(combos) != 2 {
		t.Fatalf("got %d combinations, want 2", len(combos))
	}
	if combos[1].DisplayName != "256GB" || combos[1].VariantStrings[0] != "storage-256gb" {
		t.Errorf("unexpected combination %+v", combos[1])
	}
	if combos[1].SKU != "PH-256" || !combos[1].Price.Equal(decimal.NewFromInt(50)) {
		t.Errorf("sku/price = %q/%s", combos[1].SKU, combos[1].Price)
	}
}

func TestToken(t *testing.T) {
	cases := map[[2]string]string{
		{"Color", "White"}:           "color-white",
		{"Screen Size", "6.1 inch"}:  "screen-size-6-1-inch",
		{"  Storage ", "128GB"}:      "storage-128gb",
		{"Material & Build", "Oak!"}: "material-build-oak",
	}
	for in, want := range cases {
		if got := Token(in[0], in[1]); got != want {
			t.Errorf("Token(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}
