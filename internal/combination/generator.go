// Package combination expands a product's selected variant values into the
// full cartesian product of purchasable combinations.
package combination

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

// DefaultMaxCombinations is the cap used when a Generator has none configured.
const DefaultMaxCombinations = 10000

// Instance is one template bound to a product with the values selected for it.
// Options supply names and price deltas; a selected value without an option
// is named by its value and has no price delta.
type Instance struct {
	TemplateID     string
	Template       models.VariantTemplate
	SelectedValues []string
	Options        []models.VariantOption
}

// Choice is the value chosen for one template within a combination.
type Choice struct {
	TemplateID      string
	TemplateName    string
	Value           string
	Name            string
	Token           string
	AdditionalPrice decimal.Decimal
}

// Combination is one generated row. Choices follow instance order.
type Combination struct {
	Choices         []Choice
	VariantValues   map[string]string
	VariantStrings  []string
	DisplayName     string
	SKU             string
	AdditionalPrice decimal.Decimal
	Price           decimal.Decimal
}

// Generator builds combinations.
type Generator struct {
	maxCombinations int
	autoSKU         bool
}

// NewGenerator creates a Generator. maxCombinations <= 0 selects DefaultMaxCombinations.
func NewGenerator(maxCombinations int, autoSKU bool) *Generator {
	if maxCombinations <= 0 {
		maxCombinations = DefaultMaxCombinations
	}
	return &Generator{maxCombinations: maxCombinations, autoSKU: autoSKU}
}

// AutoSKU reports whether generated combinations get a SKU.
func (g *Generator) AutoSKU() bool { return g.autoSKU }

// Generate returns every combination of one selected value per instance.
// Instances without selected values are skipped; no instances yields no
// combinations. The output size is checked against the cap before anything
// is built.
func (g *Generator) Generate(instances []Instance, basePrice decimal.Decimal, skuPrefix string) ([]Combination, error) {
	return g.generate(instances, basePrice, skuPrefix, g.autoSKU)
}

// GenerateWithSKU is Generate with auto-SKU switched explicitly.
func (g *Generator) GenerateWithSKU(instances []Instance, basePrice decimal.Decimal, skuPrefix string, autoSKU bool) ([]Combination, error) {
	return g.generate(instances, basePrice, skuPrefix, autoSKU)
}

func (g *Generator) generate(instances []Instance, basePrice decimal.Decimal, skuPrefix string, autoSKU bool) ([]Combination, error) {
	dims := make([][]Choice, 0, len(instances))
	for _, inst := range instances {
		if choices := choicesOf(inst); len(choices) > 0 {
			dims = append(dims, choices)
		}
	}
	if len(dims) == 0 {
		return []Combination{}, nil
	}

	total := Count(dims)
	if total > g.maxCombinations {
		return nil, utils.ScaleLimitError("COMBINATION_LIMIT_EXCEEDED",
			"variant selection yields at least %d combinations, limit is %d", total, g.maxCombinations)
	}

	partials := [][]Choice{{}}
	for _, choices := range dims {
		next := make([][]Choice, 0, len(partials)*len(choices))
		for _, p := range partials {
			for _, c := range choices {
				row := make([]Choice, len(p), len(p)+1)
				copy(row, p)
				next = append(next, append(row, c))
			}
		}
		partials = next
	}

	out := make([]Combination, 0, len(partials))
	for _, row := range partials {
		out = append(out, build(row, basePrice, skuPrefix, autoSKU))
	}
	return out, nil
}

// Count returns the number of combinations dims produce, saturating at math.MaxInt.
func Count(dims [][]Choice) int {
	total := 1
	for _, d := range dims {
		n := len(d)
		if n == 0 {
			continue
		}
		if total > math.MaxInt/n {
			return math.MaxInt
		}
		total *= n
	}
	return total
}

// choicesOf resolves the distinct selected values of inst, in selection order.
func choicesOf(inst Instance) []Choice {
	templateID := inst.TemplateID
	if templateID == "" {
		templateID = inst.Template.ID
	}
	byValue := make(map[string]models.VariantOption, len(inst.Options))
	for _, o := range inst.Options {
		if _, dup := byValue[o.Value]; !dup {
			byValue[o.Value] = o
		}
	}

	seen := make(map[string]bool, len(inst.SelectedValues))
	out := make([]Choice, 0, len(inst.SelectedValues))
	for _, v := range inst.SelectedValues {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		c := Choice{
			TemplateID:   templateID,
			TemplateName: inst.Template.Name,
			Value:        v,
			Name:         v,
			Token:        Token(inst.Template.Name, v),
		}
		if o, ok := byValue[v]; ok {
			c.Name = o.DisplayName()
			c.AdditionalPrice = o.AdditionalPrice
		}
		out = append(out, c)
	}
	return out
}

func build(row []Choice, basePrice decimal.Decimal, skuPrefix string, autoSKU bool) Combination {
	c := Combination{
		Choices:         row,
		VariantValues:   make(map[string]string, len(row)),
		VariantStrings:  make([]string, 0, len(row)),
		AdditionalPrice: decimal.Zero,
	}
	names := make([]string, 0, len(row))
	values := make([]string, 0, len(row))
	for _, ch := range row {
		c.VariantValues[ch.TemplateID] = ch.Value
		c.VariantStrings = append(c.VariantStrings, ch.Token)
		c.AdditionalPrice = c.AdditionalPrice.Add(ch.AdditionalPrice)
		names = append(names, ch.Name)
		values = append(values, ch.Value)
	}
	c.Price = basePrice.Add(c.AdditionalPrice)
	c.DisplayName = strings.Join(names, " - ")
	if autoSKU {
		c.SKU = SKU(skuPrefix, values)
	}
	return c
}
