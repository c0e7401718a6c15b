package service

import (
	"strings"

	"github.com/GTDGit/gtd_catalog/internal/models"
)

// Filter group names.
const (
	GroupBrand          = "Brand"
	GroupPrice          = "Price"
	GroupColor          = "Color"
	GroupSize           = "Size"
	GroupTechnicalSpecs = "Technical Specs"
	GroupDisplay        = "Display"
	GroupPerformance    = "Performance"
	GroupFeatures       = "Features"
	GroupMaterial       = "Material & Build"
	GroupOther          = "Other"
)

// Categorizer assigns templates to filter groups and orders the groups.
type Categorizer interface {
	Group(t models.VariantTemplate) string
	Priority(group string) int
}

type keywordRule struct {
	keywords []string
	group    string
}

// KeywordCategorizer matches template names against an ordered keyword table.
// The first rule with a keyword contained in the name wins.
type KeywordCategorizer struct {
	rules      []keywordRule
	priorities map[string]int
}

// unknownGroupPriority orders groups missing from the priority table.
const unknownGroupPriority = 500

// NewKeywordCategorizer returns the default categorizer.
func NewKeywordCategorizer() *KeywordCategorizer {
	return &KeywordCategorizer{
		rules: []keywordRule{
			{keywords: []string{"brand"}, group: GroupBrand},
			{keywords: []string{"price"}, group: GroupPrice},
			{keywords: []string{"color", "colour"}, group: GroupColor},
			{keywords: []string{"size"}, group: GroupSize},
			{keywords: []string{"cpu", "ram", "storage"}, group: GroupTechnicalSpecs},
			{keywords: []string{"screen", "display", "resolution"}, group: GroupDisplay},
			{keywords: []string{"connectivity", "wireless"}, group: GroupFeatures},
			{keywords: []string{"material", "fabric"}, group: GroupMaterial},
			{keywords: []string{"performance", "battery"}, group: GroupPerformance},
		},
		priorities: map[string]int{
			GroupBrand:          1,
			GroupPrice:          2,
			GroupColor:          3,
			GroupSize:           4,
			GroupTechnicalSpecs: 5,
			GroupDisplay:        6,
			GroupPerformance:    7,
			GroupFeatures:       8,
			GroupMaterial:       9,
			GroupOther:          999,
		},
	}
}

// Group returns the explicit filterGroup, else the first keyword match on the
// name, else the template type, else Other.
func (c *KeywordCategorizer) Group(t models.VariantTemplate) string {
	if g := strings.TrimSpace(t.FilterGroup); g != "" {
		return g
	}
	name := strings.ToLower(t.Name)
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if strings.Contains(name, kw) {
				return r.group
			}
		}
	}
	if t.Type != "" {
		return t.Type
	}
	return GroupOther
}

func (c *KeywordCategorizer) Priority(group string) int {
	if p, ok := c.priorities[group]; ok {
		return p
	}
	return unknownGroupPriority
}
