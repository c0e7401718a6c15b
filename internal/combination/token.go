package combination

import (
	"strings"
	"unicode"
)

// Slug lower-cases s and collapses every run of characters that are not
// letters or digits into a single "-".
func Slug(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// Token is the filter token of one (template, value) pair, for example
// Token("Color", "White") == "color-white". Combinations, product variants
// and filter queries all build tokens with this function.
func Token(templateName, value string) string {
	return Slug(templateName) + "-" + Slug(value)
}

// Tokens returns the tokens of values for one template.
func Tokens(templateName string, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, Token(templateName, v))
	}
	return out
}

// skuCode is the first three runes of value, upper-cased.
func skuCode(value string) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return strings.ToUpper(string(runes))
}

// SKU joins prefix and the sku code of each value with "-".
func SKU(prefix string, values []string) string {
	parts := make([]string, 0, len(values)+1)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	for _, v := range values {
		parts = append(parts, skuCode(v))
	}
	return strings.Join(parts, "-")
}
