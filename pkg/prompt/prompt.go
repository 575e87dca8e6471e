// Package prompt builds generation prompts from templated fragments. Filling
// is pure string substitution over a fixed placeholder set; no dynamic
// evaluation happens.
package prompt

import "strings"

// Placeholder keys recognized in templates.
const (
	KeyProduct    = "{product}"
	KeyCategory   = "{category}"
	KeyStyle      = "{style}"
	KeyBackground = "{background}"
)

// Vars carries the values substituted into a template. Empty values simply
// produce empty substitutions; placeholders are never left in the output.
type Vars struct {
	Product    string
	Category   string
	Style      string
	Background string
}

// Fill substitutes every recognized placeholder in template with its value
// from vars. Unrecognized braces are left untouched.
func Fill(template string, vars Vars) string {
	r := strings.NewReplacer(
		KeyProduct, vars.Product,
		KeyCategory, vars.Category,
		KeyStyle, vars.Style,
		KeyBackground, vars.Background,
	)
	return strings.TrimSpace(r.Replace(template))
}

// templates maps each product category to its default generation prompt.
// The classifier's "custom" sentinel falls through to defaultTemplate.
var templates = map[string]string{
	"clothing":    "professional product photo of {product}, {category} item on a clean {background}, studio lighting, {style}",
	"footwear":    "commercial photo of {product}, single shoe angled three-quarter view on {background}, sharp focus, {style}",
	"accessories": "elegant close-up product shot of {product} on {background}, soft shadows, {style}",
	"electronics": "sleek product photo of {product} on {background}, reflective surface, dramatic rim lighting, {style}",
	"home":        "lifestyle product photo of {product} in a bright interior setting, {background}, natural light, {style}",
	"beauty":      "luxury cosmetic product shot of {product} on {background}, glossy highlights, {style}",
	"sports":      "dynamic product photo of {product} on {background}, high contrast lighting, {style}",
	"toys":        "playful product photo of {product} on {background}, vibrant colors, {style}",
}

const defaultTemplate = "professional product photo of {product} on {background}, studio lighting, {style}"

// ForCategory returns the prompt template for a product category, falling
// back to a generic studio template for unknown categories.
func ForCategory(category string) string {
	if t, ok := templates[category]; ok {
		return t
	}
	return defaultTemplate
}

// Build is the common path: pick the category template and fill it.
func Build(category string, vars Vars) string {
	if vars.Category == "" {
		vars.Category = category
	}
	return Fill(ForCategory(category), vars)
}
