package imagegen

import (
	"strings"

	"github.com/benvon/civiz/internal/categories"
)

// DefaultTemplate is used for categories without a prompt template
var DefaultTemplate = categories.PromptTemplate{
	Prefix: "A beautiful civic vision for San Francisco showing",
	Suffix: "inspiring urban design, community benefit, photorealistic rendering, high quality, professional photography",
}

// BuildPrompt wraps the vision text in the category's template
func BuildPrompt(text string, tpl categories.PromptTemplate) string {
	if tpl.Prefix == "" || tpl.Suffix == "" {
		tpl = DefaultTemplate
	}
	return tpl.Prefix + " " + strings.ToLower(strings.TrimSpace(text)) + ", " + tpl.Suffix
}
