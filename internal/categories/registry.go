package categories

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCategoryID is the category used when a vision matches nothing.
const DefaultCategoryID = "community-services"

//go:embed categories.yaml
var embeddedCategories []byte

// PromptTemplate wraps a vision in category specific image prompt text
type PromptTemplate struct {
	Prefix string `yaml:"prefix" json:"prefix"`
	Suffix string `yaml:"suffix" json:"suffix"`
}

// Category is a city budget bucket that visions are matched against
type Category struct {
	ID               string         `yaml:"id" json:"id"`
	Name             string         `yaml:"name" json:"name"`
	Description      string         `yaml:"description" json:"description"`
	Icon             string         `yaml:"icon" json:"icon"`
	Color            string         `yaml:"color" json:"color"`
	Keywords         []string       `yaml:"keywords" json:"keywords"`
	TotalBudget      float64        `yaml:"total_budget" json:"total_budget"`
	DirectFunding    float64        `yaml:"direct_funding" json:"direct_funding"`
	NonprofitFunding float64        `yaml:"nonprofit_funding" json:"nonprofit_funding"`
	BudgetDeficit    float64        `yaml:"budget_deficit" json:"budget_deficit"`
	RemainingFunding float64        `yaml:"remaining_funding" json:"remaining_funding"`
	ImpactMetrics    []string       `yaml:"impact_metrics" json:"impact_metrics"`
	Prompt           PromptTemplate `yaml:"prompt" json:"-"`
	FallbackImageURL string         `yaml:"fallback_image" json:"fallback_image_url"`
}

type registryFile struct {
	Categories []Category `yaml:"categories"`
}

// matcher holds the lowercased forms used while scoring text
type matcher struct {
	name     string
	keywords []string
}

// Registry is the immutable, ordered table of categories. It is safe for
// concurrent use since nothing mutates it after construction.
type Registry struct {
	ordered  []Category
	byID     map[string]int
	matchers []matcher
}

// Default returns the registry built from the embedded category table
func Default() (*Registry, error) {
	return Parse(embeddedCategories)
}

// MustDefault is Default for package initialisation and tests
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// LoadFile reads a registry from a YAML file. An empty path yields the
// embedded table.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML. Ids must be unique and non-empty and the
// default category must be present.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse categories: %w", err)
	}
	return New(file.Categories)
}

// New builds a registry from categories in iteration order
func New(cats []Category) (*Registry, error) {
	if len(cats) == 0 {
		return nil, fmt.Errorf("category registry is empty")
	}

	r := &Registry{
		ordered:  make([]Category, 0, len(cats)),
		byID:     make(map[string]int, len(cats)),
		matchers: make([]matcher, 0, len(cats)),
	}
	for _, c := range cats {
		if strings.TrimSpace(c.ID) == "" {
			return nil, fmt.Errorf("category %q has an empty id", c.Name)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", c.ID)
		}

		m := matcher{name: strings.ToLower(c.Name)}
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				m.keywords = append(m.keywords, kw)
			}
		}

		r.byID[c.ID] = len(r.ordered)
		r.ordered = append(r.ordered, c)
		r.matchers = append(r.matchers, m)
	}

	if _, ok := r.byID[DefaultCategoryID]; !ok {
		return nil, fmt.Errorf("default category %q missing from registry", DefaultCategoryID)
	}
	return r, nil
}

// Lookup returns the category with the given id. A missing id is reported
// through ok, never as an error.
func (r *Registry) Lookup(id string) (Category, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Category{}, false
	}
	return r.ordered[i], true
}

// All returns the categories in registry order
func (r *Registry) All() []Category {
	out := make([]Category, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Default returns the category used for uncategorized visions
func (r *Registry) Default() Category {
	return r.ordered[r.byID[DefaultCategoryID]]
}

// CategoryOrDefault resolves id, falling back to the default category when
// id is empty or unknown.
func (r *Registry) CategoryOrDefault(id string) Category {
	if c, ok := r.Lookup(id); ok {
		return c
	}
	return r.Default()
}

// TotalBudget sums the total budget of every category, in millions
func (r *Registry) TotalBudget() float64 {
	var total float64
	for _, c := range r.ordered {
		total += c.TotalBudget
	}
	return total
}
