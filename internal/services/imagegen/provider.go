package imagegen

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Generator turns a prompt into an image URL
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

// Image is a generated image
type Image struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
	Model         string `json:"model"`
}

// GeneratorFactory creates a generator from string settings
type GeneratorFactory func(config map[string]string) (Generator, error)

// ProviderRegistry stores available image providers
type ProviderRegistry struct {
	providers map[string]GeneratorFactory
}

// NewProviderRegistry creates a registry with the built-in providers
func NewProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[string]GeneratorFactory)}
	RegisterOpenAI(r)
	return r
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory GeneratorFactory) {
	r.providers[name] = factory
}

// GetProvider builds the named provider
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Generator, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not registered
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "image provider not found: " + e.Name
}

// RegisterOpenAI registers the "openai" provider. Recognised settings are
// api_key (required), base_url, model, size and timeout_seconds.
func RegisterOpenAI(r *ProviderRegistry) {
	r.Register("openai", func(config map[string]string) (Generator, error) {
		if config["api_key"] == "" {
			return nil, fmt.Errorf("openai api key not configured")
		}
		opts := OpenAIOptions{
			APIKey:  config["api_key"],
			BaseURL: config["base_url"],
			Model:   config["model"],
			Size:    config["size"],
		}
		if s := config["timeout_seconds"]; s != "" {
			secs, err := strconv.Atoi(s)
			if err != nil || secs <= 0 {
				return nil, fmt.Errorf("invalid timeout_seconds %q", s)
			}
			opts.Timeout = time.Duration(secs) * time.Second
		}
		return NewOpenAIGenerator(opts), nil
	})
}
