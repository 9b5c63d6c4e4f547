package imagegen

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultModel is the image model used when none is configured
	DefaultModel = "dall-e-3"
	// DefaultSize is the generated image size
	DefaultSize = "1024x1024"
	// DefaultBaseURL is the OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds a single generation call
	DefaultTimeout = 30 * time.Second
)

// OpenAIOptions configures an OpenAIGenerator
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string
	Timeout time.Duration
	// MaxRetries overrides the SDK's retry count when non-nil
	MaxRetries *int
}

// OpenAIGenerator generates images with the OpenAI images API
type OpenAIGenerator struct {
	client openai.Client
	model  string
	size   string
}

// NewOpenAIGenerator creates a generator
func NewOpenAIGenerator(opts OpenAIOptions) *OpenAIGenerator {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Size == "" {
		opts.Size = DefaultSize
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	httpClient := &http.Client{
		Timeout: opts.Timeout,
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
		option.WithHTTPClient(httpClient),
	}
	if opts.MaxRetries != nil {
		reqOpts = append(reqOpts, option.WithMaxRetries(*opts.MaxRetries))
	}

	return &OpenAIGenerator{
		client: openai.NewClient(reqOpts...),
		model:  opts.Model,
		size:   opts.Size,
	}
}

// Model returns the configured image model
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// GenerateImage requests one image for prompt
func (g *OpenAIGenerator) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(g.model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(g.size),
		Quality:        openai.ImageGenerateParamsQuality("standard"),
		Style:          openai.ImageGenerateParamsStyle("vivid"),
		ResponseFormat: openai.ImageGenerateParamsResponseFormat("url"),
	})
	if err != nil {
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, apiErr
		}
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, ErrNoImage
	}

	return &Image{
		URL:           resp.Data[0].URL,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
		Model:         g.model,
	}, nil
}
