package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model used for all report pipeline calls.
	DefaultModel = "gemini-flash-lite-latest"
)

// Client is the generative text provider shared by every pipeline stage. It
// is constructed once at process startup and passed by interface into each
// component; it is safe for concurrent use and is never reinitialized.
type Client struct {
	apiKey    string
	modelName string
	gClient   *genai.Client
}

// Options contains optional generation parameters.
type Options struct {
	MaxTokens   int32   // Maximum number of tokens to generate
	Temperature float32 // Temperature for randomness (0.0 to 1.0)
	Model       string  // Model override (defaults to client's model)
}

// NewClient creates a new LLM client.
// It supports multiple ways to get the API key (in order of preference):
// 1. Environment variable: GEMINI_API_KEY (or alternatives)
// 2. Viper configuration: ai.gemini.api_key
//
// A missing key is a configuration error: report generation cannot degrade
// past it, so construction fails rather than deferring to the first call.
func NewClient(modelName string) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		if apiKey = os.Getenv("GOOGLE_GEMINI_API_KEY"); apiKey == "" {
			apiKey = viper.GetString("ai.gemini.api_key")
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
	}

	if modelName == "" {
		modelName = viper.GetString("ai.gemini.model")
		if modelName == "" {
			modelName = DefaultModel
		}
	}

	ctx := context.Background()
	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		apiKey:    apiKey,
		modelName: modelName,
		gClient:   gClient,
	}, nil
}

// Generate sends a single prompt and returns the raw response text. The
// context carries the per-call deadline; a timed-out or failed call surfaces
// as an error that the pipeline stages degrade around.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}

// GenerateWithOptions sends a single prompt with explicit generation
// parameters and returns the raw response text.
func (c *Client) GenerateWithOptions(ctx context.Context, prompt string, options Options) (string, error) {
	modelName := c.modelName
	if options.Model != "" {
		modelName = options.Model
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	var config *genai.GenerateContentConfig
	if options.MaxTokens > 0 || options.Temperature > 0 {
		config = &genai.GenerateContentConfig{}
		if options.MaxTokens > 0 {
			config.MaxOutputTokens = options.MaxTokens
		}
		if options.Temperature > 0 {
			temp := options.Temperature
			config.Temperature = &temp
		}
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}

// Generator binds a Client to fixed generation parameters. Pipeline stages
// depend only on a Generate method, so the binding is where configured token
// and temperature limits reach every call.
type Generator struct {
	client  *Client
	options Options
}

// WithOptions returns a generator whose Generate calls carry the given
// parameters.
func (c *Client) WithOptions(options Options) *Generator {
	return &Generator{client: c, options: options}
}

// Generate sends a single prompt with the bound generation parameters.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.client.GenerateWithOptions(ctx, prompt, g.options)
}

// ModelName returns the model name used by this client.
func (c *Client) ModelName() string {
	return c.modelName
}

// Close cleans up resources used by the client.
func (c *Client) Close() {
	// The genai client doesn't require explicit close.
}
