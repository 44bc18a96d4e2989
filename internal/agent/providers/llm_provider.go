package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// LLMProvider abstracts the language model behind the tutor and the agents.
type LLMProvider interface {
	// GenerateText returns the model's plain-text answer to the prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateStructured asks for a JSON answer and decodes it into output.
	GenerateStructured(ctx context.Context, prompt string, output interface{}) error

	// Close releases the underlying client.
	Close()
}

// GeminiOptions configures the Google Gemini provider.
type GeminiOptions struct {
	APIKey      string
	Model       string
	Temperature float32
}

// GeminiProvider is the LLMProvider backed by Google Gemini.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
	// guards ResponseMIMEType, which GenerateStructured flips per call
	mu sync.Mutex
}

// NewGeminiProvider connects to Gemini with the given options.
func NewGeminiProvider(ctx context.Context, opts GeminiOptions) (*GeminiProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, err
	}

	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.4
	}

	model := client.GenerativeModel(opts.Model)
	model.SetTemperature(opts.Temperature)
	model.SystemInstruction = genai.NewUserContent(genai.Text(
		"You are MathTer, a patient mathematics tutor for school students. " +
			"Explain step by step, never just hand over final answers, and keep replies short.",
	))

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// GenerateText implements LLMProvider
func (g *GeminiProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	return firstText(resp)
}

// GenerateStructured implements LLMProvider for JSON output
func (g *GeminiProvider) GenerateStructured(ctx context.Context, prompt string, output interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	originalMIME := g.model.ResponseMIMEType
	g.model.ResponseMIMEType = "application/json"
	defer func() {
		g.model.ResponseMIMEType = originalMIME
	}()

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return err
	}

	txt, err := firstText(resp)
	if err != nil {
		return err
	}

	return DecodeJSON(txt, output)
}

// Close implements LLMProvider
func (g *GeminiProvider) Close() {
	g.client.Close()
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from LLM")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt), nil
		}
	}

	return "", fmt.Errorf("no text content in response")
}

// DecodeJSON parses a model reply, tolerating a surrounding markdown code fence.
func DecodeJSON(txt string, output interface{}) error {
	txt = strings.TrimSpace(txt)
	if strings.HasPrefix(txt, "```") {
		txt = strings.TrimPrefix(txt, "```json")
		txt = strings.TrimPrefix(txt, "```")
		txt = strings.TrimSuffix(strings.TrimSpace(txt), "```")
	}

	if err := json.Unmarshal([]byte(txt), output); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}
