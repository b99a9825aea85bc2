package advisor

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"agri-sentinel/internal/agri"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-2.5-flash"

// GenAI answers prompts with Google's Gemini API.
type GenAI struct {
	client *genai.Client
	model  string
}

// NewGenAI creates a Gemini-backed advisor. No request is made until Advise.
func NewGenAI(ctx context.Context, apiKey, model string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAI{client: client, model: model}, nil
}

// Advise sends prompt with the agronomist system instruction.
func (g *GenAI) Advise(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrNoAdvice
	}
	return text, nil
}

func (g *GenAI) Name() string { return "genai:" + g.model }

var _ agri.Advisor = (*GenAI)(nil)
