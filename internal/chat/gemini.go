package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
)

const systemPrompt = `You are the AgriApp assistant for farmers and buyers of
agricultural produce in Northeast India. Answer questions about crop care,
pests, market produce, orders, payments and deliveries. Be concise and
practical. If a question is unrelated to agriculture or the marketplace,
politely decline.`

// GeminiResponder answers FAQ misses through the Gemini API.
type GeminiResponder struct {
	client *genai.Client
	model  string
}

// NewGeminiResponder builds the LLM fallback. Returns (nil, nil) when no API
// key is configured so callers can wire the degraded mode without branching
// on config themselves.
func NewGeminiResponder(ctx context.Context, cfg config.GeminiConfig) (*GeminiResponder, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiResponder{client: client, model: model}, nil
}

// Generate sends the question to Gemini with the agriculture system prompt.
func (g *GeminiResponder) Generate(ctx context.Context, question string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	res, err := model.GenerateContent(ctx, genai.Text(question))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gemini request failed")
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "gemini returned no text")
	}
	return sb.String(), nil
}

// Close releases the underlying client.
func (g *GeminiResponder) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}
