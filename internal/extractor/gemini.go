package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the part of genai.Models the extractor calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini extracts appointments with the Gemini API
type Gemini struct {
	models      contentGenerator
	model       string
	temperature float32
	system      string
	loc         *time.Location
	parser      *Parser
}

// GeminiOptions configures a Gemini extractor
type GeminiOptions struct {
	APIKey      string
	Model       string
	Temperature float64
	RealtorName string
	Location    *time.Location
	Parser      *Parser
}

// NewGemini creates a Gemini-backed extractor using the Gemini API backend.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGemini(client.Models, opts), nil
}

func newGemini(models contentGenerator, opts GeminiOptions) *Gemini {
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.5
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Parser == nil {
		opts.Parser = NewParser(opts.Location, 0)
	}
	return &Gemini{
		models:      models,
		model:       opts.Model,
		temperature: float32(opts.Temperature),
		system:      SystemPrompt(opts.RealtorName),
		loc:         opts.Location,
		parser:      opts.Parser,
	}
}

// Extract asks Gemini for a JSON extraction of the turn
func (g *Gemini) Extract(ctx context.Context, req Request) (*Extraction, error) {
	temperature := g.temperature
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.system, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   defaultMaxTokens,
		ResponseMIMEType:  "application/json",
	}
	contents := []*genai.Content{
		genai.NewContentFromText(BuildUserPrompt(req, g.loc), genai.RoleUser),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: generateContent: %v", ErrUnavailable, err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response from model", ErrUnparseable)
	}
	return g.parser.Parse(text)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
