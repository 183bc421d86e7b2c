package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultClaudeURL   = "https://api.anthropic.com/v1/messages"
	defaultClaudeModel = "claude-sonnet-4-20250514"
	defaultMaxTokens   = 1000
	anthropicVersion   = "2023-06-01"
)

// Claude extracts appointments through the Anthropic Messages API
type Claude struct {
	apiKey      string
	model       string
	apiURL      string
	httpClient  *http.Client
	temperature float64
	system      string
	loc         *time.Location
	parser      *Parser
}

// ClaudeOptions configures a Claude extractor
type ClaudeOptions struct {
	APIKey      string
	Model       string
	Temperature float64
	RealtorName string
	Location    *time.Location
	Parser      *Parser
}

func NewClaude(opts ClaudeOptions) *Claude {
	if opts.Model == "" {
		opts.Model = defaultClaudeModel
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

	return &Claude{
		apiKey:      opts.APIKey,
		model:       opts.Model,
		apiURL:      defaultClaudeURL,
		temperature: opts.Temperature,
		system:      SystemPrompt(opts.RealtorName),
		loc:         opts.Location,
		parser:      opts.Parser,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Extract sends the turn and its context to Claude and parses the JSON reply
func (c *Claude) Extract(ctx context.Context, req Request) (*Extraction, error) {
	body := anthropicRequest{
		Model:       c.model,
		MaxTokens:   defaultMaxTokens,
		Temperature: c.temperature,
		System:      c.system,
		Messages: []anthropicMessage{
			{Role: "user", Content: BuildUserPrompt(req, c.loc)},
		},
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API error (status %d): %s", ErrUnavailable, resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", ErrUnavailable, err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("%w: API error: %s - %s", ErrUnavailable, apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return nil, fmt.Errorf("%w: empty response from API", ErrUnparseable)
	}

	return c.parser.Parse(apiResp.Content[0].Text)
}

// IsConfigured returns true if the client has an API key
func (c *Claude) IsConfigured() bool {
	return c.apiKey != ""
}
