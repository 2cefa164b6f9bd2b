package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// Gemini implements Client with the Google GenAI SDK.
type Gemini struct {
	client *genai.Client
	opts   Options
	log    zerolog.Logger
}

var _ Client = (*Gemini)(nil)

// NewGemini creates a Gemini client. BaseURL, when set, overrides the API
// endpoint.
func NewGemini(ctx context.Context, opts Options, timeout time.Duration, log zerolog.Logger) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" || timeout > 0 {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
		if timeout > 0 {
			cfg.HTTPOptions.Timeout = &timeout
		}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Gemini{client: client, opts: opts, log: log}, nil
}

func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.opts.Temperature)),
	}
	if g.opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(g.opts.MaxTokens)
	}
	if strings.TrimSpace(system) != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	g.log.Debug().
		Str("model", g.opts.Model).
		Dur("elapsed", time.Since(start)).
		Int("response_len", len(text)).
		Msg("gemini response")

	return text, nil
}
