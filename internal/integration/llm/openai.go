package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// OpenAI implements Client against an OpenAI-compatible chat completions API.
type OpenAI struct {
	opts Options
	http *http.Client
	log  zerolog.Logger
}

var _ Client = (*OpenAI)(nil)

func NewOpenAI(opts Options, timeout time.Duration, log zerolog.Logger) *OpenAI {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &OpenAI{
		opts: opts,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion request. The system message is omitted
// when system is blank.
func (c *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	if c.opts.APIKey == "" {
		return "", fmt.Errorf("openai: API key not configured")
	}

	var messages []openAIMessage
	if strings.TrimSpace(system) != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: system})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: user})

	data, err := json.Marshal(openAIRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	start := time.Now()
	c.log.Debug().Str("model", c.opts.Model).Int("user_len", len(user)).Msg("openai request")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai: request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("openai: parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	content := parsed.Choices[0].Message.Content
	c.log.Debug().Dur("elapsed", time.Since(start)).Int("response_len", len(content)).Msg("openai response")

	return content, nil
}

// CloseIdleConnections releases pooled connections.
func (c *OpenAI) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}
