// Package llm provides chat completion clients for the generative services
// that write evolution scripts.
package llm

import (
	"context"
	"errors"
)

// Client sends a single system + user exchange and returns the reply text.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ErrEmptyResponse is returned when a service answers with no content.
var ErrEmptyResponse = errors.New("empty response")

// Options tune a completion client.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}
