package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewOpenAI(Options{
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/v1/",
		Model:       "gpt-4o",
		MaxTokens:   4000,
		Temperature: 0.7,
	}, 5*time.Second, zerolog.Nop())
	t.Cleanup(client.CloseIdleConnections)

	return client
}

func TestOpenAI_Complete(t *testing.T) {
	var got openAIRequest
	var auth, path string

	client := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "`+"```bash\\necho hi\\n```"+`"}}]}`)
	})

	reply, err := client.Complete(context.Background(), "be careful", "make it better")
	require.NoError(t, err)

	assert.Equal(t, "```bash\necho hi\n```", reply)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 4000, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be careful", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestOpenAI_NoSystemMessageWhenBlank(t *testing.T) {
	var got openAIRequest
	client := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = fmt.Fprint(w, `{"choices": [{"message": {"content": "ok"}}]}`)
	})

	_, err := client.Complete(context.Background(), "  ", "task")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestOpenAI_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusUnauthorized, `{"error": {"message": "bad key"}}`, "status 401"},
		{"api error", http.StatusOK, `{"error": {"message": "overloaded"}}`, "overloaded"},
		{"no choices", http.StatusOK, `{"choices": []}`, "empty response"},
		{"garbage", http.StatusOK, `not json`, "parse response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			})

			_, err := client.Complete(context.Background(), "", "task")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenAI_MissingKey(t *testing.T) {
	client := NewOpenAI(Options{BaseURL: "http://127.0.0.1:1"}, time.Second, zerolog.Nop())
	_, err := client.Complete(context.Background(), "", "task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not configured")
}
