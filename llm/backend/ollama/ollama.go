// Package ollama implements the local-daemon backend. It speaks the
// Ollama generate wire format: request {model, prompt, stream:false},
// response carrying a top-level "response" field.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sweetpotato0/gitwit/llm"
)

// Config holds ollama backend configuration
type Config struct {
	URL     string
	Model   string
	Timeout time.Duration
}

// DefaultConfig returns default ollama configuration
func DefaultConfig(url, model string) *Config {
	return &Config{
		URL:     url,
		Model:   model,
		Timeout: 30 * time.Second,
	}
}

// Backend implements the llm.Backend interface against a local daemon
type Backend struct {
	config *Config
	client *http.Client
}

// New creates a new ollama backend
func New(config *Config) *Backend {
	if config == nil {
		config = DefaultConfig("http://localhost:11434/api/generate", "llama3")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Backend{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Kind reports the daemon backend variant.
func (b *Backend) Kind() llm.Kind {
	return llm.KindOllama
}

// generateRequest is the daemon's generate request body
type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// generateResponse is the daemon's generate response body
type generateResponse struct {
	Response *string `json:"response"`
	Error    string  `json:"error,omitempty"`
}

// Complete sends the prompt to the local daemon and returns the
// generated text. Connection failures and non-2xx statuses map to
// ErrUnavailable; a reply without the response field maps to
// ErrProtocol.
func (b *Backend) Complete(ctx context.Context, req *llm.Request) (string, error) {
	payload := generateRequest{
		Model:  b.config.Model,
		Prompt: req.AsPrompt(),
		Stream: false,
	}
	if opts := samplingOptions(req.Options); len(opts) > 0 {
		payload.Options = opts
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", llm.WrapBackendError(llm.KindOllama,
			fmt.Errorf("%w: encode request: %v", llm.ErrProtocol, err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.URL, bytes.NewReader(body))
	if err != nil {
		return "", llm.WrapBackendError(llm.KindOllama,
			fmt.Errorf("%w: build request: %v", llm.ErrProtocol, err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", llm.WrapBackendError(llm.KindOllama,
			fmt.Errorf("%w: could not reach daemon at %s: %v", llm.ErrUnavailable, b.config.URL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", llm.WrapBackendError(llm.KindOllama,
			fmt.Errorf("%w: daemon at %s returned status %d", llm.ErrUnavailable, b.config.URL, resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.WrapBackendError(llm.KindOllama,
			fmt.Errorf("%w: read response: %v", llm.ErrUnavailable, err))
	}

	var generated generateResponse
	if err := json.Unmarshal(data, &generated); err != nil {
		return "", llm.WrapBackendError(llm.KindOllama,
			fmt.Errorf("%w: decode response: %v", llm.ErrProtocol, err))
	}
	if generated.Response == nil {
		return "", llm.WrapBackendError(llm.KindOllama,
			fmt.Errorf("%w: response field missing in daemon reply", llm.ErrProtocol))
	}
	return strings.TrimSpace(*generated.Response), nil
}

func samplingOptions(opts llm.Options) map[string]interface{} {
	out := map[string]interface{}{}
	if opts.Temperature > 0 {
		out["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		out["num_predict"] = opts.MaxTokens
	}
	if opts.TopP > 0 {
		out["top_p"] = opts.TopP
	}
	return out
}
