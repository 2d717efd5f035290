// Package openrouter implements the remote-API backend on the
// OpenAI-compatible chat-completions endpoint served by OpenRouter.
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/sweetpotato0/gitwit/llm"
	"github.com/sweetpotato0/gitwit/message"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// apiKeyEnv is consulted when the configuration carries no credential.
const apiKeyEnv = "OPENROUTER_API_KEY"

// Config holds openrouter backend configuration
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// DefaultConfig returns default openrouter configuration
func DefaultConfig(apiKey, model string) *Config {
	return &Config{
		APIKey:  apiKey,
		BaseURL: defaultBaseURL,
		Model:   model,
	}
}

// Backend implements the llm.Backend interface for OpenRouter
type Backend struct {
	config *Config
	client openai.Client
}

// New creates a new openrouter backend. The credential is resolved from
// the configuration first and the environment second; construction
// never fails so a missing key surfaces as ErrAuthFailed at call time
// with remediation guidance.
func New(config *Config) *Backend {
	if config == nil {
		config = DefaultConfig("", "")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv(apiKeyEnv)
	}

	client := openai.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
		option.WithHeader("HTTP-Referer", "https://github.com/sweetpotato0/gitwit"),
		option.WithHeader("X-Title", "gitwit"),
	)
	return &Backend{
		config: config,
		client: client,
	}
}

// Kind reports the remote-API backend variant.
func (b *Backend) Kind() llm.Kind {
	return llm.KindOpenRouter
}

// Complete sends a chat-completions request. A 401 maps to
// ErrAuthFailed so callers can say "check your key" rather than
// reporting a generic network error; empty choices map to
// ErrEmptyResponse.
func (b *Backend) Complete(ctx context.Context, req *llm.Request) (string, error) {
	if b.config.APIKey == "" {
		return "", llm.WrapBackendError(llm.KindOpenRouter,
			fmt.Errorf("%w: no API key found; set openrouter_api_key in the config or export %s", llm.ErrAuthFailed, apiKeyEnv))
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	for _, msg := range req.AsMessages() {
		switch msg.Role {
		case message.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(msg.Content))
		case message.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(msg.Content))
		default:
			msgs = append(msgs, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    openai.ChatModel(b.config.Model),
	}
	if req.Options.Temperature > 0 {
		params.Temperature = param.NewOpt(req.Options.Temperature)
	}
	if req.Options.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(req.Options.MaxTokens)
	}
	if req.Options.TopP > 0 {
		params.TopP = param.NewOpt(req.Options.TopP)
	}

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", llm.WrapBackendError(llm.KindOpenRouter, classify(err))
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", llm.WrapBackendError(llm.KindOpenRouter,
			fmt.Errorf("%w: provider returned no choices", llm.ErrEmptyResponse))
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: provider rejected the API key (401); check your key", llm.ErrAuthFailed)
		}
		return fmt.Errorf("%w: provider returned status %d: %v", llm.ErrProtocol, apierr.StatusCode, err)
	}
	return fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
}
