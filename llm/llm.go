// Package llm defines the text-generation backend contract, the shared
// error taxonomy and the router that dispatches completion requests to
// the configured backend with retry and fallback handling.
package llm

import (
	"context"

	"github.com/sweetpotato0/gitwit/message"
)

// Kind identifies one of the interchangeable backend strategies.
type Kind string

const (
	// KindOllama talks to a local daemon over HTTP.
	KindOllama Kind = "ollama"
	// KindOffline runs a locally materialized model.
	KindOffline Kind = "offline"
	// KindOpenRouter calls a remote OpenAI-compatible API.
	KindOpenRouter Kind = "openrouter"
)

// Options carries optional sampling parameters. Zero values mean
// "backend default".
type Options struct {
	Temperature float64
	MaxTokens   int64
	TopP        float64
}

// Request is a single completion request. Exactly one of Prompt or
// Messages is meaningful per call; backends normalize to their native
// shape. A Request is immutable once constructed.
type Request struct {
	Prompt   string
	Messages []*message.Message
	Options  Options
}

// NewRequest builds a plain prompt request.
func NewRequest(prompt string) *Request {
	return &Request{Prompt: prompt}
}

// NewChatRequest builds a request from an ordered message list.
func NewChatRequest(msgs []*message.Message) *Request {
	return &Request{Messages: message.CloneMessages(msgs)}
}

// AsMessages returns the request content in message form, wrapping a
// bare prompt as a single user message.
func (r *Request) AsMessages() []*message.Message {
	if len(r.Messages) > 0 {
		return r.Messages
	}
	return []*message.Message{message.User(r.Prompt)}
}

// AsPrompt returns the request content as one prompt string, joining
// messages in order for backends without a chat-shaped API.
func (r *Request) AsPrompt() string {
	if len(r.Messages) == 0 {
		return r.Prompt
	}
	var out string
	for i, msg := range r.Messages {
		if i > 0 {
			out += "\n\n"
		}
		out += msg.Content
	}
	return out
}

// Backend is one text-generation execution environment. Implementations
// translate their environment's failures into the package error
// taxonomy before returning.
type Backend interface {
	// Kind reports which backend variant this is.
	Kind() Kind

	// Complete generates text for the request.
	Complete(ctx context.Context, req *Request) (string, error)
}
