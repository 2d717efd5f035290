// Package offline implements the local-model backend. The model
// artifact is materialized once per process: the first call checks the
// model directory, asks the user for consent before a multi-gigabyte
// download, and loads the tokenizer. The loaded handle lives for the
// process lifetime and is never torn down.
package offline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/sweetpotato0/gitwit/llm"
	"github.com/sweetpotato0/gitwit/pkg/logging"
)

const (
	defaultContextTokens = 2048
	defaultMaxNewTokens  = 256
	defaultEncoding      = "cl100k_base"
)

// Config holds offline backend configuration
type Config struct {
	// Model is the artifact name, stored as <ModelDir>/<Model>.gguf.
	Model string

	// ModelDir defaults to ~/.gitwit/models.
	ModelDir string

	// DownloadURL is where the artifact is fetched from when absent.
	DownloadURL string

	// RunnerPath is the llama-cli compatible binary; looked up in PATH
	// when empty.
	RunnerPath string

	// ContextTokens is the model context window.
	ContextTokens int

	// MaxNewTokens bounds generation length.
	MaxNewTokens int64

	// Encoding names the tiktoken encoding used for truncation.
	Encoding string
}

// DefaultConfig returns default offline configuration
func DefaultConfig(model string) *Config {
	return &Config{
		Model:         model,
		ContextTokens: defaultContextTokens,
		MaxNewTokens:  defaultMaxNewTokens,
		Encoding:      defaultEncoding,
	}
}

// Prompter asks the surrounding CLI for consent before the one-time
// model download proceeds.
type Prompter interface {
	Confirm(question string) bool
}

// Runner executes one generation pass over the materialized model.
type Runner interface {
	Generate(ctx context.Context, modelPath, prompt string, opts llm.Options) (string, error)
}

// Downloader fetches the model artifact to disk.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// Backend implements the llm.Backend interface over a local model
type Backend struct {
	config     *Config
	prompter   Prompter
	runner     Runner
	downloader Downloader
	logger     *slog.Logger

	// mu guards the one-time materialization so concurrent first use
	// cannot double-load; later calls see ready and return immediately.
	mu        sync.Mutex
	ready     bool
	modelPath string
	encoder   *tiktoken.Tiktoken
}

// Option configures a Backend.
type Option func(*Backend)

// WithRunner overrides the generation runner; mainly useful for tests.
func WithRunner(r Runner) Option {
	return func(b *Backend) {
		if r != nil {
			b.runner = r
		}
	}
}

// WithDownloader overrides the artifact downloader.
func WithDownloader(d Downloader) Option {
	return func(b *Backend) {
		if d != nil {
			b.downloader = d
		}
	}
}

// New creates a new offline backend. The prompter is required: model
// materialization is an interactive decision point.
func New(config *Config, prompter Prompter, opts ...Option) *Backend {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.ContextTokens <= 0 {
		config.ContextTokens = defaultContextTokens
	}
	if config.MaxNewTokens <= 0 {
		config.MaxNewTokens = defaultMaxNewTokens
	}
	if config.Encoding == "" {
		config.Encoding = defaultEncoding
	}
	b := &Backend{
		config:     config,
		prompter:   prompter,
		runner:     &execRunner{path: config.RunnerPath},
		downloader: &httpDownloader{},
		logger:     logging.WithComponent("llm.offline"),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(b)
	}
	return b
}

// Kind reports the local-model backend variant.
func (b *Backend) Kind() llm.Kind {
	return llm.KindOffline
}

// Complete materializes the model on first use, truncates the prompt to
// the context window from the end (most-recent content wins), runs the
// generation and strips the echoed prompt from the output.
func (b *Backend) Complete(ctx context.Context, req *llm.Request) (string, error) {
	if err := b.ensureModel(ctx); err != nil {
		return "", llm.WrapBackendError(llm.KindOffline, err)
	}

	prompt := b.truncate(req.AsPrompt())

	opts := req.Options
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = b.config.MaxNewTokens
	}

	out, err := b.runner.Generate(ctx, b.modelPath, prompt, opts)
	if err != nil {
		return "", llm.WrapBackendError(llm.KindOffline,
			fmt.Errorf("%w: local inference failed: %v", llm.ErrUnavailable, err))
	}

	out = stripEcho(out, prompt)
	if out == "" {
		return "", llm.WrapBackendError(llm.KindOffline,
			fmt.Errorf("%w: model produced no text", llm.ErrEmptyResponse))
	}
	return out, nil
}

// ensureModel is the once-per-process setup. A declined download is
// fatal to the call, not retryable by the router.
func (b *Backend) ensureModel(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready {
		return nil
	}

	dir := b.config.ModelDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("%w: resolve home directory: %v", llm.ErrUnavailable, err)
		}
		dir = filepath.Join(home, ".gitwit", "models")
	}
	path := filepath.Join(dir, b.config.Model+".gguf")

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("%w: stat model artifact: %v", llm.ErrUnavailable, err)
		}
		if err := b.download(ctx, path); err != nil {
			return err
		}
	}

	enc, err := tiktoken.GetEncoding(b.config.Encoding)
	if err != nil {
		return fmt.Errorf("%w: load tokenizer encoding %q: %v", llm.ErrUnavailable, b.config.Encoding, err)
	}

	b.modelPath = path
	b.encoder = enc
	b.ready = true
	return nil
}

func (b *Backend) download(ctx context.Context, path string) error {
	if b.config.DownloadURL == "" {
		return fmt.Errorf("%w: model %q is not present at %s and no download URL is configured",
			llm.ErrUnavailable, b.config.Model, path)
	}
	if b.prompter == nil || !b.prompter.Confirm(
		fmt.Sprintf("The local model %q is not present (multi-GB download required). Download it now?", b.config.Model)) {
		return fmt.Errorf("%w: model download declined; local AI features need the model", llm.ErrUnavailable)
	}

	b.logger.Info("downloading model", "model", b.config.Model, "url", b.config.DownloadURL)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create model directory: %v", llm.ErrUnavailable, err)
	}
	if err := b.downloader.Download(ctx, b.config.DownloadURL, path); err != nil {
		return fmt.Errorf("%w: model download failed: %v", llm.ErrUnavailable, err)
	}
	b.logger.Info("model downloaded", "path", path)
	return nil
}

// truncate keeps the tail of the prompt so the most recent content
// survives when the diff exceeds the context window.
func (b *Backend) truncate(prompt string) string {
	budget := b.config.ContextTokens - int(b.config.MaxNewTokens)
	if budget <= 0 {
		budget = b.config.ContextTokens
	}
	tokens := b.encoder.Encode(prompt, nil, nil)
	if len(tokens) <= budget {
		return prompt
	}
	return b.encoder.Decode(tokens[len(tokens)-budget:])
}

// stripEcho removes the leading prompt that completion-style runners
// repeat before the generated text.
func stripEcho(out, prompt string) string {
	out = strings.TrimSpace(out)
	prompt = strings.TrimSpace(prompt)
	if prompt != "" {
		if rest, ok := strings.CutPrefix(out, prompt); ok {
			out = rest
		}
	}
	return strings.TrimSpace(out)
}
