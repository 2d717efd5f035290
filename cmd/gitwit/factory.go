package main

import (
	"fmt"
	"sync"

	"github.com/sweetpotato0/gitwit/config"
	"github.com/sweetpotato0/gitwit/llm"
	"github.com/sweetpotato0/gitwit/llm/backend/offline"
	"github.com/sweetpotato0/gitwit/llm/backend/ollama"
	"github.com/sweetpotato0/gitwit/llm/backend/openrouter"
	"github.com/sweetpotato0/gitwit/ui"
)

// backendFactory builds adapters from the configuration. The selection
// and per-backend settings are re-read on every call so config changes
// between commands take effect; only the offline backend instance is
// kept, because its model handle lives for the process lifetime.
type backendFactory struct {
	console *ui.Console

	mu      sync.Mutex
	offline *offline.Backend
}

func newBackendFactory(console *ui.Console) *backendFactory {
	return &backendFactory{console: console}
}

// Active implements llm.Factory.
func (f *backendFactory) Active() llm.Kind {
	cfg, err := config.Load()
	if err != nil {
		return ""
	}
	return llm.Kind(cfg.ActiveBackend())
}

// Backend implements llm.Factory.
func (f *backendFactory) Backend(kind llm.Kind) (llm.Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	switch kind {
	case llm.KindOllama:
		return ollama.New(ollama.DefaultConfig(cfg.OllamaURL, cfg.OllamaModel)), nil
	case llm.KindOpenRouter:
		c := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
		return openrouter.New(c), nil
	case llm.KindOffline:
		return f.offlineBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
}

func (f *backendFactory) offlineBackend(cfg *config.Config) *offline.Backend {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline == nil {
		c := offline.DefaultConfig(cfg.OfflineModel)
		c.DownloadURL = cfg.OfflineModelURL
		f.offline = offline.New(c, &consentPrompter{console: f.console})
	}
	return f.offline
}

// consentPrompter routes the one-time model download decision through
// the console.
type consentPrompter struct {
	console *ui.Console
}

func (p *consentPrompter) Confirm(question string) bool {
	return p.console.Confirm(question, false)
}
