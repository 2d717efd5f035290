package llm

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/gitwit/pkg/logging"
	"github.com/sweetpotato0/gitwit/pkg/telemetry"
)

const (
	// ollamaAttempts is the bounded retry budget for the daemon backend.
	ollamaAttempts = 3

	defaultBackoff = time.Second
)

// Completer is the router-facing generation contract consumed by the
// grouping engine and the extractor.
type Completer interface {
	Complete(ctx context.Context, req *Request) (string, error)
}

// Factory resolves the active backend selection and constructs adapters.
// Active is consulted on every router call: configuration can change
// between commands, so the selection is never cached.
type Factory interface {
	// Active returns the configured primary backend kind.
	Active() Kind

	// Backend returns the adapter for the given kind.
	Backend(kind Kind) (Backend, error)
}

// Router dispatches completion requests to the configured backend. The
// daemon backend gets a bounded retry with a fixed backoff and an
// ordered fallback to the offline backend; the offline and remote
// backends are terminal paths with a single attempt.
type Router struct {
	factory Factory
	logger  *slog.Logger
	tracer  trace.Tracer
	backoff time.Duration
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger overrides the component logger; mainly useful for tests.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBackoff overrides the fixed delay between daemon retry attempts.
func WithBackoff(d time.Duration) RouterOption {
	return func(r *Router) {
		if d >= 0 {
			r.backoff = d
		}
	}
}

// NewRouter constructs a Router bound to the provided factory.
func NewRouter(factory Factory, opts ...RouterOption) *Router {
	if factory == nil {
		panic("llm: factory cannot be nil")
	}
	r := &Router{
		factory: factory,
		logger:  logging.WithComponent("llm.router"),
		tracer:  otel.Tracer("gitwit/llm"),
		backoff: defaultBackoff,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Complete routes the request to the active backend. On total failure
// it returns an *ExhaustedError carrying every underlying cause.
func (r *Router) Complete(ctx context.Context, req *Request) (string, error) {
	kind := r.factory.Active()
	switch kind {
	case KindOllama, KindOffline, KindOpenRouter:
	default:
		// Unknown or unset selection defaults to the offline path.
		r.logger.Debug("unknown backend selection, defaulting to offline", "selected", string(kind))
		kind = KindOffline
	}

	ctx, span := r.tracer.Start(ctx, "llm.route",
		trace.WithAttributes(attribute.String("llm.backend", string(kind))))

	var (
		out string
		err error
	)
	if kind == KindOllama {
		out, err = r.completeWithFallback(ctx, req)
	} else {
		out, err = r.completeOnce(ctx, kind, req)
	}
	telemetry.End(span, err)
	return out, err
}

// completeOnce runs a single attempt against a terminal backend. The
// offline backend already is the fallback target, and remote failures
// are usually credential or quota issues that retries will not fix.
func (r *Router) completeOnce(ctx context.Context, kind Kind, req *Request) (string, error) {
	backend, err := r.factory.Backend(kind)
	if err != nil {
		return "", &ExhaustedError{Attempts: []Attempt{{Backend: kind, Err: err}}}
	}
	out, err := backend.Complete(ctx, req)
	if err != nil {
		r.logger.Error("backend call failed", "backend", string(kind), "error", err)
		return "", &ExhaustedError{Attempts: []Attempt{{Backend: kind, Err: err}}}
	}
	return out, nil
}

// completeWithFallback retries the daemon backend, then falls back to
// the offline backend once the retry budget is exhausted.
func (r *Router) completeWithFallback(ctx context.Context, req *Request) (string, error) {
	var attempts []Attempt

	daemon, err := r.factory.Backend(KindOllama)
	if err != nil {
		attempts = append(attempts, Attempt{Backend: KindOllama, Err: err})
	} else {
		for i := 1; i <= ollamaAttempts; i++ {
			out, err := daemon.Complete(ctx, req)
			if err == nil {
				return out, nil
			}
			r.logger.Warn("ollama call failed",
				"attempt", i, "of", ollamaAttempts, "error", err)
			attempts = append(attempts, Attempt{Backend: KindOllama, Err: err})
			if i < ollamaAttempts {
				if err := r.wait(ctx); err != nil {
					attempts = append(attempts, Attempt{Backend: KindOllama, Err: err})
					return "", &ExhaustedError{Attempts: attempts}
				}
			}
		}
	}

	r.logger.Warn("falling back to offline backend")
	fallback, err := r.factory.Backend(KindOffline)
	if err != nil {
		attempts = append(attempts, Attempt{Backend: KindOffline, Err: err})
		return "", &ExhaustedError{Attempts: attempts}
	}
	out, err := fallback.Complete(ctx, req)
	if err != nil {
		r.logger.Error("offline fallback failed", "error", err)
		attempts = append(attempts, Attempt{Backend: KindOffline, Err: err})
		return "", &ExhaustedError{Attempts: attempts}
	}
	return out, nil
}

func (r *Router) wait(ctx context.Context) error {
	if r.backoff == 0 {
		return nil
	}
	timer := time.NewTimer(r.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
