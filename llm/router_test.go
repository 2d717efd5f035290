package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type stubBackend struct {
	kind  Kind
	calls int
	fn    func(call int) (string, error)
}

func (s *stubBackend) Kind() Kind { return s.kind }

func (s *stubBackend) Complete(ctx context.Context, req *Request) (string, error) {
	s.calls++
	return s.fn(s.calls)
}

type stubFactory struct {
	active   Kind
	activeFn func() Kind
	backends map[Kind]*stubBackend
	errs     map[Kind]error
}

func (f *stubFactory) Active() Kind {
	if f.activeFn != nil {
		return f.activeFn()
	}
	return f.active
}

func (f *stubFactory) Backend(kind Kind) (Backend, error) {
	if err, ok := f.errs[kind]; ok {
		return nil, err
	}
	b, ok := f.backends[kind]
	if !ok {
		return nil, fmt.Errorf("no backend for %s", kind)
	}
	return b, nil
}

func failing(kind Kind, err error) *stubBackend {
	return &stubBackend{kind: kind, fn: func(int) (string, error) { return "", err }}
}

func succeeding(kind Kind, out string) *stubBackend {
	return &stubBackend{kind: kind, fn: func(int) (string, error) { return out, nil }}
}

func TestRouterOllamaSuccessFirstAttempt(t *testing.T) {
	daemon := succeeding(KindOllama, "hello")
	factory := &stubFactory{
		active:   KindOllama,
		backends: map[Kind]*stubBackend{KindOllama: daemon},
	}
	r := NewRouter(factory, WithBackoff(0))

	out, err := r.Complete(context.Background(), NewRequest("hi"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello" {
		t.Fatalf("out = %q, want %q", out, "hello")
	}
	if daemon.calls != 1 {
		t.Fatalf("daemon calls = %d, want 1", daemon.calls)
	}
}

func TestRouterOllamaRetriesThenSucceeds(t *testing.T) {
	daemon := &stubBackend{kind: KindOllama, fn: func(call int) (string, error) {
		if call < 3 {
			return "", WrapBackendError(KindOllama, ErrUnavailable)
		}
		return "third time", nil
	}}
	factory := &stubFactory{
		active:   KindOllama,
		backends: map[Kind]*stubBackend{KindOllama: daemon},
	}
	r := NewRouter(factory, WithBackoff(0))

	out, err := r.Complete(context.Background(), NewRequest("hi"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "third time" {
		t.Fatalf("out = %q", out)
	}
	if daemon.calls != 3 {
		t.Fatalf("daemon calls = %d, want 3", daemon.calls)
	}
}

func TestRouterOllamaFallsBackToOffline(t *testing.T) {
	daemon := failing(KindOllama, WrapBackendError(KindOllama, ErrUnavailable))
	offline := succeeding(KindOffline, "fallback answer")
	factory := &stubFactory{
		active: KindOllama,
		backends: map[Kind]*stubBackend{
			KindOllama:  daemon,
			KindOffline: offline,
		},
	}
	r := NewRouter(factory, WithBackoff(0))

	out, err := r.Complete(context.Background(), NewRequest("hi"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "fallback answer" {
		t.Fatalf("out = %q", out)
	}
	if daemon.calls != 3 {
		t.Fatalf("daemon calls = %d, want 3", daemon.calls)
	}
	if offline.calls != 1 {
		t.Fatalf("offline calls = %d, want 1", offline.calls)
	}
}

func TestRouterAllBackendsExhausted(t *testing.T) {
	daemonErr := WrapBackendError(KindOllama, ErrUnavailable)
	offlineErr := WrapBackendError(KindOffline, ErrEmptyResponse)
	factory := &stubFactory{
		active: KindOllama,
		backends: map[Kind]*stubBackend{
			KindOllama:  failing(KindOllama, daemonErr),
			KindOffline: failing(KindOffline, offlineErr),
		},
	}
	r := NewRouter(factory, WithBackoff(0))

	_, err := r.Complete(context.Background(), NewRequest("hi"))
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %T %v, want *ExhaustedError", err, err)
	}
	if len(exhausted.Attempts) != 4 {
		t.Fatalf("attempts = %d, want 4", len(exhausted.Attempts))
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("chain should carry ErrUnavailable")
	}
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("chain should carry ErrEmptyResponse")
	}
	if !errors.Is(exhausted.Last(), ErrEmptyResponse) {
		t.Errorf("Last() = %v, want offline cause", exhausted.Last())
	}
	msg := err.Error()
	for _, want := range []string{"ollama", "offline", "backend unavailable", "empty response"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestRouterOfflineSingleAttemptNoFallback(t *testing.T) {
	offline := failing(KindOffline, WrapBackendError(KindOffline, ErrUnavailable))
	factory := &stubFactory{
		active:   KindOffline,
		backends: map[Kind]*stubBackend{KindOffline: offline},
	}
	r := NewRouter(factory, WithBackoff(0))

	_, err := r.Complete(context.Background(), NewRequest("hi"))
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %T, want *ExhaustedError", err)
	}
	if len(exhausted.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(exhausted.Attempts))
	}
	if offline.calls != 1 {
		t.Fatalf("offline calls = %d, want 1", offline.calls)
	}
}

func TestRouterOpenRouterAuthFailureNotRetried(t *testing.T) {
	remote := failing(KindOpenRouter, WrapBackendError(KindOpenRouter, ErrAuthFailed))
	factory := &stubFactory{
		active:   KindOpenRouter,
		backends: map[Kind]*stubBackend{KindOpenRouter: remote},
	}
	r := NewRouter(factory, WithBackoff(0))

	_, err := r.Complete(context.Background(), NewRequest("hi"))
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed in chain", err)
	}
	if remote.calls != 1 {
		t.Fatalf("remote calls = %d, want 1", remote.calls)
	}
}

func TestRouterUnknownSelectionDefaultsToOffline(t *testing.T) {
	offline := succeeding(KindOffline, "ok")
	factory := &stubFactory{
		active:   Kind("mystery"),
		backends: map[Kind]*stubBackend{KindOffline: offline},
	}
	r := NewRouter(factory, WithBackoff(0))

	out, err := r.Complete(context.Background(), NewRequest("hi"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" {
		t.Fatalf("out = %q", out)
	}
	if offline.calls != 1 {
		t.Fatalf("offline calls = %d, want 1", offline.calls)
	}
}

func TestRouterReadsActiveSelectionPerCall(t *testing.T) {
	ollama := succeeding(KindOllama, "from daemon")
	remote := succeeding(KindOpenRouter, "from remote")
	selections := []Kind{KindOllama, KindOpenRouter}
	var call int
	factory := &stubFactory{
		activeFn: func() Kind {
			k := selections[call]
			call++
			return k
		},
		backends: map[Kind]*stubBackend{
			KindOllama:     ollama,
			KindOpenRouter: remote,
		},
	}
	r := NewRouter(factory, WithBackoff(0))

	if out, _ := r.Complete(context.Background(), NewRequest("a")); out != "from daemon" {
		t.Fatalf("first call routed to %q", out)
	}
	if out, _ := r.Complete(context.Background(), NewRequest("b")); out != "from remote" {
		t.Fatalf("second call routed to %q", out)
	}
	if ollama.calls != 1 || remote.calls != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", ollama.calls, remote.calls)
	}
}

func TestRouterFactoryErrorStillFallsBack(t *testing.T) {
	offline := succeeding(KindOffline, "ok")
	factory := &stubFactory{
		active:   KindOllama,
		backends: map[Kind]*stubBackend{KindOffline: offline},
		errs:     map[Kind]error{KindOllama: errors.New("construct failed")},
	}
	r := NewRouter(factory, WithBackoff(0))

	out, err := r.Complete(context.Background(), NewRequest("hi"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" {
		t.Fatalf("out = %q", out)
	}
}

func TestRouterCancelledContextStopsRetry(t *testing.T) {
	daemon := failing(KindOllama, WrapBackendError(KindOllama, ErrUnavailable))
	factory := &stubFactory{
		active:   KindOllama,
		backends: map[Kind]*stubBackend{KindOllama: daemon},
	}
	r := NewRouter(factory) // real backoff so the wait observes cancellation

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Complete(ctx, NewRequest("hi"))
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %T, want *ExhaustedError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("chain should carry context.Canceled, got %v", err)
	}
	if daemon.calls != 1 {
		t.Fatalf("daemon calls = %d, want 1 before cancellation", daemon.calls)
	}
}
