package generator

import (
	"context"
	"errors"
	"log/slog"
	"teleaiposter/internal/domain"
	"testing"
	"time"
)

type stubBackend struct {
	text  string
	err   error
	calls int
	last  Request
}

func (s *stubBackend) Complete(_ context.Context, req Request) (string, error) {
	s.calls++
	s.last = req

	return s.text, s.err
}

func newStubGenerator(t *testing.T, provider string, backend *stubBackend) *Generator {
	t.Helper()

	g, err := New(Options{Provider: provider, Timeout: time.Second}, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g.newBackend = func(context.Context, string, Options) (Backend, error) {
		return backend, nil
	}

	return g
}

func TestGenerateTrimsOutput(t *testing.T) {
	backend := &stubBackend{text: "\n  Our new app launches today — try it now!  \n"}
	g := newStubGenerator(t, ProviderGemini, backend)

	got, err := g.Generate(context.Background(), "Write a 1-sentence announcement about a product launch", "key", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "Our new app launches today — try it now!" {
		t.Fatalf("unexpected text: %q", got)
	}

	if backend.last.Model != DefaultGeminiModel {
		t.Fatalf("expected default model, got %q", backend.last.Model)
	}
}

func TestGenerateRejectsEmptyInputWithoutCall(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		apiKey string
	}{
		{"Empty prompt", "", "key"},
		{"Whitespace prompt", "  \n", "key"},
		{"Empty key", "prompt", ""},
		{"Both empty", "", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			backend := &stubBackend{text: "unused"}
			g := newStubGenerator(t, ProviderOpenAI, backend)

			_, err := g.Generate(context.Background(), test.prompt, test.apiKey, "model")
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}

			if backend.calls != 0 {
				t.Fatalf("expected no backend call, got %d", backend.calls)
			}
		})
	}
}

func TestGenerateEmptyOutputIsServiceError(t *testing.T) {
	g := newStubGenerator(t, ProviderOpenAI, &stubBackend{text: "   "})

	_, err := g.Generate(context.Background(), "prompt", "key", "")
	if !errors.Is(err, domain.ErrService) {
		t.Fatalf("expected ErrService, got %v", err)
	}
}

func TestGeneratePassesBackendErrorThrough(t *testing.T) {
	upstream := &domain.ServiceError{Service: ProviderGemini, Status: 429, Message: "quota exceeded"}
	g := newStubGenerator(t, ProviderGemini, &stubBackend{err: upstream})

	_, err := g.Generate(context.Background(), "prompt", "key", "gemini-2.5-pro")

	var serviceErr *domain.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected ServiceError, got %v", err)
	}

	if serviceErr.Status != 429 || serviceErr.Message != "quota exceeded" {
		t.Fatalf("expected upstream detail to be preserved, got %+v", serviceErr)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New(Options{Provider: "claude-on-a-toaster"}, slog.Default()); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDefaultModel(t *testing.T) {
	if got := defaultModel(ProviderOpenAI); got != defaultOpenAIModel {
		t.Errorf("Expected %q, got %q", defaultOpenAIModel, got)
	}

	if got := defaultModel(ProviderGemini); got != DefaultGeminiModel {
		t.Errorf("Expected %q, got %q", DefaultGeminiModel, got)
	}
}
