package generator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"teleaiposter/internal/domain"
	"time"
)

const (
	DefaultGeminiModel = "gemini-2.5-flash"
	defaultTimeout     = 30 * time.Second
)

// Request is what a backend needs for one completion.
type Request struct {
	Prompt string
	Model  string
}

// Backend performs exactly one completion call and classifies its failures
// into the domain error taxonomy.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type backendFactory func(ctx context.Context, apiKey string, opts Options) (Backend, error)

type Options struct {
	Provider   string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Generator struct {
	opts       Options
	newBackend backendFactory
	log        *slog.Logger
}

func New(opts Options, log *slog.Logger) (*Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = ProviderGemini
	}
	opts.Provider = provider

	var factory backendFactory
	switch provider {
	case ProviderGemini:
		factory = newGeminiBackend
	case ProviderOpenAI:
		factory = newOpenAIBackend
	default:
		return nil, fmt.Errorf("%w: unknown AI provider %q", domain.ErrInvalidInput, opts.Provider)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	return &Generator{
		opts:       opts,
		newBackend: factory,
		log:        log,
	}, nil
}

func (g *Generator) Provider() string {
	return g.opts.Provider
}

// Generate asks the configured provider for a completion of prompt. It makes
// a single attempt; empty prompt or key fail before any request is sent.
func (g *Generator) Generate(ctx context.Context, prompt, apiKey, model string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", domain.InvalidInput("prompt")
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", domain.InvalidInput("AI API key")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModel(g.opts.Provider)
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	backend, err := g.newBackend(ctx, apiKey, g.opts)
	if err != nil {
		return "", fmt.Errorf("create %s client: %w", g.opts.Provider, err)
	}

	start := time.Now()

	text, err := backend.Complete(ctx, Request{Prompt: prompt, Model: model})
	if err != nil {
		g.log.WarnContext(ctx, "Generation failed",
			"error", err,
			"provider", g.opts.Provider,
			"model", model,
			"elapsedSeconds", time.Since(start).Seconds())

		return "", fmt.Errorf("generate content: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("generate content: %w", &domain.ServiceError{
			Service: g.opts.Provider,
			Message: "output text is missing",
		})
	}

	g.log.InfoContext(ctx, "Content is generated",
		"provider", g.opts.Provider,
		"model", model,
		"promptLength", len(prompt),
		"textLength", len(text),
		"elapsedSeconds", time.Since(start).Seconds())

	return text, nil
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return defaultOpenAIModel
	}

	return DefaultGeminiModel
}
