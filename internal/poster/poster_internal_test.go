package poster

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"teleaiposter/internal/config"
	"teleaiposter/internal/domain"
	"testing"
)

type staticSettings struct {
	settings config.Settings
	loads    int
}

func (s *staticSettings) Load() (config.Settings, error) {
	s.loads++
	return s.settings, nil
}

func TestActionsAreSerialized(t *testing.T) {
	settings := &staticSettings{}
	p := New(settings, nil, nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	release, err := p.acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.Busy() {
		t.Fatalf("expected poster to be busy")
	}

	draft := domain.DraftPost{Prompt: "prompt", Body: "body"}

	if err = p.Generate(context.Background(), &draft); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy from Generate, got %v", err)
	}

	result, err := p.Publish(context.Background(), draft)
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy from Publish, got %v", err)
	}

	if result.Success || result.ErrorDetail == "" {
		t.Fatalf("expected failed result with detail, got %+v", result)
	}

	if draft.Body != "body" {
		t.Fatalf("expected draft to stay intact, got %q", draft.Body)
	}

	if settings.loads != 0 {
		t.Fatalf("expected rejected actions not to load settings, got %d loads", settings.loads)
	}

	release()

	if p.Busy() {
		t.Fatalf("expected poster to be idle after release")
	}
}

func TestComposeBody(t *testing.T) {
	source := &domain.SourceItem{Title: "App v2.0", URL: "https://example.com/app"}

	tests := []struct {
		name      string
		draft     domain.DraftPost
		parseMode string
		want      string
	}{
		{
			"No source",
			domain.DraftPost{Body: " text "},
			"",
			"text",
		},
		{
			"Plain source",
			domain.DraftPost{Body: "text", Source: source},
			"",
			"text\n\nApp v2.0\nhttps://example.com/app",
		},
		{
			"MarkdownV2 source",
			domain.DraftPost{Body: "text", Source: source},
			"MarkdownV2",
			"text\n\n[App v2\\.0](https://example.com/app)",
		},
		{
			"Link already in body",
			domain.DraftPost{Body: "see https://example.com/app", Source: source},
			"",
			"see https://example.com/app",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := composeBody(test.draft, test.parseMode); got != test.want {
				t.Errorf("Expected %q, got %q", test.want, got)
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	source := &domain.SourceItem{Title: "App 2.0", URL: "https://example.com/app-2"}

	tests := []struct {
		name      string
		draft     domain.DraftPost
		parseMode string
		want      int
	}{
		{
			"No source",
			domain.DraftPost{Body: "text"},
			"",
			domain.TelegramMessageMaxLength,
		},
		{
			"Source without URL",
			domain.DraftPost{Body: "text", Source: &domain.SourceItem{Title: "Notes"}},
			"",
			domain.TelegramMessageMaxLength,
		},
		{
			"Plain footer",
			domain.DraftPost{Body: "text", Source: source},
			"",
			domain.TelegramMessageMaxLength - len("\n\nApp 2.0\nhttps://example.com/app-2"),
		},
		{
			"HTML footer",
			domain.DraftPost{Body: "text", Source: source},
			"HTML",
			domain.TelegramMessageMaxLength - len("\n\n"+`<a href="https://example.com/app-2">App 2.0</a>`),
		},
		{
			"Long title is capped",
			domain.DraftPost{Body: "text", Source: &domain.SourceItem{Title: strings.Repeat("t", 5000), URL: "https://example.com/x"}},
			"",
			domain.TelegramMessageMaxLength - (2 + maxFooterTitleLength + 1 + len("https://example.com/x")),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := bodyLimit(test.draft, test.parseMode); got != test.want {
				t.Errorf("Expected %d, got %d", test.want, got)
			}
		})
	}
}

func TestComposedBodyFitsLimit(t *testing.T) {
	source := &domain.SourceItem{Title: "Заголовок новости", URL: "https://example.com/новость"}
	draft := domain.DraftPost{Body: strings.Repeat("ж", domain.TelegramMessageMaxLength), Source: source}

	for _, parseMode := range []string{"", "HTML", "MarkdownV2"} {
		draft.Body = domain.TruncateBody(draft.Body, bodyLimit(draft, parseMode))

		if n := len([]rune(composeBody(draft, parseMode))); n > domain.TelegramMessageMaxLength {
			t.Fatalf("parse mode %q: expected at most %d characters, got %d", parseMode, domain.TelegramMessageMaxLength, n)
		}
	}
}
