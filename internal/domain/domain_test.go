package domain_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"teleaiposter/internal/domain"
	"testing"
	"time"
)

func TestTruncateBody(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		limit int
		want  string
	}{
		{"Shorter than limit", "hello", 10, "hello"},
		{"Exactly limit", "hello", 5, "hello"},
		{"Longer than limit", "hello world", 5, "hello"},
		{"Multibyte runes are kept whole", "привет", 3, "при"},
		{"Zero limit", "hello", 0, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := domain.TruncateBody(test.body, test.limit); got != test.want {
				t.Errorf("Expected %q, got %q", test.want, got)
			}
		})
	}
}

func TestDraftPostTooLong(t *testing.T) {
	draft := domain.DraftPost{Body: strings.Repeat("ж", domain.TelegramMessageMaxLength)}
	if draft.TooLong() {
		t.Fatalf("expected %d characters to fit", domain.TelegramMessageMaxLength)
	}

	draft.Body += "ж"
	if !draft.TooLong() {
		t.Fatalf("expected %d characters to be too long", draft.BodyLength())
	}
}

func TestDraftPostHasBody(t *testing.T) {
	if (domain.DraftPost{Body: " \n\t"}).HasBody() {
		t.Fatalf("expected whitespace body to count as empty")
	}

	if !(domain.DraftPost{Body: "text"}).HasBody() {
		t.Fatalf("expected non-empty body")
	}
}

func TestServiceErrorMatchesErrService(t *testing.T) {
	err := fmt.Errorf("publish message: %w", &domain.ServiceError{
		Service: "telegram",
		Status:  400,
		Message: "Bad Request: chat not found",
	})

	if !errors.Is(err, domain.ErrService) {
		t.Fatalf("expected error to match ErrService")
	}

	if errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected error not to match ErrTransport")
	}

	var serviceErr *domain.ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Status != 400 {
		t.Fatalf("expected upstream status to be preserved, got %v", err)
	}

	if !strings.Contains(domain.Describe(err), "chat not found") {
		t.Fatalf("expected description to keep upstream detail, got %q", domain.Describe(err))
	}
}

func TestTransportWrapsCause(t *testing.T) {
	err := domain.Transport("gemini", context.DeadlineExceeded)

	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected error to match ErrTransport")
	}

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected cause to be preserved")
	}
}

func TestIsTransportFailure(t *testing.T) {
	if domain.IsTransportFailure(nil) {
		t.Fatalf("expected nil not to be a transport failure")
	}

	if !domain.IsTransportFailure(fmt.Errorf("do request: %w", context.DeadlineExceeded)) {
		t.Fatalf("expected deadline to be a transport failure")
	}

	if domain.IsTransportFailure(errors.New("decode response")) {
		t.Fatalf("expected plain error not to be a transport failure")
	}
}

func TestInvalidInput(t *testing.T) {
	err := domain.InvalidInput("prompt")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput")
	}

	if !strings.Contains(err.Error(), "prompt") {
		t.Fatalf("expected field name in error, got %q", err.Error())
	}
}

func TestSourceItemKey(t *testing.T) {
	published := time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC)

	withURL := domain.SourceItem{Title: "App 2.0", URL: " https://example.com/app-2 ", Published: published}
	if got := withURL.Key(); got != "https://example.com/app-2" {
		t.Fatalf("expected URL as key, got %q", got)
	}

	noURL := domain.SourceItem{Title: "Weekly notes", Text: "first fetch", Published: published}
	sameItemLater := domain.SourceItem{Title: "Weekly notes", Text: "edited text", Published: published.In(time.FixedZone("CET", 3600))}
	otherWeek := domain.SourceItem{Title: "Weekly notes", Published: published.AddDate(0, 0, 7)}

	if !strings.HasPrefix(noURL.Key(), "item:") {
		t.Fatalf("expected digest key, got %q", noURL.Key())
	}

	if noURL.Key() != sameItemLater.Key() {
		t.Fatalf("expected title and publish time to identify the item")
	}

	if noURL.Key() == otherWeek.Key() {
		t.Fatalf("expected different publish times to give different keys")
	}

	textOnly := domain.SourceItem{Text: "Just text."}
	if textOnly.Key() == "" || textOnly.Key() == (domain.SourceItem{Text: "Other text."}).Key() {
		t.Fatalf("expected text digest key for items without title and time")
	}

	if got := (domain.SourceItem{}).Key(); got != "" {
		t.Fatalf("expected empty item to have no key, got %q", got)
	}
}
