package source_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"teleaiposter/internal/domain"
	"teleaiposter/internal/source"
	"testing"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example news</title>
    <link>https://example.com</link>
    <description>News</description>
    <item>
      <title>Old release</title>
      <link>https://example.com/old</link>
      <description>Old news</description>
      <pubDate>Mon, 06 Jan 2025 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>App 2.0 launches</title>
      <link>https://example.com/app-2</link>
      <description><![CDATA[<p>The <b>new app</b> ships today.</p><p>Try it now.</p>]]></description>
      <pubDate>Tue, 07 Jan 2025 09:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func newFetcher() *source.Fetcher {
	return source.NewFetcher(nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestFetcherLatest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer server.Close()

	item, err := newFetcher().Latest(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if item.Title != "App 2.0 launches" || item.URL != "https://example.com/app-2" {
		t.Fatalf("expected newest item, got %+v", item)
	}

	if item.Text != "The new app ships today.\nTry it now." {
		t.Fatalf("unexpected text: %q", item.Text)
	}

	if item.Published.IsZero() {
		t.Fatalf("expected published time")
	}
}

func TestFetcherLatestRejectsEmptyURL(t *testing.T) {
	if _, err := newFetcher().Latest(context.Background(), " "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	item := &domain.SourceItem{
		Title: "App 2.0 launches",
		URL:   "https://example.com/app-2",
		Text:  "The new app ships today.",
	}

	got := source.BuildPrompt("  Write a post.  ", item)

	for _, want := range []string{"Write a post.\n\n", "Title:\nApp 2.0 launches", "Source:\nhttps://example.com/app-2", "Content:\nThe new app ships today."} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected prompt to contain %q, got %q", want, got)
		}
	}

	if got := source.BuildPrompt(" Write a post. ", nil); got != "Write a post." {
		t.Fatalf("expected prompt without source to be trimmed, got %q", got)
	}
}

func TestFetcherLatestReusesRecentItem(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer server.Close()

	fetcher := newFetcher()

	for range 2 {
		if _, err := fetcher.Latest(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if requests != 1 {
		t.Fatalf("expected one feed request, got %d", requests)
	}
}
