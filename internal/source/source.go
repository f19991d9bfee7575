package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"teleaiposter/internal/domain"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"mvdan.cc/xurls/v2"
)

const (
	feedClientTimeout = 20 * time.Second
	maxContentLength  = 4000
)

var errNoItems = errors.New("feed has no items")

// Fetcher reads the newest item of a feed to give the model something
// concrete to write about.
type Fetcher struct {
	libParser *gofeed.Parser
	cache     *itemCache
	now       func() time.Time
	log       *slog.Logger
}

func NewFetcher(client *http.Client, log *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: feedClientTimeout}
	}

	libParser := gofeed.NewParser()
	libParser.Client = client

	return &Fetcher{
		libParser: libParser,
		cache:     newItemCache(itemCacheMaxEntries),
		now:       time.Now,
		log:       log,
	}
}

func (f *Fetcher) Latest(ctx context.Context, feedURL string) (domain.SourceItem, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return domain.SourceItem{}, domain.InvalidInput("feed URL")
	}

	if cached, ok := f.cache.get(feedURL, f.now()); ok {
		f.log.DebugContext(ctx, "Feed item is taken from cache",
			"feedURL", feedURL,
			"itemURL", cached.URL)

		return cached, nil
	}

	parsed, err := f.libParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		if domain.IsTransportFailure(err) {
			return domain.SourceItem{}, domain.Transport("feed", err)
		}

		return domain.SourceItem{}, fmt.Errorf("parse feed by URL %q: %w", feedURL, err)
	}

	item := newestItem(parsed.Items)
	if item == nil {
		return domain.SourceItem{}, fmt.Errorf("parse feed by URL %q: %w", feedURL, errNoItems)
	}

	sourceItem, err := toSourceItem(item)
	if err != nil {
		return domain.SourceItem{}, fmt.Errorf("convert feed item: %w", err)
	}

	f.cache.set(feedURL, sourceItem, f.now())

	f.log.InfoContext(ctx, "Feed item is fetched",
		"feedURL", feedURL,
		"itemURL", sourceItem.URL,
		"textLength", len(sourceItem.Text))

	return sourceItem, nil
}

func newestItem(items []*gofeed.Item) *gofeed.Item {
	var newest *gofeed.Item

	for _, item := range items {
		if item == nil {
			continue
		}

		if newest == nil {
			newest = item
			continue
		}

		if item.PublishedParsed != nil &&
			(newest.PublishedParsed == nil || item.PublishedParsed.After(*newest.PublishedParsed)) {
			newest = item
		}
	}

	return newest
}

func toSourceItem(item *gofeed.Item) (domain.SourceItem, error) {
	content := item.Content
	if strings.TrimSpace(content) == "" {
		content = item.Description
	}

	text, err := htmlToText(content)
	if err != nil {
		return domain.SourceItem{}, err
	}

	link := strings.TrimSpace(item.Link)
	if link == "" {
		link, err = firstHTTPSURL(content)
		if err != nil {
			return domain.SourceItem{}, err
		}
	}

	sourceItem := domain.SourceItem{
		Title: strings.TrimSpace(item.Title),
		URL:   link,
		Text:  truncate(text, maxContentLength),
	}

	if item.PublishedParsed != nil {
		sourceItem.Published = item.PublishedParsed.UTC()
	}

	return sourceItem, nil
}

func htmlToText(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	doc.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml("\n")
	})
	doc.Find("p, li, h1, h2, h3, h4, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("script, style").Remove()

	lines := strings.Split(doc.Text(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n"), nil
}

func firstHTTPSURL(text string) (string, error) {
	httpsURLRe, err := xurls.StrictMatchingScheme("https://")
	if err != nil {
		return "", fmt.Errorf("create regexp: %w", err)
	}

	return httpsURLRe.FindString(text), nil
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return strings.TrimSpace(string(runes[:limit])) + "…"
}

// BuildPrompt appends the source item to the user's instructions.
func BuildPrompt(prompt string, item *domain.SourceItem) string {
	prompt = strings.TrimSpace(prompt)
	if item == nil {
		return prompt
	}

	b := strings.Builder{}
	b.WriteString(prompt)
	b.WriteString("\n\n")

	if item.Title != "" {
		b.WriteString("Title:\n")
		b.WriteString(item.Title)
		b.WriteString("\n")
	}
	if item.URL != "" {
		b.WriteString("Source:\n")
		b.WriteString(item.URL)
		b.WriteString("\n")
	}
	if item.Text != "" {
		b.WriteString("Content:\n")
		b.WriteString(item.Text)
	}

	return strings.TrimSpace(b.String())
}
