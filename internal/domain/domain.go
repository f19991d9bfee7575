package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"
)

// TelegramMessageMaxLength is the Bot API limit for a single text message.
const TelegramMessageMaxLength = 4096

type SourceItem struct {
	Title     string
	URL       string
	Text      string
	Published time.Time
}

// Key identifies the item across fetches. It is the URL when there is one,
// otherwise a digest of the title and publish time, or of the text when both
// are missing. An empty item has no key.
func (s SourceItem) Key() string {
	if url := strings.TrimSpace(s.URL); url != "" {
		return url
	}

	title := strings.TrimSpace(s.Title)

	var parts []string
	switch {
	case title != "" || !s.Published.IsZero():
		parts = []string{title}
		if !s.Published.IsZero() {
			parts = append(parts, s.Published.UTC().Format(time.RFC3339))
		}
	case strings.TrimSpace(s.Text) != "":
		parts = []string{strings.TrimSpace(s.Text)}
	default:
		return ""
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))

	return "item:" + hex.EncodeToString(sum[:])
}

// DraftPost is the post being prepared. Body is editable by the user after
// generation and before publishing.
type DraftPost struct {
	Prompt string
	Body   string
	Source *SourceItem
}

func (d DraftPost) HasBody() bool {
	return strings.TrimSpace(d.Body) != ""
}

// BodyLength counts characters, not bytes.
func (d DraftPost) BodyLength() int {
	return utf8.RuneCountInString(strings.TrimSpace(d.Body))
}

func (d DraftPost) TooLong() bool {
	return d.BodyLength() > TelegramMessageMaxLength
}

type PublishResult struct {
	Success     bool
	MessageID   int
	ErrorDetail string
}

type PostStatus string

const (
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

type JournalEntry struct {
	ID          int64
	Prompt      string
	Body        string
	ChatID      string
	SourceURL   string
	SourceKey   string
	MessageID   int
	Status      PostStatus
	ErrorDetail string
	CreatedAt   time.Time
}

// TruncateBody cuts body to at most limit characters without splitting a rune.
func TruncateBody(body string, limit int) string {
	if limit <= 0 {
		return ""
	}

	if utf8.RuneCountInString(body) <= limit {
		return body
	}

	runes := []rune(body)

	return string(runes[:limit])
}
