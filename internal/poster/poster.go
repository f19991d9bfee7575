package poster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"teleaiposter/internal/config"
	"teleaiposter/internal/domain"
	"teleaiposter/internal/generator"
	"teleaiposter/internal/markdown"
	"teleaiposter/internal/publisher"
	"teleaiposter/internal/ratelimiter"
	"teleaiposter/internal/source"
	"time"
	"unicode/utf8"
)

// ErrBusy is returned when an action is requested while another one is
// still in flight.
var ErrBusy = errors.New("another action is in progress")

// Longer feed titles are cut before they go into the source footer.
const maxFooterTitleLength = 200

type SettingsLoader interface {
	Load() (config.Settings, error)
}

type SourceFetcher interface {
	Latest(ctx context.Context, feedURL string) (domain.SourceItem, error)
}

type Journal interface {
	RecordPost(ctx context.Context, entry domain.JournalEntry) (int64, error)
	HasSourceKey(ctx context.Context, sourceKey string) (bool, error)
}

// Poster runs the user-facing actions. Settings are loaded at the start of
// every action and passed down explicitly.
type Poster struct {
	settings    SettingsLoader
	fetcher     SourceFetcher
	journal     Journal
	rateLimiter *ratelimiter.RateLimiter
	busy        atomic.Bool
	log         *slog.Logger
}

// New builds a Poster. fetcher and journal may be nil.
func New(
	settings SettingsLoader,
	fetcher SourceFetcher,
	journal Journal,
	log *slog.Logger,
) *Poster {
	return &Poster{
		settings:    settings,
		fetcher:     fetcher,
		journal:     journal,
		rateLimiter: ratelimiter.New(log),
		log:         log,
	}
}

func (p *Poster) Settings() (config.Settings, error) {
	s, err := p.settings.Load()
	if err != nil {
		return config.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	return s, nil
}

// NewDraft returns an empty draft seeded with the configured default prompt.
func (p *Poster) NewDraft() (domain.DraftPost, error) {
	s, err := p.Settings()
	if err != nil {
		return domain.DraftPost{}, err
	}

	return domain.DraftPost{Prompt: s.DefaultPrompt}, nil
}

func (p *Poster) Busy() bool {
	return p.busy.Load()
}

func (p *Poster) acquire() (func(), error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	return func() { p.busy.Store(false) }, nil
}

// AttachSource sets draft.Source to the newest item of the configured feed.
// It does nothing when no feed is configured.
func (p *Poster) AttachSource(ctx context.Context, draft *domain.DraftPost) error {
	release, err := p.acquire()
	if err != nil {
		return err
	}
	defer release()

	s, err := p.Settings()
	if err != nil {
		return err
	}

	if s.FeedURL == "" || p.fetcher == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.RequestTimeout)
	defer cancel()

	item, err := p.fetcher.Latest(ctx, s.FeedURL)
	if err != nil {
		return fmt.Errorf("fetch source: %w", err)
	}

	draft.Source = &item

	return nil
}

// AlreadyPosted reports whether the draft's source item was published before.
func (p *Poster) AlreadyPosted(ctx context.Context, draft domain.DraftPost) (bool, error) {
	if p.journal == nil || draft.Source == nil {
		return false, nil
	}

	key := draft.Source.Key()
	if key == "" {
		return false, nil
	}

	return p.journal.HasSourceKey(ctx, key)
}

// Generate fills draft.Body from the AI service. On failure the draft is left
// untouched.
func (p *Poster) Generate(ctx context.Context, draft *domain.DraftPost) error {
	release, err := p.acquire()
	if err != nil {
		return err
	}
	defer release()

	if strings.TrimSpace(draft.Prompt) == "" {
		return domain.InvalidInput("prompt")
	}

	s, err := p.Settings()
	if err != nil {
		return err
	}

	gen, err := generator.New(generator.Options{
		Provider: s.AIProvider,
		BaseURL:  s.AIBaseURL,
		Timeout:  s.RequestTimeout,
	}, p.log)
	if err != nil {
		return err
	}

	text, err := gen.Generate(ctx, source.BuildPrompt(draft.Prompt, draft.Source), s.AIAPIKey, s.AIModel)
	if err != nil {
		return err
	}

	draft.Body = text

	return nil
}

// Publish posts the draft body to the configured chat. A draft without a body
// is rejected before any settings are used.
func (p *Poster) Publish(ctx context.Context, draft domain.DraftPost) (domain.PublishResult, error) {
	release, err := p.acquire()
	if err != nil {
		return domain.PublishResult{ErrorDetail: domain.Describe(err)}, err
	}
	defer release()

	if !draft.HasBody() {
		err = domain.InvalidInput("draft body")
		return domain.PublishResult{ErrorDetail: domain.Describe(err)}, err
	}

	s, err := p.Settings()
	if err != nil {
		return domain.PublishResult{ErrorDetail: domain.Describe(err)}, err
	}

	pub := publisher.New(publisher.Options{
		ServerURL: s.TelegramAPIURL,
		ParseMode: s.ParseMode,
		Timeout:   s.RequestTimeout,
	}, p.rateLimiter, p.log)

	body := composeBody(draft, pub.ParseMode())

	if n := utf8.RuneCountInString(body); n > domain.TelegramMessageMaxLength {
		err = fmt.Errorf("%w: message has %d characters, limit is %d",
			domain.ErrInvalidInput, n, domain.TelegramMessageMaxLength)
		return domain.PublishResult{ErrorDetail: domain.Describe(err)}, err
	}

	result, err := pub.Publish(ctx, body, s.BotToken, s.ChatID)

	// Invalid input never reached Telegram, nothing to journal.
	if !errors.Is(err, domain.ErrInvalidInput) {
		p.record(ctx, draft, body, s.ChatID, result)
	}

	return result, err
}

func composeBody(draft domain.DraftPost, parseMode string) string {
	body := strings.TrimSpace(draft.Body)

	if draft.Source != nil && draft.Source.URL != "" && strings.Contains(body, draft.Source.URL) {
		return body
	}

	return body + sourceFooter(draft, parseMode)
}

func sourceFooter(draft domain.DraftPost, parseMode string) string {
	if draft.Source == nil || draft.Source.URL == "" {
		return ""
	}

	title := domain.TruncateBody(strings.TrimSpace(draft.Source.Title), maxFooterTitleLength)

	return "\n\n" + markdown.Link(parseMode, title, draft.Source.URL)
}

// BodyLimit returns how many characters of draft.Body fit into one message
// once the source footer for the configured parse mode is appended.
func (p *Poster) BodyLimit(draft domain.DraftPost) (int, error) {
	s, err := p.Settings()
	if err != nil {
		return 0, err
	}

	parseMode, _ := markdown.NormalizeParseMode(s.ParseMode)

	return bodyLimit(draft, parseMode), nil
}

func bodyLimit(draft domain.DraftPost, parseMode string) int {
	footer := utf8.RuneCountInString(sourceFooter(draft, parseMode))

	return max(domain.TelegramMessageMaxLength-footer, 0)
}

func (p *Poster) record(
	ctx context.Context,
	draft domain.DraftPost,
	body string,
	chatID string,
	result domain.PublishResult,
) {
	if p.journal == nil {
		return
	}

	entry := domain.JournalEntry{
		Prompt:      draft.Prompt,
		Body:        body,
		ChatID:      chatID,
		MessageID:   result.MessageID,
		Status:      domain.PostStatusFailed,
		ErrorDetail: result.ErrorDetail,
		CreatedAt:   time.Now(),
	}
	if result.Success {
		entry.Status = domain.PostStatusPublished
	}
	if draft.Source != nil {
		entry.SourceURL = draft.Source.URL
		entry.SourceKey = draft.Source.Key()
	}

	if _, err := p.journal.RecordPost(ctx, entry); err != nil {
		p.log.ErrorContext(ctx, "Failed to record post",
			"error", err,
			"chatID", chatID,
			"status", entry.Status)
	}
}

// Run performs a full unattended cycle: optional source, generate, publish.
// skipPosted makes it return early with ok = false when the source item has
// already been published.
func (p *Poster) Run(
	ctx context.Context,
	prompt string,
	skipPosted bool,
) (draft domain.DraftPost, result domain.PublishResult, ok bool, err error) {
	draft, err = p.NewDraft()
	if err != nil {
		return draft, result, false, err
	}

	if strings.TrimSpace(prompt) != "" {
		draft.Prompt = prompt
	}

	if err = p.AttachSource(ctx, &draft); err != nil {
		return draft, result, false, err
	}

	if skipPosted {
		posted, postedErr := p.AlreadyPosted(ctx, draft)
		if postedErr != nil {
			return draft, result, false, fmt.Errorf("check journal: %w", postedErr)
		}

		if posted {
			p.log.InfoContext(ctx, "Source item is already posted",
				"sourceKey", draft.Source.Key())

			return draft, result, false, nil
		}
	}

	if err = p.Generate(ctx, &draft); err != nil {
		return draft, result, false, err
	}

	limit, err := p.BodyLimit(draft)
	if err != nil {
		return draft, result, false, err
	}

	if draft.BodyLength() > limit {
		p.log.WarnContext(ctx, "Generated text is too long so it is truncated",
			"bodyLength", draft.BodyLength(),
			"limit", limit)

		draft.Body = domain.TruncateBody(strings.TrimSpace(draft.Body), limit)
	}

	result, err = p.Publish(ctx, draft)

	return draft, result, err == nil, err
}
