package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"teleaiposter/internal/domain"
	"teleaiposter/internal/markdown"
	"teleaiposter/internal/ratelimiter"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	serviceName    = "telegram"
	defaultTimeout = 30 * time.Second
)

type Options struct {
	// ServerURL overrides https://api.telegram.org, mostly for tests.
	ServerURL string
	ParseMode string
	Timeout   time.Duration
}

// Publisher posts finished drafts to a Telegram chat through the Bot API.
type Publisher struct {
	opts        Options
	rateLimiter *ratelimiter.RateLimiter
	log         *slog.Logger
}

func New(opts Options, rateLimiter *ratelimiter.RateLimiter, log *slog.Logger) *Publisher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	parseMode, ok := markdown.NormalizeParseMode(opts.ParseMode)
	if !ok {
		log.Warn("Unknown parse mode so plain text will be used",
			"parseMode", opts.ParseMode)
	}
	opts.ParseMode = parseMode

	if rateLimiter == nil {
		rateLimiter = ratelimiter.New(log)
	}

	return &Publisher{
		opts:        opts,
		rateLimiter: rateLimiter,
		log:         log,
	}
}

func (p *Publisher) ParseMode() string {
	return p.opts.ParseMode
}

// Publish sends body to chatID once. Calling it twice posts twice.
func (p *Publisher) Publish(
	ctx context.Context,
	body string,
	botToken string,
	chatID string,
) (domain.PublishResult, error) {
	body = strings.TrimSpace(body)
	botToken = strings.TrimSpace(botToken)
	chatID = strings.TrimSpace(chatID)

	var errs []error
	if body == "" {
		errs = append(errs, domain.InvalidInput("message body"))
	}
	if botToken == "" {
		errs = append(errs, domain.InvalidInput("bot token"))
	}
	if chatID == "" {
		errs = append(errs, domain.InvalidInput("chat ID"))
	}
	if len(errs) > 0 {
		return failed(errors.Join(errs...))
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	botOpts := []bot.Option{bot.WithSkipGetMe()}
	if p.opts.ServerURL != "" {
		botOpts = append(botOpts, bot.WithServerURL(p.opts.ServerURL))
	}

	api, err := bot.New(botToken, botOpts...)
	if err != nil {
		return failed(fmt.Errorf("%w: create bot: %w", domain.ErrInvalidInput, err))
	}

	if err = p.rateLimiter.Wait(ctx, chatID); err != nil {
		return failed(domain.Transport(serviceName, err))
	}

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   body,
	}
	if p.opts.ParseMode != markdown.ParseModePlain {
		params.ParseMode = models.ParseMode(p.opts.ParseMode)
	}

	start := time.Now()

	msg, err := api.SendMessage(ctx, params)
	if err != nil {
		err = classifyError(err)

		p.log.WarnContext(ctx, "Failed to publish message",
			"error", err,
			"chatID", chatID,
			"bodyLength", len(body),
			"elapsedSeconds", time.Since(start).Seconds())

		return failed(fmt.Errorf("publish message: %w", err))
	}

	p.log.InfoContext(ctx, "Message is published",
		"chatID", chatID,
		"messageID", msg.ID,
		"bodyLength", len(body),
		"elapsedSeconds", time.Since(start).Seconds())

	return domain.PublishResult{
		Success:   true,
		MessageID: msg.ID,
	}, nil
}

func failed(err error) (domain.PublishResult, error) {
	return domain.PublishResult{
		Success:     false,
		ErrorDetail: domain.Describe(err),
	}, err
}

func classifyError(err error) error {
	if domain.IsTransportFailure(err) {
		return domain.Transport(serviceName, err)
	}

	return &domain.ServiceError{
		Service: serviceName,
		Status:  statusOf(err),
		Message: err.Error(),
	}
}

func statusOf(err error) int {
	var tooManyErr *bot.TooManyRequestsError
	var migrateErr *bot.MigrateError

	switch {
	case errors.As(err, &tooManyErr):
		return http.StatusTooManyRequests
	case errors.As(err, &migrateErr):
		return http.StatusBadRequest
	case errors.Is(err, bot.ErrorBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, bot.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, bot.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, bot.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, bot.ErrorConflict):
		return http.StatusConflict
	default:
		return responseCode(err.Error())
	}
}

// responseCode reads the error code out of the library's fallback message:
// "error response from telegram for method <name>, <code> <description>".
func responseCode(message string) int {
	rest, ok := strings.CutPrefix(message, "error response from telegram for method ")
	if !ok {
		return 0
	}

	_, rest, ok = strings.Cut(rest, ", ")
	if !ok {
		return 0
	}

	code, _, _ := strings.Cut(rest, " ")

	status, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}

	return status
}
