package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"teleaiposter/internal/domain"
	"teleaiposter/internal/scheduler"
	"teleaiposter/internal/shell"
	"text/tabwriter"
	"time"
)

const defaultHistoryLimit = 20

var errUsage = errors.New("invalid usage")

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "tui":
		return shell.Run(ctx, a.poster, a.provider.Path(), a.log)
	case "generate":
		return a.generate(ctx, args)
	case "post":
		return a.post(ctx, args)
	case "run":
		return a.runOnce(ctx, args)
	case "schedule":
		return a.schedule(ctx)
	case "history":
		return a.history(ctx, args)
	case "settings":
		return a.printSettings()
	default:
		a.log.ErrorContext(ctx, "Unknown command",
			"command", command)

		return errUsage
	}
}

func parseArgs(flags *flag.FlagSet, args []string) error {
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %w", errUsage, flags.Name(), err)
	}

	if flags.NArg() > 0 {
		return fmt.Errorf("%w: %s: unexpected arguments %q", errUsage, flags.Name(), flags.Args())
	}

	return nil
}

func (a *app) generate(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("generate", flag.ContinueOnError)
	prompt := flags.String("prompt", "", "prompt text, DEFAULT_PROMPT when empty")
	withSource := flags.Bool("source", false, "attach the newest FEED_URL item")

	if err := parseArgs(flags, args); err != nil {
		return err
	}

	draft, err := a.poster.NewDraft()
	if err != nil {
		return err
	}

	if *prompt != "" {
		draft.Prompt = *prompt
	}

	if *withSource {
		if err = a.poster.AttachSource(ctx, &draft); err != nil {
			return err
		}
	}

	if err = a.poster.Generate(ctx, &draft); err != nil {
		return err
	}

	_, err = fmt.Fprintln(a.stdout, draft.Body)
	return err
}

func (a *app) post(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("post", flag.ContinueOnError)
	text := flags.String("text", "", "message text, read from stdin when empty")
	truncate := flags.Bool("truncate", false, "cut text longer than the Telegram limit")

	if err := parseArgs(flags, args); err != nil {
		return err
	}

	body := *text
	if body == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		body = string(raw)
	}

	draft := domain.DraftPost{Body: strings.TrimSpace(body)}

	limit, err := a.poster.BodyLimit(draft)
	if err != nil {
		return err
	}

	if draft.BodyLength() > limit {
		if !*truncate {
			return fmt.Errorf("%w: text has %d characters, limit is %d (use -truncate)",
				domain.ErrInvalidInput, draft.BodyLength(), limit)
		}
		draft.Body = domain.TruncateBody(draft.Body, limit)
	}

	result, err := a.poster.Publish(ctx, draft)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.stdout, "posted message %d\n", result.MessageID)
	return err
}

func (a *app) runOnce(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	prompt := flags.String("prompt", "", "prompt text, DEFAULT_PROMPT when empty")
	skipPosted := flags.Bool("skip-posted", false, "do nothing when the feed item is already in the history db")

	if err := parseArgs(flags, args); err != nil {
		return err
	}

	draft, result, ok, err := a.poster.Run(ctx, *prompt, *skipPosted)
	if err != nil {
		return err
	}

	if !ok {
		_, err = fmt.Fprintln(a.stdout, "skipped: source item is already posted")
		return err
	}

	_, err = fmt.Fprintf(a.stdout, "posted message %d (%d characters)\n", result.MessageID, draft.BodyLength())
	return err
}

func (a *app) schedule(ctx context.Context) error {
	settings, err := a.poster.Settings()
	if err != nil {
		return err
	}

	if settings.ScheduleSpec == "" {
		return domain.InvalidInput("SCHEDULE_SPEC")
	}

	sched := scheduler.New(ctx, settings.ScheduleSpec, settings.SchedulePrompt, a.poster, a.log)

	if err = sched.Start(); err != nil {
		a.log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", settings.ScheduleSpec)

		return fmt.Errorf("start scheduler: %w", err)
	}
	a.log.InfoContext(ctx, "Scheduler is started",
		"spec", sched.Spec(),
		"nextRun", sched.Next().Format(time.RFC3339))

	<-ctx.Done()
	a.log.InfoContext(ctx, "Shutdown signal is received",
		"error", context.Cause(ctx))

	sched.Stop()
	a.log.InfoContext(ctx, "Scheduler is stopped")

	return nil
}

func (a *app) history(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := flags.Int("limit", defaultHistoryLimit, "number of entries to show")

	if err := parseArgs(flags, args); err != nil {
		return err
	}

	if a.journal == nil {
		return domain.InvalidInput("HISTORY_DB_PATH")
	}

	entries, err := a.journal.ListRecent(ctx, *limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tCHAT\tMESSAGE\tTEXT")

	for _, e := range entries {
		text := e.Body
		if e.Status == domain.PostStatusFailed {
			text = e.ErrorDetail
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			e.ID,
			e.CreatedAt.Local().Format(time.DateTime),
			e.Status,
			e.ChatID,
			e.MessageID,
			preview(text))
	}

	return w.Flush()
}

func (a *app) printSettings() error {
	settings, err := a.poster.Settings()
	if err != nil {
		return err
	}
	s := settings.Redacted()

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"SETTINGS_FILE", a.provider.Path()},
		{"AI_PROVIDER", s.AIProvider},
		{"AI_API_KEY", s.AIAPIKey},
		{"AI_MODEL", s.AIModel},
		{"AI_BASE_URL", s.AIBaseURL},
		{"TELEGRAM_BOT_TOKEN", s.BotToken},
		{"TELEGRAM_GROUP_ID", s.ChatID},
		{"TELEGRAM_PARSE_MODE", s.ParseMode},
		{"TELEGRAM_API_URL", s.TelegramAPIURL},
		{"REQUEST_TIMEOUT", s.RequestTimeout.String()},
		{"HISTORY_DB_PATH", s.HistoryDBPath},
		{"FEED_URL", s.FeedURL},
		{"SCHEDULE_SPEC", s.ScheduleSpec},
		{"SCHEDULE_PROMPT", s.SchedulePrompt},
		{"DEFAULT_PROMPT", s.DefaultPrompt},
		{"LOG_LEVEL", s.LogLevel},
	}

	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}

	return w.Flush()
}

func preview(text string) string {
	const maxPreview = 60

	text = strings.Join(strings.Fields(text), " ")

	return domain.TruncateBody(text, maxPreview)
}
