package scheduler

import (
	"context"
	"log/slog"
	"strings"
	"teleaiposter/internal/domain"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	runTimeout            = 5 * time.Minute
)

// Runner performs one unattended generate and publish cycle.
type Runner interface {
	Run(
		ctx context.Context,
		prompt string,
		skipPosted bool,
	) (domain.DraftPost, domain.PublishResult, bool, error)
}

type Scheduler struct {
	ctx    context.Context
	cron   *cron.Cron
	spec   string
	prompt string
	runner Runner
	log    *slog.Logger
}

func New(ctx context.Context, spec string, prompt string, runner Runner, log *slog.Logger) *Scheduler {
	logger := cronLogger{log: log}

	c := cron.New(
		cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{
		ctx:    ctx,
		cron:   c,
		spec:   strings.TrimSpace(spec),
		prompt: prompt,
		runner: runner,
		log:    log,
	}
}

func (s *Scheduler) Spec() string {
	return s.spec
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.post); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}

	return entries[0].Next
}

func (s *Scheduler) post() {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	draft, result, ok, err := s.runner.Run(ctx, s.prompt, true)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to run scheduled post",
			"error", err,
			"spec", s.spec,
			"sourceURL", sourceURL(draft))

		return
	}

	if !ok {
		s.log.InfoContext(ctx, "Scheduled post is skipped",
			"spec", s.spec,
			"sourceURL", sourceURL(draft))

		return
	}

	s.log.InfoContext(ctx, "Scheduled post is published",
		"spec", s.spec,
		"messageID", result.MessageID,
		"bodyLength", draft.BodyLength(),
		"sourceURL", sourceURL(draft))
}

func sourceURL(draft domain.DraftPost) string {
	if draft.Source == nil {
		return ""
	}

	return draft.Source.URL
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("Cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("Cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
