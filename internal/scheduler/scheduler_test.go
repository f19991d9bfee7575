package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"teleaiposter/internal/domain"
	"testing"
)

type stubRunner struct {
	mu         sync.Mutex
	calls      int
	prompt     string
	skipPosted bool
	err        error
}

func (r *stubRunner) Run(
	_ context.Context,
	prompt string,
	skipPosted bool,
) (domain.DraftPost, domain.PublishResult, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	r.prompt = prompt
	r.skipPosted = skipPosted

	if r.err != nil {
		return domain.DraftPost{}, domain.PublishResult{}, false, r.err
	}

	return domain.DraftPost{Body: "text"}, domain.PublishResult{Success: true, MessageID: 1}, true, nil
}

func newTestScheduler(spec string, runner Runner) *Scheduler {
	return New(context.Background(), spec, "Weekly digest", runner, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := newTestScheduler("every full moon", &stubRunner{})

	if err := s.Start(); err == nil {
		t.Fatalf("expected invalid spec to be rejected")
	}
}

func TestStartSchedulesNextRun(t *testing.T) {
	s := newTestScheduler("0 9 * * *", &stubRunner{})

	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	next := s.Next()
	if next.IsZero() {
		t.Fatalf("expected next run time")
	}

	if next.UTC().Hour() != 9 || next.UTC().Minute() != 0 {
		t.Fatalf("expected run at 09:00 UTC, got %v", next)
	}
}

func TestPostRunsOnceWithPrompt(t *testing.T) {
	runner := &stubRunner{}
	s := newTestScheduler("@hourly", runner)

	s.post()

	if runner.calls != 1 || runner.prompt != "Weekly digest" || !runner.skipPosted {
		t.Fatalf("unexpected run: %+v", runner)
	}
}

func TestPostSurvivesFailure(t *testing.T) {
	runner := &stubRunner{err: errors.New("boom")}
	s := newTestScheduler("@hourly", runner)

	s.post()
	s.post()

	if runner.calls != 2 {
		t.Fatalf("expected failures not to stop later runs, got %d calls", runner.calls)
	}
}

func TestPostSkipsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &stubRunner{}
	s := New(ctx, "@hourly", "", runner, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	s.post()

	if runner.calls != 0 {
		t.Fatalf("expected no run after shutdown, got %d", runner.calls)
	}
}
