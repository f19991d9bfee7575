package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"teleaiposter/internal/config"
	"teleaiposter/internal/database"
	"teleaiposter/internal/poster"
	"teleaiposter/internal/source"
	"time"
)

const (
	DefaultLogPath = "teleaiposter.log"

	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type app struct {
	provider *config.Provider
	settings config.Settings
	poster   *poster.Poster
	journal  *database.Database
	log      *slog.Logger
	stdout   io.Writer
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("teleaiposter", flag.ContinueOnError)
	envPath := flags.String("env", config.DefaultPath, "settings file path")
	logPath := flags.String("log", DefaultLogPath, "log file used by the terminal UI")
	flags.Usage = func() { usage(flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	command, rest := "tui", []string(nil)
	if flags.NArg() > 0 {
		command, rest = flags.Arg(0), flags.Args()[1:]
	}

	start := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := config.NewProvider(*envPath)

	// Settings are read once here for the log level and the journal path;
	// every action re-reads them.
	settings, settingsErr := provider.Load()

	logOut := io.Writer(os.Stderr)
	if command == "tui" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file %q: %v\n", *logPath, err)
			return exitError
		}
		defer f.Close()
		logOut = f
	}

	log := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: parseLevel(settings.LogLevel)}))
	slog.SetDefault(log)

	if settingsErr != nil {
		log.WarnContext(ctx, "Failed to read settings file",
			"error", settingsErr,
			"path", provider.Path())
	}

	a := &app{
		provider: provider,
		settings: settings,
		log:      log,
		stdout:   os.Stdout,
	}

	if err := a.openJournal(ctx); err != nil {
		log.ErrorContext(ctx, "Failed to initialize history db",
			"error", err,
			"dbPath", settings.HistoryDBPath)

		return exitError
	}
	defer a.closeJournal(ctx)

	var journal poster.Journal
	if a.journal != nil {
		journal = a.journal
	}

	a.poster = poster.New(provider, source.NewFetcher(nil, log), journal, log)

	err := a.dispatch(ctx, command, rest)

	log.DebugContext(ctx, "Command is finished",
		"command", command,
		"uptimeSeconds", time.Since(start).Seconds())

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		usage(flags)
		return exitUsage
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitError
	}
}

func (a *app) openJournal(ctx context.Context) error {
	dbPath := a.settings.HistoryDBPath
	if dbPath == "" {
		a.log.InfoContext(ctx, "History db is disabled",
			"envVar", "HISTORY_DB_PATH")

		return nil
	}

	db, err := database.New(ctx, dbPath, a.log)
	if err != nil {
		return err
	}
	a.journal = db

	a.log.InfoContext(ctx, "History db is initialized",
		"dbPath", dbPath)

	return nil
}

func (a *app) closeJournal(ctx context.Context) {
	if a.journal == nil {
		return
	}

	if err := a.journal.Close(); err != nil {
		a.log.ErrorContext(ctx, "Failed to close history db",
			"error", err,
			"dbPath", a.settings.HistoryDBPath)
	}
}

func parseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo
	}

	return level
}

func usage(flags *flag.FlagSet) {
	out := flags.Output()
	fmt.Fprintln(out, "Usage: teleaiposter [--env FILE] [--log FILE] <command> [options]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  tui        interactive terminal UI (default)")
	fmt.Fprintln(out, "  generate   generate a post and print it")
	fmt.Fprintln(out, "  post       post text to the configured chat")
	fmt.Fprintln(out, "  run        generate and post in one go")
	fmt.Fprintln(out, "  schedule   generate and post on SCHEDULE_SPEC until interrupted")
	fmt.Fprintln(out, "  history    list recent posts from the history db")
	fmt.Fprintln(out, "  settings   print the current settings with secrets masked")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Global flags:")
	flags.PrintDefaults()
}
