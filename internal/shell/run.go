package shell

import (
	"context"
	"log/slog"
	"teleaiposter/internal/config"
	"teleaiposter/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
)

// Actions is what the terminal UI needs from the core.
type Actions interface {
	Settings() (config.Settings, error)
	NewDraft() (domain.DraftPost, error)
	AttachSource(ctx context.Context, draft *domain.DraftPost) error
	Generate(ctx context.Context, draft *domain.DraftPost) error
	BodyLimit(draft domain.DraftPost) (int, error)
	Publish(ctx context.Context, draft domain.DraftPost) (domain.PublishResult, error)
}

// Run boots the TUI program and blocks until it exits.
func Run(ctx context.Context, actions Actions, settingsPath string, log *slog.Logger) error {
	m := initialModel(ctx, actions, settingsPath, log)
	program := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
