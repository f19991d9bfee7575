package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"teleaiposter/internal/config"
	"teleaiposter/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateIdle state = iota
	stateFetching
	stateGenerating
	statePublishing
	stateConfirmTruncate
)

type tab int

const (
	tabMain tab = iota
	tabSettings
)

type editTarget int

const (
	editPrompt editTarget = iota
	editBody
	editSettings
)

const defaultEditor = "vi"

type (
	generatedMsg struct {
		body string
		err  error
	}
	publishedMsg struct {
		result domain.PublishResult
		err    error
	}
	sourceMsg struct {
		source *domain.SourceItem
		err    error
	}
	editorFinishedMsg struct {
		target editTarget
		path   string
		temp   bool
		err    error
	}
)

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	box     lipgloss.Style
	target  lipgloss.Style
	notSet  lipgloss.Style
	status  lipgloss.Style
	failure lipgloss.Style
	help    lipgloss.Style
	tab     lipgloss.Style
	tabOn   lipgloss.Style
}

type model struct {
	ctx          context.Context
	actions      Actions
	settingsPath string
	log          *slog.Logger

	draft    domain.DraftPost
	settings config.Settings
	state    state
	tab      tab
	status   string
	failed   bool
	limit    int

	width    int
	height   int
	renderer *glamour.TermRenderer
	styles   styles
}

func initialModel(ctx context.Context, actions Actions, settingsPath string, log *slog.Logger) model {
	m := model{
		ctx:          ctx,
		actions:      actions,
		settingsPath: settingsPath,
		log:          log,
		status:       "Ready.",
	}

	m.styles = styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		label:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		box:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		target:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		notSet:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		tab:     lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("244")),
		tabOn:   lipgloss.NewStyle().Padding(0, 2).Bold(true).Underline(true).Foreground(lipgloss.Color("205")),
	}

	m.reloadSettings()

	draft, err := actions.NewDraft()
	if err != nil {
		m.fail(err)
	}
	m.draft = draft

	return m
}

func (m model) Init() tea.Cmd { return nil }

func (m *model) reloadSettings() {
	s, err := m.actions.Settings()
	if err != nil {
		m.fail(err)
		return
	}

	m.settings = s.Redacted()
}

func (m *model) fail(err error) {
	m.status = domain.Describe(err)
	m.failed = true
}

func (m *model) ok(status string) {
	m.status = status
	m.failed = false
}

func (m model) busy() bool {
	return m.state == stateFetching || m.state == stateGenerating || m.state == statePublishing
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderer = newRenderer(msg.Width)
		return m, nil

	case generatedMsg:
		m.state = stateIdle
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.draft.Body = msg.body
		m.ok("AI content generated. Review and post!")
		return m, nil

	case publishedMsg:
		m.state = stateIdle
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.draft.Body = ""
		m.draft.Source = nil
		m.ok(fmt.Sprintf("Content posted successfully! (message %d)", msg.result.MessageID))
		return m, nil

	case sourceMsg:
		m.state = stateIdle
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		if msg.source == nil {
			m.ok("No feed is configured (FEED_URL).")
			return m, nil
		}
		m.draft.Source = msg.source
		m.ok("Source attached: " + msg.source.Title)
		return m, nil

	case editorFinishedMsg:
		return m.finishEdit(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	if k == "ctrl+c" {
		return m, tea.Quit
	}

	if m.state == stateConfirmTruncate {
		switch k {
		case "y", "Y":
			m.draft.Body = domain.TruncateBody(strings.TrimSpace(m.draft.Body), m.limit)
			return m.startPublish()
		case "n", "N", "esc":
			m.state = stateIdle
			m.ok("Posting cancelled due to message length.")
		}
		return m, nil
	}

	switch k {
	case "q":
		return m, tea.Quit
	case "tab":
		if m.tab == tabMain {
			m.tab = tabSettings
		} else {
			m.tab = tabMain
		}
		return m, nil
	case "r":
		m.reloadSettings()
		if !m.failed {
			m.ok("Settings reloaded.")
		}
		return m, nil
	}

	// Actions below are disabled until the in-flight call resolves.
	if m.busy() {
		return m, nil
	}

	switch k {
	case "g":
		return m.startGenerate()
	case "p":
		if !m.draft.HasBody() {
			m.fail(domain.InvalidInput("draft body"))
			return m, nil
		}
		limit, err := m.actions.BodyLimit(m.draft)
		if err != nil {
			m.fail(err)
			return m, nil
		}
		if m.draft.BodyLength() > limit {
			m.state = stateConfirmTruncate
			m.limit = limit
			m.ok(fmt.Sprintf("The content (%d characters) exceeds the room left in a Telegram message (%d characters). Truncate and post? [y/n]",
				m.draft.BodyLength(), limit))
			return m, nil
		}
		return m.startPublish()
	case "f":
		return m.startFetch()
	case "x":
		m.draft.Source = nil
		m.ok("Source removed.")
		return m, nil
	case "e":
		return m, m.edit(editPrompt)
	case "d":
		return m, m.edit(editBody)
	case "o":
		return m, m.edit(editSettings)
	}

	return m, nil
}

func (m model) startGenerate() (tea.Model, tea.Cmd) {
	m.state = stateGenerating
	m.ok("Generating AI content... Please wait.")

	ctx, actions, draft := m.ctx, m.actions, m.draft

	return m, func() tea.Msg {
		err := actions.Generate(ctx, &draft)
		return generatedMsg{body: draft.Body, err: err}
	}
}

func (m model) startPublish() (tea.Model, tea.Cmd) {
	m.state = statePublishing
	m.ok("Posting to Telegram... Please wait.")

	ctx, actions, draft := m.ctx, m.actions, m.draft

	return m, func() tea.Msg {
		result, err := actions.Publish(ctx, draft)
		return publishedMsg{result: result, err: err}
	}
}

func (m model) startFetch() (tea.Model, tea.Cmd) {
	m.state = stateFetching
	m.ok("Fetching the latest feed item...")

	ctx, actions, draft := m.ctx, m.actions, m.draft

	return m, func() tea.Msg {
		draft.Source = nil
		err := actions.AttachSource(ctx, &draft)
		return sourceMsg{source: draft.Source, err: err}
	}
}

func (m *model) edit(target editTarget) tea.Cmd {
	path := m.settingsPath
	temp := false

	if target != editSettings {
		content := m.draft.Prompt
		if target == editBody {
			content = m.draft.Body
		}

		f, err := os.CreateTemp("", "teleaiposter-*.txt")
		if err != nil {
			m.fail(fmt.Errorf("create temp file: %w", err))
			return nil
		}
		path = f.Name()
		temp = true

		_, writeErr := f.WriteString(content)
		if err = errors.Join(writeErr, f.Close()); err != nil {
			m.fail(fmt.Errorf("write temp file: %w", err))
			return nil
		}
	}

	cmd := exec.Command(editorCommand(), path) //nolint:gosec // Editor is chosen by the user.

	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{target: target, path: path, temp: temp, err: err}
	})
}

func (m model) finishEdit(msg editorFinishedMsg) model {
	if msg.temp {
		defer func() {
			if err := os.Remove(msg.path); err != nil {
				m.log.WarnContext(m.ctx, "Failed to remove temp file",
					"error", err,
					"path", msg.path)
			}
		}()
	}

	if msg.err != nil {
		m.fail(fmt.Errorf("run editor: %w", msg.err))
		return m
	}

	if msg.target == editSettings {
		m.reloadSettings()
		if !m.failed {
			m.ok("Settings reloaded.")
		}
		return m
	}

	content, err := os.ReadFile(msg.path)
	if err != nil {
		m.fail(fmt.Errorf("read temp file: %w", err))
		return m
	}

	text := strings.TrimSpace(string(content))

	switch msg.target {
	case editPrompt:
		m.draft.Prompt = text
		m.ok("Prompt updated.")
	case editBody:
		m.draft.Body = text
		m.ok("Draft updated.")
	}

	return m
}

func editorCommand() string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if editor := strings.TrimSpace(os.Getenv(key)); editor != "" {
			return editor
		}
	}

	return defaultEditor
}

func newRenderer(width int) *glamour.TermRenderer {
	wrap := width - 6
	if wrap < 20 {
		wrap = 20
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wrap))
	if err != nil {
		return nil
	}

	return renderer
}
