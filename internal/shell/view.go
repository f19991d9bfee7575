package shell

import (
	"fmt"
	"strings"
	"teleaiposter/internal/domain"
)

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("TeleAI-Poster: AI Agent for Telegram") + "\n")
	b.WriteString(m.renderTabs() + "\n\n")

	if m.tab == tabSettings {
		b.WriteString(m.renderSettings())
	} else {
		b.WriteString(m.renderMain())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m model) renderTabs() string {
	mainTab, settingsTab := m.styles.tabOn, m.styles.tab
	if m.tab == tabSettings {
		mainTab, settingsTab = m.styles.tab, m.styles.tabOn
	}

	return mainTab.Render("Main") + settingsTab.Render("Settings")
}

func (m model) boxWidth() int {
	if m.width <= 4 {
		return 0
	}

	return m.width - 4
}

func (m model) renderMain() string {
	var b strings.Builder

	box := m.styles.box
	if w := m.boxWidth(); w > 0 {
		box = box.Width(w)
	}

	b.WriteString(m.styles.label.Render("AI Prompt:") + "\n")
	b.WriteString(box.Render(orPlaceholder(m.draft.Prompt, "Press e to write a prompt.")) + "\n")

	if m.draft.Source != nil {
		b.WriteString(m.styles.label.Render("Source:") + " " + m.draft.Source.Title + " " + m.draft.Source.URL + "\n")
	}

	b.WriteString(m.styles.label.Render(fmt.Sprintf("Generated Content Preview (%d/%d):",
		m.draft.BodyLength(), domain.TelegramMessageMaxLength)) + "\n")
	b.WriteString(box.Render(m.renderBody()) + "\n")

	b.WriteString(m.styles.label.Render("Post Target:") + " Configured Group/Channel: ")
	if m.settings.ChatID == "" {
		b.WriteString(m.styles.notSet.Render("Not Set"))
	} else {
		b.WriteString(m.styles.target.Render(m.settings.ChatID))
	}
	b.WriteString("\n")

	return b.String()
}

func (m model) renderBody() string {
	if !m.draft.HasBody() {
		return "AI generated content will appear here..."
	}

	if m.renderer == nil {
		return m.draft.Body
	}

	rendered, err := m.renderer.Render(m.draft.Body)
	if err != nil {
		return m.draft.Body
	}

	return strings.TrimRight(rendered, "\n")
}

func (m model) renderSettings() string {
	s := m.settings

	rows := [][2]string{
		{"Settings file", m.settingsPath},
		{"AI provider", s.AIProvider},
		{"AI API key", s.AIAPIKey},
		{"AI model", orPlaceholder(s.AIModel, "(provider default)")},
		{"Telegram bot token", s.BotToken},
		{"Telegram group ID", s.ChatID},
		{"Parse mode", orPlaceholder(s.ParseMode, "plain text")},
		{"Request timeout", s.RequestTimeout.String()},
		{"Feed URL", s.FeedURL},
		{"History DB", s.HistoryDBPath},
	}

	var b strings.Builder
	for _, row := range rows {
		value := row[1]
		if value == "" {
			value = m.styles.notSet.Render("Not Set")
		}
		b.WriteString(m.styles.label.Render(row[0]+":") + " " + value + "\n")
	}

	b.WriteString("\nPress o to edit the settings file, r to reload it.\n")

	return b.String()
}

func (m model) renderStatus() string {
	if m.failed {
		return m.styles.failure.Render(m.status)
	}

	return m.styles.status.Render(m.status)
}

func (m model) renderHelp() string {
	if m.state == stateConfirmTruncate {
		return m.styles.help.Render("y truncate and post • n cancel")
	}

	if m.busy() {
		return m.styles.help.Render("working... • tab switch tab • ctrl+c quit")
	}

	return m.styles.help.Render("e edit prompt • g generate • d edit draft • p post • f attach feed item • x drop source • tab settings • q quit")
}

func orPlaceholder(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}

	return value
}
