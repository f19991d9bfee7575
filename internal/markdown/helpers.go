package markdown

import (
	"html"
	"strings"
)

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `._[](){}#|!+-=*~>` + "`"

// Parse modes accepted by the Bot API. An empty mode sends plain text.
const (
	ParseModePlain      = ""
	ParseModeHTML       = "HTML"
	ParseModeMarkdownV2 = "MarkdownV2"
)

func EscapeV2(input string) string {
	lookup := mdV2SpecialCharLookup()
	charsToEscape := 0

	for i := range len(input) {
		if lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// Inside the (...) part of a MarkdownV2 link only ')' and '\' must be escaped.
func escapeV2LinkURL(input string) string {
	r := strings.NewReplacer(`\`, `\\`, `)`, `\)`)
	return r.Replace(input)
}

// NormalizeParseMode maps user input to a Bot API parse mode, case-insensitively.
// Unknown values fall back to plain text.
func NormalizeParseMode(mode string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "plain", "none", "text":
		return ParseModePlain, true
	case "html":
		return ParseModeHTML, true
	case "markdownv2", "markdown":
		return ParseModeMarkdownV2, true
	default:
		return ParseModePlain, false
	}
}

// Link renders a titled link in the given parse mode.
func Link(parseMode, title, url string) string {
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)

	if title == "" {
		title = url
	}

	switch parseMode {
	case ParseModeMarkdownV2:
		return "[" + EscapeV2(title) + "](" + escapeV2LinkURL(url) + ")"
	case ParseModeHTML:
		return `<a href="` + html.EscapeString(url) + `">` + html.EscapeString(title) + "</a>"
	default:
		if title == url {
			return url
		}
		return title + "\n" + url
	}
}

func mdV2SpecialCharLookup() [256]bool {
	var m [256]bool
	for _, c := range []byte(mdV2SpecialChars) {
		m[c] = true
	}
	return m
}
