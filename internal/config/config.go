package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DefaultPath           = ".env"
	DefaultRequestTimeout = 30 * time.Second
	DefaultPrompt         = "Generate a concise and engaging social media post about recent advancements in artificial intelligence."

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Settings struct {
	AIProvider   string `env:"AI_PROVIDER"    envDefault:"gemini"`
	AIAPIKey     string `env:"AI_API_KEY"`
	AIModel      string `env:"AI_MODEL"`
	AIBaseURL    string `env:"AI_BASE_URL"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`

	BotToken       string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID         string `env:"TELEGRAM_GROUP_ID"`
	ParseMode      string `env:"TELEGRAM_PARSE_MODE"`
	TelegramAPIURL string `env:"TELEGRAM_API_URL"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	HistoryDBPath  string        `env:"HISTORY_DB_PATH"`
	FeedURL        string        `env:"FEED_URL"`
	ScheduleSpec   string        `env:"SCHEDULE_SPEC"`
	SchedulePrompt string        `env:"SCHEDULE_PROMPT"`
	DefaultPrompt  string        `env:"DEFAULT_PROMPT"`
	LogLevel       string        `env:"LOG_LEVEL"       envDefault:"info"`
}

// Provider reads settings from a dotenv file. It keeps no copy of the values:
// every Load sees the file as it is on disk at that moment.
type Provider struct {
	path    string
	environ func() []string
}

type Option func(*Provider)

// WithEnviron replaces the process environment overlay. nil disables it.
func WithEnviron(environ func() []string) Option {
	return func(p *Provider) {
		p.environ = environ
	}
}

func NewProvider(path string, opts ...Option) *Provider {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}

	p := &Provider{
		path:    path,
		environ: os.Environ,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Provider) Path() string {
	return p.path
}

// Load re-reads the settings file. Missing keys and a missing file are not
// errors: the affected values are empty and the operations that need them
// reject the input.
func (p *Provider) Load() (Settings, error) {
	values, err := godotenv.Read(p.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("read settings file %q: %w", p.path, err)
		}
		values = make(map[string]string)
	}

	// Process environment wins, like godotenv.Load.
	if p.environ != nil {
		for _, kv := range p.environ() {
			key, value, ok := strings.Cut(kv, "=")
			if ok {
				values[key] = value
			}
		}
	}

	var s Settings
	if err = env.ParseWithOptions(&s, env.Options{Environment: values}); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}

	s.normalize()

	return s, nil
}

func (s *Settings) normalize() {
	s.AIProvider = strings.ToLower(strings.TrimSpace(s.AIProvider))
	if s.AIProvider == "" {
		s.AIProvider = ProviderGemini
	}

	s.AIAPIKey = strings.TrimSpace(s.AIAPIKey)
	if s.AIAPIKey == "" {
		switch s.AIProvider {
		case ProviderGemini:
			s.AIAPIKey = strings.TrimSpace(s.GeminiAPIKey)
		case ProviderOpenAI:
			s.AIAPIKey = strings.TrimSpace(s.OpenAIAPIKey)
		}
	}

	s.AIModel = strings.TrimSpace(s.AIModel)
	s.AIBaseURL = strings.TrimSpace(s.AIBaseURL)
	s.BotToken = strings.TrimSpace(s.BotToken)
	s.ChatID = strings.TrimSpace(s.ChatID)
	s.ParseMode = strings.TrimSpace(s.ParseMode)
	s.TelegramAPIURL = strings.TrimSpace(s.TelegramAPIURL)
	s.FeedURL = strings.TrimSpace(s.FeedURL)
	s.HistoryDBPath = strings.TrimSpace(s.HistoryDBPath)
	s.ScheduleSpec = strings.TrimSpace(s.ScheduleSpec)

	if s.RequestTimeout <= 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}

	if strings.TrimSpace(s.DefaultPrompt) == "" {
		s.DefaultPrompt = DefaultPrompt
	}
}

// Redacted returns a copy safe to print or log.
func (s Settings) Redacted() Settings {
	s.AIAPIKey = mask(s.AIAPIKey)
	s.GeminiAPIKey = mask(s.GeminiAPIKey)
	s.OpenAIAPIKey = mask(s.OpenAIAPIKey)
	s.BotToken = mask(s.BotToken)

	return s
}

func mask(secret string) string {
	const visible = 4

	switch {
	case secret == "":
		return ""
	case len(secret) <= visible*2:
		return strings.Repeat("*", len(secret))
	default:
		return secret[:visible] + strings.Repeat("*", len(secret)-visible*2) + secret[len(secret)-visible:]
	}
}
