package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv       = "FEEDBACK_SCANNER_CONFIG"
	redditClientIDEnv   = "REDDIT_CLIENT_ID"
	redditSecretEnv     = "REDDIT_CLIENT_SECRET"
	twitterBearerEnv    = "TWITTER_BEARER_TOKEN"
	llmAPIKeyEnv        = "LLM_API_KEY"
	llmModelEnv         = "LLM_MODEL"
	databaseDSNEnv      = "DATABASE_DSN"
	redisAddrEnv        = "REDIS_ADDR"
	githubTokenEnv      = "GITHUB_TOKEN"
	slackSigningEnv     = "SLACK_SIGNING_SECRET"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	logLevelEnv         = "LOG_LEVEL"
	httpAddrEnv         = "HTTP_ADDR"
	schedulerEnabledEnv = "SCHEDULER_ENABLED"
)

// Config holds high-level settings required across the application.
type Config struct {
	HTTP          HTTPConfig         `yaml:"http"`
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Reddit        RedditConfig       `yaml:"reddit"`
	Twitter       TwitterConfig      `yaml:"twitter"`
	Slack         SlackConfig        `yaml:"slack"`
	Support       SupportConfig      `yaml:"support"`
	LLM           LLMConfig          `yaml:"llm"`
	ML            MLConfig           `yaml:"ml"`
	GitHub        GitHubConfig       `yaml:"github"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gte=0"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// DatabaseConfig describes the SQL store. An empty DSN keeps the service stateless.
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the shared processed-event set when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	EventTTL time.Duration `yaml:"eventTtl" validate:"gte=0"`
}

// PipelineConfig bounds every run.
type PipelineConfig struct {
	MaxItems       int           `yaml:"maxItems" validate:"gte=1,lte=1000"`
	MaxQueries     int           `yaml:"maxQueries" validate:"gte=1,lte=50"`
	MaxSubreddits  int           `yaml:"maxSubreddits" validate:"gte=1,lte=50"`
	DefaultLimit   int           `yaml:"defaultLimit" validate:"gte=1,lte=100"`
	EventBuffer    int           `yaml:"eventBuffer" validate:"gte=1"`
	RunTimeout     time.Duration `yaml:"runTimeout" validate:"gt=0"`
	DedupThreshold float64       `yaml:"dedupThreshold" validate:"gt=0,lte=1"`
	KnownLookback  time.Duration `yaml:"knownLookback" validate:"gte=0"`
	KnownLimit     int           `yaml:"knownLimit" validate:"gte=0"`
	EventCacheSize int           `yaml:"eventCacheSize" validate:"gte=1"`
}

// SchedulerConfig defines the optional recurring batch run.
type SchedulerConfig struct {
	Enabled     bool           `yaml:"enabled"`
	Interval    time.Duration  `yaml:"interval" validate:"gte=0"`
	Timezone    string         `yaml:"timezone"`
	RequestFile string         `yaml:"requestFile" validate:"required_if=Enabled true"`
	location    *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// RedditConfig configures the Reddit search adapter. Without credentials the
// public JSON endpoints are used.
type RedditConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ClientID          string `yaml:"clientId"`
	ClientSecret      string `yaml:"clientSecret" validate:"required_with=ClientID"`
	UserAgent         string `yaml:"userAgent" validate:"required"`
	BaseURL           string `yaml:"baseUrl" validate:"omitempty,url"`
	TokenURL          string `yaml:"tokenUrl" validate:"omitempty,url"`
	RequestsPerMinute int    `yaml:"requestsPerMinute" validate:"gte=1"`
}

// TwitterConfig configures the v2 recent-search adapter.
type TwitterConfig struct {
	BearerToken       string `yaml:"bearerToken"`
	BaseURL           string `yaml:"baseUrl" validate:"omitempty,url"`
	RequestsPerMinute int    `yaml:"requestsPerMinute" validate:"gte=1"`
}

// SlackConfig configures the events webhook and the inbox it fills.
type SlackConfig struct {
	Enabled       bool     `yaml:"enabled"`
	SigningSecret string   `yaml:"signingSecret" validate:"required_if=Enabled true"`
	InboxSize     int      `yaml:"inboxSize" validate:"gte=1"`
	Channels      []string `yaml:"channels"`
}

// SupportConfig lists the support forums scraped for the support source.
type SupportConfig struct {
	Forums []ForumConfig `yaml:"forums" validate:"dive"`
}

// ForumConfig describes one forum search page and the selectors of its posts.
type ForumConfig struct {
	Name string `yaml:"name" validate:"required"`
	// SearchURL may contain {query}, replaced by the escaped search query.
	SearchURL       string `yaml:"searchUrl" validate:"required,url"`
	ItemSelector    string `yaml:"itemSelector" validate:"required"`
	TitleSelector   string `yaml:"titleSelector"`
	BodySelector    string `yaml:"bodySelector" validate:"required"`
	AuthorSelector  string `yaml:"authorSelector"`
	LinkSelector    string `yaml:"linkSelector"`
	RepliesSelector string `yaml:"repliesSelector"`
	ViewsSelector   string `yaml:"viewsSelector"`
	DateSelector    string `yaml:"dateSelector"`
	DateLayout      string `yaml:"dateLayout"`
}

// LLMConfig selects the classifier/drafter backend.
type LLMConfig struct {
	Backend        string        `yaml:"backend" validate:"oneof=chatgpt ml"`
	Endpoint       string        `yaml:"endpoint" validate:"omitempty,url"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"apiKey"`
	ClassifyPrompt string        `yaml:"classifyPrompt"`
	DraftPrompt    string        `yaml:"draftPrompt"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
}

// MLConfig describes inference-service integration parameters.
type MLConfig struct {
	InferenceURL string `yaml:"inferenceUrl" validate:"omitempty,url"`
	APIKey       string `yaml:"apiKey"`
}

// GitHubConfig enables issue creation for approved tickets when Token is set.
type GitHubConfig struct {
	Token   string   `yaml:"token"`
	Owner   string   `yaml:"owner" validate:"required_with=Token"`
	Repo    string   `yaml:"repo" validate:"required_with=Token"`
	BaseURL string   `yaml:"baseUrl" validate:"omitempty,url"`
	Labels  []string `yaml:"labels"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId" validate:"required_with=BotToken"`
	BaseURL  string `yaml:"baseUrl" validate:"omitempty,url"`
}

// Load reads YAML configuration (if present), applies environment overrides
// and validates the result.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Parse(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	cfg.bindTimezone()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over cfg; keys absent from raw keep their current values.
func Parse(raw []byte, cfg *Config) error {
	return yaml.Unmarshal(raw, cfg)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of the whole configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	overrides := []struct {
		env    string
		target *string
	}{
		{redditClientIDEnv, &c.Reddit.ClientID},
		{redditSecretEnv, &c.Reddit.ClientSecret},
		{twitterBearerEnv, &c.Twitter.BearerToken},
		{llmAPIKeyEnv, &c.LLM.APIKey},
		{llmModelEnv, &c.LLM.Model},
		{databaseDSNEnv, &c.Database.DSN},
		{redisAddrEnv, &c.Redis.Addr},
		{githubTokenEnv, &c.GitHub.Token},
		{slackSigningEnv, &c.Slack.SigningSecret},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{logLevelEnv, &c.Logging.Level},
		{httpAddrEnv, &c.HTTP.Addr},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}

	if v := os.Getenv(schedulerEnabledEnv); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", schedulerEnabledEnv, err)
		}
		c.Scheduler.Enabled = enabled
	}

	if c.Reddit.ClientID != "" {
		c.Reddit.Enabled = true
	}
	return nil
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// Default returns the configuration used before the file and environment apply.
func Default() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		HTTP:     HTTPConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "postgres"},
		Redis:    RedisConfig{EventTTL: 24 * time.Hour},
		Pipeline: PipelineConfig{
			MaxItems:       50,
			MaxQueries:     5,
			MaxSubreddits:  5,
			DefaultLimit:   25,
			EventBuffer:    64,
			RunTimeout:     5 * time.Minute,
			DedupThreshold: 0.8,
			KnownLookback:  30 * 24 * time.Hour,
			KnownLimit:     500,
			EventCacheSize: 10000,
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
		Reddit: RedditConfig{
			UserAgent:         "feedbackscanner/1.0",
			RequestsPerMinute: 60,
		},
		Twitter: TwitterConfig{
			BaseURL:           "https://api.twitter.com/2",
			RequestsPerMinute: 30,
		},
		Slack: SlackConfig{InboxSize: 1000},
		LLM: LLMConfig{
			Backend:  "chatgpt",
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			Timeout:  30 * time.Second,
		},
	}
}
