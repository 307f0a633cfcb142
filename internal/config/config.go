// Package config loads service settings from viper: defaults, an optional
// YAML file, INBOXDRAFT_* variables and the legacy unprefixed names.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "INBOXDRAFT"

const (
	envSlackBotToken  = "SLACK_BOT_TOKEN"
	envSlackChannelID = "SLACK_CHANNEL_ID"
	envGeminiAPIKey   = "GEMINI_API_KEY"
)

type Config struct {
	Slack     SlackConfig
	Gemini    GeminiConfig
	Poll      PollConfig
	Drafts    DraftsConfig
	Style     StyleConfig
	Logging   LoggingConfig
	Status    StatusConfig
	Telemetry TelemetryConfig
}

type SlackConfig struct {
	BotToken  string
	ChannelID string
	APIURL    string
}

type GeminiConfig struct {
	APIKey         string
	Model          string
	Endpoint       string
	RequestTimeout time.Duration
	MaxAttempts    int
	BaseDelay      time.Duration
}

type PollConfig struct {
	Interval     time.Duration
	Lookback     time.Duration
	HistoryLimit int
	SeenCapacity int
}

type DraftsConfig struct {
	Auto            bool
	AnnounceStartup bool
}

type StyleConfig struct {
	ProfilePath string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type StatusConfig struct {
	Listen    string
	AuthToken string
}

type TelemetryConfig struct {
	ServiceName      string
	OTLPEndpoint     string
	OTLPHTTPEndpoint string
	Insecure         bool
	ExportInterval   time.Duration
}

// legacyEnv maps keys to the unprefixed variable names the service has
// always read. The prefixed name wins when both are set.
var legacyEnv = map[string]string{
	"slack.bot_token":         envSlackBotToken,
	"slack.channel_id":        envSlackChannelID,
	"gemini.api_key":          envGeminiAPIKey,
	"gemini.model":            "GEMINI_MODEL",
	"gemini.endpoint":         "GEMINI_ENDPOINT",
	"poll.interval":           "POLL_INTERVAL",
	"style.profile_path":      "STYLE_PROFILE",
	"telemetry.otlp_endpoint": "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// requiredKeys are reported by their legacy variable names, which is what
// operators set.
var requiredKeys = []string{"slack.bot_token", "slack.channel_id", "gemini.api_key"}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("slack.api_url", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash-latest")
	v.SetDefault("gemini.endpoint", "")
	v.SetDefault("gemini.request_timeout", "60s")
	v.SetDefault("gemini.max_attempts", 3)
	v.SetDefault("gemini.base_delay", "2s")
	v.SetDefault("poll.interval", "30s")
	v.SetDefault("poll.lookback", "6h")
	v.SetDefault("poll.history_limit", 100)
	v.SetDefault("poll.seen_capacity", 500)
	v.SetDefault("drafts.auto", false)
	v.SetDefault("drafts.announce_startup", false)
	v.SetDefault("style.profile_path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "auto")
	v.SetDefault("status.listen", "")
	v.SetDefault("status.auth_token", "")
	v.SetDefault("telemetry.service_name", "inboxdraft")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_http_endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.export_interval", "30s")
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		_ = v.BindEnv(key, envName(key), legacy)
	}
	return v
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// LoadDotEnv reads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ReadFile merges a YAML config file into v.
func ReadFile(v *viper.Viper, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load resolves every setting from v. It does not check required values;
// call Validate for that.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"gemini.request_timeout", &cfg.Gemini.RequestTimeout},
		{"gemini.base_delay", &cfg.Gemini.BaseDelay},
		{"poll.interval", &cfg.Poll.Interval},
		{"poll.lookback", &cfg.Poll.Lookback},
		{"telemetry.export_interval", &cfg.Telemetry.ExportInterval},
	}
	for _, d := range durations {
		if *d.dst, err = ParseDuration(v.GetString(d.key)); err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	cfg.Slack.BotToken = strings.TrimSpace(v.GetString("slack.bot_token"))
	cfg.Slack.ChannelID = strings.TrimSpace(v.GetString("slack.channel_id"))
	cfg.Slack.APIURL = strings.TrimSpace(v.GetString("slack.api_url"))

	cfg.Gemini.APIKey = strings.TrimSpace(v.GetString("gemini.api_key"))
	cfg.Gemini.Model = strings.TrimSpace(v.GetString("gemini.model"))
	cfg.Gemini.Endpoint = strings.TrimSpace(v.GetString("gemini.endpoint"))
	cfg.Gemini.MaxAttempts = v.GetInt("gemini.max_attempts")

	cfg.Poll.HistoryLimit = v.GetInt("poll.history_limit")
	cfg.Poll.SeenCapacity = v.GetInt("poll.seen_capacity")

	cfg.Drafts.Auto = v.GetBool("drafts.auto")
	cfg.Drafts.AnnounceStartup = v.GetBool("drafts.announce_startup")

	cfg.Style.ProfilePath = strings.TrimSpace(v.GetString("style.profile_path"))

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(v.GetString("logging.level")))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(v.GetString("logging.format")))

	cfg.Status.Listen = strings.TrimSpace(v.GetString("status.listen"))
	cfg.Status.AuthToken = strings.TrimSpace(v.GetString("status.auth_token"))

	cfg.Telemetry.ServiceName = strings.TrimSpace(v.GetString("telemetry.service_name"))
	cfg.Telemetry.OTLPEndpoint = strings.TrimSpace(v.GetString("telemetry.otlp_endpoint"))
	cfg.Telemetry.OTLPHTTPEndpoint = strings.TrimSpace(v.GetString("telemetry.otlp_http_endpoint"))
	cfg.Telemetry.Insecure = v.GetBool("telemetry.insecure")
	return cfg, nil
}

// Validate reports every missing required setting in one error, then checks
// the remaining values.
func Validate(cfg Config) error {
	values := map[string]string{
		"slack.bot_token":  cfg.Slack.BotToken,
		"slack.channel_id": cfg.Slack.ChannelID,
		"gemini.api_key":   cfg.Gemini.APIKey,
	}
	missing := []string{}
	for _, key := range requiredKeys {
		if strings.TrimSpace(values[key]) == "" {
			missing = append(missing, legacyEnv[key])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if cfg.Poll.Interval <= 0 {
		return errors.New("poll.interval must be positive")
	}
	if cfg.Poll.Lookback < 0 {
		return errors.New("poll.lookback must not be negative")
	}
	if cfg.Poll.HistoryLimit <= 0 || cfg.Poll.HistoryLimit > 1000 {
		return fmt.Errorf("poll.history_limit must be between 1 and 1000, got %d", cfg.Poll.HistoryLimit)
	}
	if cfg.Poll.SeenCapacity <= 0 {
		return fmt.Errorf("poll.seen_capacity must be positive, got %d", cfg.Poll.SeenCapacity)
	}
	if cfg.Gemini.MaxAttempts <= 0 {
		return fmt.Errorf("gemini.max_attempts must be positive, got %d", cfg.Gemini.MaxAttempts)
	}
	if strings.TrimSpace(cfg.Gemini.Model) == "" {
		return errors.New("gemini.model is required")
	}
	if cfg.Status.Listen != "" && cfg.Status.AuthToken == "" {
		return errors.New("status.auth_token is required when status.listen is set")
	}
	return nil
}

// ParseDuration accepts Go durations and bare integers, which are seconds.
// An empty value is zero.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, errors.New("duration must not be negative")
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("duration must not be negative")
	}
	return d, nil
}
