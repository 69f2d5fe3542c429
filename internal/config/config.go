package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	LLM            LLMConfig
	Server         ServerConfig
	History        HistoryConfig
	GoogleCalendar GoogleCalendarConfig `mapstructure:"google_calendar"`
	Scheduling     SchedulingConfig
	Notify         NotifyConfig
	Tasks          TasksConfig
	Log            LogConfig
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	PromptVersion string `mapstructure:"prompt_version"`
	SystemPrompt  string `mapstructure:"system_prompt"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	TurnTimeout    time.Duration `mapstructure:"turn_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// HistoryConfig selects and configures the conversation log backend.
type HistoryConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisKey  string `mapstructure:"redis_key"`
}

// GoogleCalendarConfig holds the Google Calendar OAuth client and target calendar.
type GoogleCalendarConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	RefreshToken string `mapstructure:"refresh_token"`
	CalendarID   string `mapstructure:"calendar_id"`
	Endpoint     string `mapstructure:"endpoint"`
}

// SchedulingConfig holds booking policy.
type SchedulingConfig struct {
	Timezone        string `mapstructure:"timezone"`
	PlaceholderName string `mapstructure:"placeholder_name"`
}

// NotifyConfig holds the operator mail settings. An empty SMTPHost disables mail.
type NotifyConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	From         string `mapstructure:"from"`
	To           string `mapstructure:"to"`
}

// TasksConfig sizes the background task dispatcher.
type TasksConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// envBindings maps config keys to the environment variables the deployment uses.
var envBindings = map[string][]string{
	"llm.api_key":                   {"OPENAI_API_KEY"},
	"llm.base_url":                  {"OPENAI_BASE_URL"},
	"llm.model":                     {"OPENAI_MODEL"},
	"server.port":                   {"PORT"},
	"history.path":                  {"HISTORY_DB_PATH"},
	"history.redis_addr":            {"REDIS_ADDR"},
	"google_calendar.client_id":     {"GOOGLE_CLIENT_ID"},
	"google_calendar.client_secret": {"GOOGLE_CLIENT_SECRET"},
	"google_calendar.redirect_url":  {"GOOGLE_REDIRECT_URI"},
	"google_calendar.refresh_token": {"GOOGLE_REFRESH_TOKEN"},
	"google_calendar.calendar_id":   {"GOOGLE_CALENDAR_ID"},
	"scheduling.timezone":           {"SCHEDULING_TIMEZONE", "TZ"},
	"notify.smtp_host":              {"SMTP_HOST"},
	"notify.smtp_port":              {"SMTP_PORT"},
	"notify.smtp_username":          {"SMTP_USERNAME"},
	"notify.smtp_password":          {"SMTP_PASSWORD"},
	"notify.from":                   {"NOTIFY_FROM"},
	"notify.to":                     {"NOTIFY_TO"},
	"log.level":                     {"LOG_LEVEL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.prompt_version", "v2")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.turn_timeout", 60*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("history.backend", "sqlite")
	v.SetDefault("history.path", "nazborg.db")
	v.SetDefault("history.redis_key", "nazborg:conversations")
	v.SetDefault("google_calendar.calendar_id", "primary")
	v.SetDefault("scheduling.timezone", "America/New_York")
	v.SetDefault("scheduling.placeholder_name", "Guest")
	v.SetDefault("notify.smtp_port", 587)
	v.SetDefault("tasks.workers", 2)
	v.SetDefault("tasks.queue_size", 256)
	v.SetDefault("tasks.timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Load loads the configuration from a .env file, the config.yaml file
// (or CONFIG_PATH) and the environment, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Location resolves the configured scheduling timezone.
func (c SchedulingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
