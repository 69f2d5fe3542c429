package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
llm:
  base_url: https://api.example.com
  api_key: dummy
  model: gpt-4o
  prompt_version: v1
server:
  host: 127.0.0.1
  port: "8080"
  turn_timeout: 15s
history:
  backend: redis
  redis_addr: localhost:6379
google_calendar:
  client_id: cid
  client_secret: secret
  redirect_url: http://localhost:8080/auth/google/callback
scheduling:
  timezone: Europe/Lisbon
notify:
  smtp_host: smtp.example.com
  to: operator@example.com
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := tmp.WriteString(body); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()
	return tmp.Name()
}

// TestLoad_File verifies that Load unmarshals every section of the yaml file.
func TestLoad_File(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "dummy", cfg.LLM.APIKey)
	require.Equal(t, "gpt-4o", cfg.LLM.Model)
	require.Equal(t, "v1", cfg.LLM.PromptVersion)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, 15*time.Second, cfg.Server.TurnTimeout)
	require.Equal(t, "redis", cfg.History.Backend)
	require.Equal(t, "cid", cfg.GoogleCalendar.ClientID)
	require.Equal(t, "primary", cfg.GoogleCalendar.CalendarID)
	require.Equal(t, "Europe/Lisbon", cfg.Scheduling.Timezone)
	require.Equal(t, "Guest", cfg.Scheduling.PlaceholderName)
	require.Equal(t, 587, cfg.Notify.SMTPPort)
	require.Equal(t, "operator@example.com", cfg.Notify.To)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("GOOGLE_REFRESH_TOKEN", "refresh-from-env")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	require.Equal(t, "refresh-from-env", cfg.GoogleCalendar.RefreshToken)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.History.Backend)
	require.Equal(t, "v2", cfg.LLM.PromptVersion)
	require.Equal(t, 60*time.Second, cfg.Server.TurnTimeout)
	require.Equal(t, 2, cfg.Tasks.Workers)
}

func TestSchedulingLocation(t *testing.T) {
	loc, err := SchedulingConfig{Timezone: "America/New_York"}.Location()
	require.NoError(t, err)
	require.Equal(t, "America/New_York", loc.String())

	loc, err = SchedulingConfig{}.Location()
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)

	_, err = SchedulingConfig{Timezone: "Mars/Olympus"}.Location()
	require.Error(t, err)
}
