package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://localhost/inteldesk_test"

auth:
  jwt_secret: "secret"
  token_cookie: "session"

mail:
  from: "alerts@example.com"
  from_name: "IntelDesk"
  transport: "ses"

tracking:
  base_url: "https://intel.example.com"
  queue_type: "sqs"
  sqs_queue_url: "https://sqs.us-east-1.amazonaws.com/1/tracking"

scheduler:
  enabled: true
  poll_interval_seconds: 15
  batch_size: 10

feeds:
  enabled: true
  sources:
    - "https://feeds.example.com/advisories.xml"
  interval_minutes: 60
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/inteldesk_test", cfg.Database.URL)
	assert.Equal(t, "session", cfg.Auth.TokenCookie)
	assert.Equal(t, "ses", cfg.Mail.Transport)
	assert.Equal(t, "sqs", cfg.Tracking.QueueType)
	assert.Equal(t, 15*time.Second, cfg.Scheduler.PollInterval())
	assert.Equal(t, time.Hour, cfg.Feeds.Interval())
	assert.Len(t, cfg.Feeds.Sources, 1)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  url: "postgres://localhost/inteldesk"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "token", cfg.Auth.TokenCookie)
	assert.Equal(t, "smtp", cfg.Mail.Transport)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "memory", cfg.Tracking.QueueType)
	assert.Equal(t, 2*time.Hour, cfg.Tracking.DedupTTL())
	assert.Equal(t, 30*time.Second, cfg.Scheduler.PollInterval())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	path := writeConfig(t, `
database:
  url: "postgres://localhost/from_file"
tracking:
  queue_type: "memory"
`)

	t.Setenv("DATABASE_URL", "postgres://localhost/from_env")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("SQS_TRACKING_QUEUE_URL", "https://sqs.example.com/q")
	t.Setenv("TRACKING_BASE_URL", "https://track.example.com")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/from_env", cfg.Database.URL)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "https://track.example.com", cfg.Tracking.BaseURL)
	assert.Equal(t, "sqs", cfg.Tracking.QueueType, "SQS queue url flips the queue type")
}
