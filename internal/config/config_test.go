package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Scrape.RequestTimeout)
	assert.Equal(t, DefaultUserAgent, cfg.Scrape.UserAgent)
	assert.Equal(t, 20000, cfg.Extraction.MaxChars)
	assert.True(t, cfg.Extraction.UseLLM)
	assert.Equal(t, 6, cfg.Judge.VideoMinScore)
	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.LockTTL)
	assert.Equal(t, 5, cfg.Roundup.Size)
	assert.Equal(t, 24, cfg.Roundup.Hours)
	assert.Equal(t, "newsmill.pipeline.runs", cfg.NATS.Subject)
	assert.Empty(t, cfg.Redis.URL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "12")
	t.Setenv("VIDEO_MIN_SCORE", "8")
	t.Setenv("EXTRACTION_USE_LLM", "false")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("GIN_MODE", "release")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, 12*time.Second, cfg.Scrape.RequestTimeout)
	assert.Equal(t, 8, cfg.Judge.VideoMinScore)
	assert.False(t, cfg.Extraction.UseLLM)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.True(t, cfg.HTTP.ReleaseMode)
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsmill.yaml")
	content := []byte("judge:\n  video_min_score: 7\nroundup:\n  size: 3\nschedule:\n  pipeline: \"@every 30m\"\nscrape:\n  login_rules:\n    - name: gazette\n      domain: gazette.example\n      markers: [\"members only\"]\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Judge.VideoMinScore)
	assert.Equal(t, 3, cfg.Roundup.Size)
	assert.Equal(t, "@every 30m", cfg.Schedule.Pipeline)
	assert.Equal(t, 24, cfg.Roundup.Hours)
	require.Len(t, cfg.Scrape.LoginRules, 1)
	assert.Equal(t, "gazette.example", cfg.Scrape.LoginRules[0].Domain)
	assert.Equal(t, []string{"members only"}, cfg.Scrape.LoginRules[0].Markers)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("VIDEO_MIN_SCORE", "11")
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Extraction.MaxChars = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Pipeline.MaxAttempts = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Roundup.Hours = 0
	assert.Error(t, cfg.Validate())
}
