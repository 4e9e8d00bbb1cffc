package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, 5, cfg.Pipeline.TopN)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 280, cfg.Pipeline.MessageMaxLen)
	assert.Equal(t, 100, cfg.SAM.PageSize)
	assert.Equal(t, "https://api.sam.gov/opportunities/v2/search", cfg.SAM.BaseURL)
	assert.Equal(t, cfg.Pipeline.RunTimeout+time.Minute, cfg.RunLock.TTL)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  name: announcer-test
sam:
  api_key: secret
  page_size: 25
  set_aside_codes: ["SDVOSBC", "WOSB"]
pipeline:
  top_n: 3
  retry_backoff: 250ms
scoring:
  set_aside_weights:
    SBA: 12
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "announcer-test", cfg.App.Name)
	assert.Equal(t, "secret", cfg.SAM.APIKey)
	assert.Equal(t, 25, cfg.SAM.PageSize)
	assert.Equal(t, []string{"SDVOSBC", "WOSB"}, cfg.SAM.SetAsideCodes)
	assert.Equal(t, 3, cfg.Pipeline.TopN)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.RetryBackoff)
	assert.Equal(t, 3*time.Second, cfg.Pipeline.PublishDelay)
	assert.InDelta(t, 12.0, cfg.Scoring.SetAsideWeights["sba"], 0.0001)
}
