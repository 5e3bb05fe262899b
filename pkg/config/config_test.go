package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 1500*time.Millisecond, cfg.Parser.MatchTimeout)
	assert.Equal(t, 5000, cfg.Parser.QueueCapacity)
	assert.Equal(t, int64(50_000_000), cfg.Parser.SanityCeiling)
	assert.Equal(t, 100, cfg.Quota.MonthlyLimit)
	assert.Equal(t, "local", cfg.Storage.Provider)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PARSER_MATCH_TIMEOUT", "2s")
	t.Setenv("QUOTA_ENFORCED", "false")
	t.Setenv("PARSER_QUEUE_CAPACITY", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Parser.MatchTimeout)
	assert.False(t, cfg.Quota.Enforced)
	assert.Equal(t, 250, cfg.Parser.QueueCapacity)
}

func TestLoadRejectsS3WithoutBucket(t *testing.T) {
	t.Setenv("STORAGE_PROVIDER", "s3")
	t.Setenv("STORAGE_S3_BUCKET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestQuotaDescribe(t *testing.T) {
	q := QuotaConfig{Enforced: true, MonthlyLimit: 50}
	assert.Equal(t, "50 parses/month", q.Describe())

	q.Enforced = false
	assert.Equal(t, "quota disabled", q.Describe())
}
