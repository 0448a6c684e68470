package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Gate.MessagesPerMinute)
	assert.InDelta(t, 0.7, cfg.Router.ConfidenceThreshold, 0.001)
	assert.InDelta(t, 7.0, cfg.Priority.EscalationThreshold, 0.001)
	assert.InDelta(t, 8.0, cfg.Priority.RiskCeiling, 0.001)
	assert.Equal(t, 10*time.Second, cfg.Retry.CallTimeout.Std())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
gate:
  messages_per_minute: 30
  burst: 10
router:
  confidence_threshold: 0.85
retry:
  call_timeout: 3s
  base_backoff: 50ms
pipeline:
  retrieval_top_k: 5
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Gate.MessagesPerMinute)
	assert.Equal(t, 10, cfg.Gate.Burst)
	assert.InDelta(t, 0.85, cfg.Router.ConfidenceThreshold, 0.001)
	assert.Equal(t, 3*time.Second, cfg.Retry.CallTimeout.Std())
	assert.Equal(t, 50*time.Millisecond, cfg.Retry.BaseBackoff.Std())
	assert.Equal(t, 5, cfg.Pipeline.RetrievalTopK)
	// Untouched sections keep defaults.
	assert.InDelta(t, 0.4, cfg.Priority.Weights.Sentiment, 0.001)
	assert.Equal(t, 3, cfg.Retry.MaxCallAttempts)
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  call_timeout: pronto\n"), 0o600))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func TestValidate_RejectsBadWeights(t *testing.T) {
	cfg := Default()
	cfg.Priority.Weights.Sentiment = 0.9

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights")
}

func TestValidate_RejectsNonPositiveRate(t *testing.T) {
	cfg := Default()
	cfg.Gate.MessagesPerMinute = 0

	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeThreshold(t *testing.T) {
	cfg := Default()
	cfg.Router.ConfidenceThreshold = 1.5

	assert.Error(t, cfg.Validate())
}
