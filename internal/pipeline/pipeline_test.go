package pipeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderRequiresBackend(t *testing.T) {
	_, err := NewBuilder().WithStageDir(t.TempDir()).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr backend")
}

func TestBuilderDefaults(t *testing.T) {
	cfg := NewBuilder().Config()
	assert.Equal(t, "stages", cfg.StageDir)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, "0.01", cfg.Validate.Tolerance.String())
	assert.Positive(t, cfg.Parallel.MaxWorkers)
}

func TestBuilderOverrides(t *testing.T) {
	b := NewBuilder().
		WithRowThreshold(20).
		WithTolerance(decimal.RequireFromString("0.02")).
		WithRetry(RetryConfig{Attempts: 5, Base: time.Second}).
		WithWorkers(2)

	cfg := b.Config()
	assert.InDelta(t, 20.0, cfg.Layout.RowThreshold, 1e-9)
	assert.Equal(t, "0.02", cfg.Validate.Tolerance.String())
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, 2, cfg.Parallel.MaxWorkers)
}

func TestBuilderIgnoresInvalidOverrides(t *testing.T) {
	cfg := NewBuilder().
		WithRowThreshold(-1).
		WithTolerance(decimal.Zero).
		WithWorkers(0).
		WithStageDir("").
		Config()

	defaults := DefaultConfig()
	assert.Equal(t, defaults.Layout.RowThreshold, cfg.Layout.RowThreshold)
	assert.Equal(t, defaults.Validate.Tolerance.String(), cfg.Validate.Tolerance.String())
	assert.Equal(t, defaults.Parallel.MaxWorkers, cfg.Parallel.MaxWorkers)
	assert.Equal(t, defaults.StageDir, cfg.StageDir)
}

func TestBuildInfo(t *testing.T) {
	backend := &stubBackend{payload: samplePayload()}
	o := testOrchestrator(t, NewBuilder().
		WithOCR(backend).
		WithExtractor(&stubExtractor{}).
		WithAgent(&stubAgent{}))

	info := o.Info()
	assert.Equal(t, "stub", info["ocr_backend"])
	assert.Equal(t, "stub-llm", info["llm_extractor"])
	assert.Equal(t, "stub-agent", info["agent_validator"])
	assert.Equal(t, 3, info["retry_attempts"])
}
