package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/MeKo-Tech/finvoice/internal/etl"
	"github.com/MeKo-Tech/finvoice/internal/layout"
	"github.com/MeKo-Tech/finvoice/internal/llm"
	"github.com/MeKo-Tech/finvoice/internal/ocr"
	"github.com/MeKo-Tech/finvoice/internal/validate"
)

// Config holds configuration for the extraction pipeline and its
// components.
type Config struct {
	StageDir string
	Layout   layout.Config
	Validate validate.Config
	Retry    RetryConfig
	Parallel ParallelConfig
}

// DefaultConfig returns a default pipeline config with component
// defaults.
func DefaultConfig() Config {
	return Config{
		StageDir: "stages",
		Layout:   layout.DefaultConfig(),
		Validate: validate.DefaultConfig(),
		Retry:    DefaultRetryConfig(),
		Parallel: DefaultParallelConfig(),
	}
}

// Builder constructs an Orchestrator with fluent configuration.
type Builder struct {
	cfg       Config
	backend   ocr.Backend
	extractor llm.Extractor
	agent     llm.AgentValidator
	store     etl.Store
	logger    *slog.Logger
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithOCR sets the OCR backend used for text detection.
func (b *Builder) WithOCR(backend ocr.Backend) *Builder {
	b.backend = backend
	return b
}

// WithExtractor sets the LLM extractor tried before the heuristic
// parser. Nil disables the LLM path entirely.
func (b *Builder) WithExtractor(e llm.Extractor) *Builder {
	b.extractor = e
	return b
}

// WithAgent sets the agent validator tried before the rule-based
// validator. Nil disables the agent path entirely.
func (b *Builder) WithAgent(a llm.AgentValidator) *Builder {
	b.agent = a
	return b
}

// WithStore sets the staging store directly, overriding StageDir.
func (b *Builder) WithStore(s etl.Store) *Builder {
	b.store = s
	return b
}

// WithStageDir sets the root directory of the filesystem staging store.
func (b *Builder) WithStageDir(dir string) *Builder {
	if dir != "" {
		b.cfg.StageDir = dir
	}
	return b
}

// WithLayout replaces the region-classification configuration.
func (b *Builder) WithLayout(cfg layout.Config) *Builder {
	b.cfg.Layout = cfg
	return b
}

// WithRowThreshold sets the table row clustering threshold in pixels.
func (b *Builder) WithRowThreshold(px float64) *Builder {
	if px > 0 {
		b.cfg.Layout.RowThreshold = px
	}
	return b
}

// WithTolerance sets the arithmetic reconciliation tolerance.
func (b *Builder) WithTolerance(t decimal.Decimal) *Builder {
	if t.IsPositive() {
		b.cfg.Validate.Tolerance = t
	}
	return b
}

// WithValidation replaces the validation configuration.
func (b *Builder) WithValidation(cfg validate.Config) *Builder {
	b.cfg.Validate = cfg
	return b
}

// WithRetry sets the OCR retry budget and backoff base.
func (b *Builder) WithRetry(cfg RetryConfig) *Builder {
	if cfg.Attempts > 0 {
		b.cfg.Retry = cfg
	}
	return b
}

// WithWorkers sets the number of parallel workers for batch
// processing.
func (b *Builder) WithWorkers(n int) *Builder {
	if n > 0 {
		b.cfg.Parallel.MaxWorkers = n
	}
	return b
}

// WithProgress sets the batch progress callback.
func (b *Builder) WithProgress(cb ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = cb
	return b
}

// WithLogger sets the structured logger used by the orchestrator.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks that the configuration can produce a working
// orchestrator.
func (b *Builder) Validate() error {
	if b.backend == nil {
		return errors.New("ocr backend is required")
	}
	if b.store == nil && b.cfg.StageDir == "" {
		return errors.New("stage directory is empty")
	}
	if b.cfg.Retry.Attempts <= 0 {
		return errors.New("retry attempts must be > 0")
	}
	if !b.cfg.Validate.Tolerance.IsPositive() {
		return errors.New("tolerance must be > 0")
	}
	return nil
}

// Orchestrator wires together OCR, parsing, validation and staging.
type Orchestrator struct {
	cfg       Config
	backend   ocr.Backend
	extractor llm.Extractor
	agent     llm.AgentValidator
	parser    *Parser
	validator *validate.Validator
	store     etl.Store
	logger    *slog.Logger
	metrics   *metrics
}

// Build initializes the pipeline components.
func (b *Builder) Build() (*Orchestrator, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		fs, err := etl.NewFileStore(b.cfg.StageDir)
		if err != nil {
			return nil, fmt.Errorf("init stage store: %w", err)
		}
		store = fs
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		cfg:       b.cfg,
		backend:   b.backend,
		extractor: b.extractor,
		agent:     b.agent,
		parser:    NewParser(b.cfg.Layout),
		validator: validate.New(b.cfg.Validate),
		store:     store,
		logger:    logger,
		metrics:   pipelineMetrics,
	}, nil
}

// Config returns the orchestrator configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Info returns a map with key pipeline properties.
func (o *Orchestrator) Info() map[string]interface{} {
	info := map[string]interface{}{
		"ocr_backend":    o.backend.Name(),
		"stage_dir":      o.cfg.StageDir,
		"retry_attempts": o.cfg.Retry.Attempts,
		"tolerance":      o.cfg.Validate.Tolerance.String(),
		"max_workers":    o.cfg.Parallel.MaxWorkers,
	}
	if o.extractor != nil {
		info["llm_extractor"] = o.extractor.Name()
	}
	if o.agent != nil {
		info["agent_validator"] = o.agent.Name()
	}
	return info
}
