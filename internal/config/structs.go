// Package config defines the application configuration for finvoice.
// It supports loading from configuration files, environment variables
// and command-line flags.
package config

import "time"

// Config represents the complete configuration for the finvoice
// application across all commands (process, batch, stages).
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// OCR collaborator settings
	OCR OCRConfig `mapstructure:"ocr" yaml:"ocr" json:"ocr"`

	// LLM collaborator settings
	LLM LLMConfig `mapstructure:"llm" yaml:"llm" json:"llm"`

	// Pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Stage store configuration
	Store StoreConfig `mapstructure:"store" yaml:"store" json:"store"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// OCRConfig selects and tunes the OCR backend.
type OCRConfig struct {
	// Backend is "mock" or "remote".
	Backend string        `mapstructure:"backend" yaml:"backend" json:"backend"`
	URL     string        `mapstructure:"url" yaml:"url" json:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	// Fixture replays a canned payload file instead of synthesizing
	// one; only meaningful with the mock backend.
	Fixture string `mapstructure:"fixture" yaml:"fixture" json:"fixture"`
}

// LLMConfig wires the optional extraction and agent-validation
// services. Empty URLs disable the respective collaborator.
type LLMConfig struct {
	ExtractorURL string        `mapstructure:"extractor_url" yaml:"extractor_url" json:"extractor_url"`
	AgentURL     string        `mapstructure:"agent_url" yaml:"agent_url" json:"agent_url"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// PipelineConfig contains extraction pipeline settings.
type PipelineConfig struct {
	Layout   LayoutConfig   `mapstructure:"layout" yaml:"layout" json:"layout"`
	Validate ValidateConfig `mapstructure:"validate" yaml:"validate" json:"validate"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry" json:"retry"`
	Parallel ParallelConfig `mapstructure:"parallel" yaml:"parallel" json:"parallel"`
}

// LayoutConfig contains region-classification thresholds.
type LayoutConfig struct {
	VendorXFrac        float64 `mapstructure:"vendor_x_frac" yaml:"vendor_x_frac" json:"vendor_x_frac"`
	VendorYFrac        float64 `mapstructure:"vendor_y_frac" yaml:"vendor_y_frac" json:"vendor_y_frac"`
	TotalsXFrac        float64 `mapstructure:"totals_x_frac" yaml:"totals_x_frac" json:"totals_x_frac"`
	TotalsYFrac        float64 `mapstructure:"totals_y_frac" yaml:"totals_y_frac" json:"totals_y_frac"`
	RowThreshold       float64 `mapstructure:"row_threshold" yaml:"row_threshold" json:"row_threshold"`
	ProximityThreshold float64 `mapstructure:"proximity_threshold" yaml:"proximity_threshold" json:"proximity_threshold"`
	NumericClusterGap  float64 `mapstructure:"numeric_cluster_gap" yaml:"numeric_cluster_gap" json:"numeric_cluster_gap"`
}

// ValidateConfig contains financial validation settings. Tolerance is
// a decimal string to keep exact currency semantics through config
// round-trips.
type ValidateConfig struct {
	Tolerance         string `mapstructure:"tolerance" yaml:"tolerance" json:"tolerance"`
	LineArithmetic    bool   `mapstructure:"line_arithmetic" yaml:"line_arithmetic" json:"line_arithmetic"`
	InvoiceArithmetic bool   `mapstructure:"invoice_arithmetic" yaml:"invoice_arithmetic" json:"invoice_arithmetic"`
	LineSumSubtotal   bool   `mapstructure:"line_sum_subtotal" yaml:"line_sum_subtotal" json:"line_sum_subtotal"`
	NonNegativity     bool   `mapstructure:"non_negativity" yaml:"non_negativity" json:"non_negativity"`
	DateOrdering      bool   `mapstructure:"date_ordering" yaml:"date_ordering" json:"date_ordering"`
	DuplicateItems    bool   `mapstructure:"duplicate_items" yaml:"duplicate_items" json:"duplicate_items"`
}

// RetryConfig bounds retries against the external collaborators.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts" json:"attempts"`
	Base     time.Duration `mapstructure:"base" yaml:"base" json:"base"`
}

// ParallelConfig contains parallel processing settings.
type ParallelConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// StoreConfig locates the filesystem stage store.
type StoreConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// OutputConfig contains result formatting settings.
type OutputConfig struct {
	// Format is "json" or "summary".
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty" json:"pretty"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Progress        bool `mapstructure:"progress" yaml:"progress" json:"progress"`
}
