package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MeKo-Tech/finvoice/internal/layout"
	"github.com/MeKo-Tech/finvoice/internal/pipeline"
	"github.com/MeKo-Tech/finvoice/internal/validate"
)

// DefaultConfig returns the default configuration mirroring the
// component defaults.
func DefaultConfig() Config {
	layoutDefaults := layout.DefaultConfig()
	validateDefaults := validate.DefaultConfig()
	retryDefaults := pipeline.DefaultRetryConfig()
	parallelDefaults := pipeline.DefaultParallelConfig()

	return Config{
		LogLevel: "info",
		Verbose:  false,
		OCR: OCRConfig{
			Backend: "mock",
			Timeout: 60 * time.Second,
		},
		LLM: LLMConfig{
			Timeout: 120 * time.Second,
		},
		Pipeline: PipelineConfig{
			Layout: LayoutConfig{
				VendorXFrac:        layoutDefaults.VendorXFrac,
				VendorYFrac:        layoutDefaults.VendorYFrac,
				TotalsXFrac:        layoutDefaults.TotalsXFrac,
				TotalsYFrac:        layoutDefaults.TotalsYFrac,
				RowThreshold:       layoutDefaults.RowThreshold,
				ProximityThreshold: layoutDefaults.ProximityThreshold,
				NumericClusterGap:  layoutDefaults.NumericClusterGap,
			},
			Validate: ValidateConfig{
				Tolerance:         validateDefaults.Tolerance.String(),
				LineArithmetic:    validateDefaults.LineArithmetic,
				InvoiceArithmetic: validateDefaults.InvoiceArithmetic,
				LineSumSubtotal:   validateDefaults.LineSumSubtotal,
				NonNegativity:     validateDefaults.NonNegativity,
				DateOrdering:      validateDefaults.DateOrdering,
				DuplicateItems:    validateDefaults.DuplicateItems,
			},
			Retry: RetryConfig{
				Attempts: retryDefaults.Attempts,
				Base:     retryDefaults.Base,
			},
			Parallel: ParallelConfig{
				MaxWorkers: parallelDefaults.MaxWorkers,
			},
		},
		Store: StoreConfig{Dir: "stages"},
		Output: OutputConfig{
			Format: "json",
			Pretty: true,
		},
		Batch: BatchConfig{
			Workers:         parallelDefaults.MaxWorkers,
			ContinueOnError: true,
			Progress:        true,
		},
	}
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if !contains(logLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level %q, must be one of %v", c.LogLevel, logLevels)
	}
	switch c.OCR.Backend {
	case "mock":
	case "remote":
		if c.OCR.URL == "" {
			return fmt.Errorf("ocr backend %q requires ocr.url", c.OCR.Backend)
		}
	default:
		return fmt.Errorf("unknown ocr backend %q", c.OCR.Backend)
	}
	if _, err := c.tolerance(); err != nil {
		return err
	}
	if c.Pipeline.Retry.Attempts <= 0 {
		return fmt.Errorf("pipeline.retry.attempts must be > 0, got %d", c.Pipeline.Retry.Attempts)
	}
	if err := validateFraction(c.Pipeline.Layout.VendorXFrac, "pipeline.layout.vendor_x_frac"); err != nil {
		return err
	}
	if err := validateFraction(c.Pipeline.Layout.VendorYFrac, "pipeline.layout.vendor_y_frac"); err != nil {
		return err
	}
	if err := validateFraction(c.Pipeline.Layout.TotalsXFrac, "pipeline.layout.totals_x_frac"); err != nil {
		return err
	}
	if err := validateFraction(c.Pipeline.Layout.TotalsYFrac, "pipeline.layout.totals_y_frac"); err != nil {
		return err
	}
	if c.Output.Format != "json" && c.Output.Format != "summary" {
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir must not be empty")
	}
	return nil
}

func (c *Config) tolerance() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Pipeline.Validate.Tolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid tolerance %q: %w", c.Pipeline.Validate.Tolerance, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("tolerance must be > 0, got %s", d)
	}
	return d, nil
}

// ToPipelineConfig converts the application config into the pipeline
// component config. Call Validate first; an unparseable tolerance
// falls back to the component default here.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.Config{
		StageDir: c.Store.Dir,
		Layout:   c.toLayoutConfig(),
		Validate: c.toValidateConfig(),
		Retry: pipeline.RetryConfig{
			Attempts: c.Pipeline.Retry.Attempts,
			Base:     c.Pipeline.Retry.Base,
		},
		Parallel: pipeline.ParallelConfig{
			MaxWorkers: c.Pipeline.Parallel.MaxWorkers,
		},
	}
	if c.Batch.Workers > 0 {
		cfg.Parallel.MaxWorkers = c.Batch.Workers
	}
	return cfg
}

func (c *Config) toLayoutConfig() layout.Config {
	return layout.Config{
		VendorXFrac:        c.Pipeline.Layout.VendorXFrac,
		VendorYFrac:        c.Pipeline.Layout.VendorYFrac,
		TotalsXFrac:        c.Pipeline.Layout.TotalsXFrac,
		TotalsYFrac:        c.Pipeline.Layout.TotalsYFrac,
		RowThreshold:       c.Pipeline.Layout.RowThreshold,
		ProximityThreshold: c.Pipeline.Layout.ProximityThreshold,
		NumericClusterGap:  c.Pipeline.Layout.NumericClusterGap,
	}
}

func (c *Config) toValidateConfig() validate.Config {
	cfg := validate.Config{
		LineArithmetic:    c.Pipeline.Validate.LineArithmetic,
		InvoiceArithmetic: c.Pipeline.Validate.InvoiceArithmetic,
		LineSumSubtotal:   c.Pipeline.Validate.LineSumSubtotal,
		NonNegativity:     c.Pipeline.Validate.NonNegativity,
		DateOrdering:      c.Pipeline.Validate.DateOrdering,
		DuplicateItems:    c.Pipeline.Validate.DuplicateItems,
	}
	if d, err := c.tolerance(); err == nil {
		cfg.Tolerance = d
	} else {
		cfg.Tolerance = validate.DefaultConfig().Tolerance
	}
	return cfg
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func validateFraction(value float64, name string) error {
	if value <= 0 || value > 1 {
		return fmt.Errorf("%s must be in (0, 1], got %g", name, value)
	}
	return nil
}
