package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/finvoice/internal/config"
	"github.com/MeKo-Tech/finvoice/internal/llm"
	"github.com/MeKo-Tech/finvoice/internal/ocr"
	"github.com/MeKo-Tech/finvoice/internal/pipeline"
)

// buildOrchestrator assembles the pipeline from the resolved
// configuration. progress may be nil.
func buildOrchestrator(cfg *config.Config, progress pipeline.ProgressCallback) (*pipeline.Orchestrator, error) {
	backend, err := buildBackend(cfg)
	if err != nil {
		return nil, err
	}

	b := pipeline.NewBuilder().WithOCR(backend).WithProgress(progress)

	pc := cfg.ToPipelineConfig()
	b.WithStageDir(pc.StageDir).
		WithLayout(pc.Layout).
		WithValidation(pc.Validate).
		WithRetry(pc.Retry).
		WithWorkers(pc.Parallel.MaxWorkers)

	if cfg.LLM.ExtractorURL != "" {
		b.WithExtractor(llm.NewHTTPExtractor(cfg.LLM.ExtractorURL, cfg.LLM.Timeout))
	}
	if cfg.LLM.AgentURL != "" {
		b.WithAgent(llm.NewHTTPAgent(cfg.LLM.AgentURL, cfg.LLM.Timeout))
	}

	return b.Build()
}

func buildBackend(cfg *config.Config) (ocr.Backend, error) {
	switch cfg.OCR.Backend {
	case "mock":
		if cfg.OCR.Fixture != "" {
			return ocr.NewFixtureBackend(cfg.OCR.Fixture), nil
		}
		return ocr.NewMockBackend(), nil
	case "remote":
		if cfg.OCR.URL == "" {
			return nil, fmt.Errorf("remote ocr backend requires ocr.url")
		}
		return ocr.NewHTTPBackend(cfg.OCR.URL, cfg.OCR.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown ocr backend %q", cfg.OCR.Backend)
	}
}

// writeOutput encodes v as JSON to the configured destination. An
// empty file path writes to w.
func writeOutput(w io.Writer, cfg *config.Config, file string, v any) error {
	out := w
	if file == "" {
		file = cfg.Output.File
	}
	if file != "" {
		f, err := os.Create(file)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	enc := json.NewEncoder(out)
	if cfg.Output.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func outputFileFlag(cmd *cobra.Command) string {
	file, _ := cmd.Flags().GetString("output")
	return file
}
