package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/finvoice/internal/pipeline"
)

// batchCmd processes multiple invoice images in parallel.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Process multiple invoice images in parallel",
	Long: `Process many invoice images through the pipeline using a bounded
worker pool. Each invoice is an independent unit of work; one failing
invoice does not stop the batch.

Supported formats: JPEG, PNG, BMP, TIFF

Examples:
  finvoice batch scans/*.png
  finvoice batch scans/ --workers 8
  finvoice batch scans/ --output results.json --no-progress`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

func init() {
	batchCmd.Flags().IntP("workers", "w", 0, "number of parallel workers (0 = number of CPUs)")
	batchCmd.Flags().StringP("output", "o", "", "write the JSON results to a file instead of stdout")
	batchCmd.Flags().Bool("no-progress", false, "disable the progress bar")

	rootCmd.AddCommand(batchCmd)
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// collectImageFiles expands the arguments into a flat file list,
// descending one level into directories.
func collectImageFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				files = append(files, filepath.Join(arg, entry.Name()))
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files found")
	}
	return files, nil
}

// batchSummary is the aggregate output written after a batch run.
type batchSummary struct {
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Results   []*pipeline.Result `json:"results"`
	Errors    []any              `json:"errors,omitempty"`
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	files, err := collectImageFiles(args)
	if err != nil {
		return err
	}

	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Batch.Workers = workers
	}
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); noProgress {
		cfg.Batch.Progress = false
	}

	var progress pipeline.ProgressCallback
	if cfg.Batch.Progress {
		progress = pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr())
	}
	orch, err := buildOrchestrator(cfg, progress)
	if err != nil {
		return err
	}

	inputs := make([]pipeline.BatchInput, 0, len(files))
	for _, file := range files {
		data, rerr := os.ReadFile(file)
		if rerr != nil {
			return fmt.Errorf("read image %s: %w", file, rerr)
		}
		id := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		inputs = append(inputs, pipeline.BatchInput{InvoiceID: id, Image: data})
	}

	items, err := orch.ProcessBatch(cmd.Context(), inputs)
	if err != nil && items == nil {
		return err
	}

	summary := batchSummary{Total: len(items)}
	for _, item := range items {
		if item.Err != nil {
			summary.Failed++
			if pe, ok := pipeline.AsPipelineError(item.Err); ok {
				summary.Errors = append(summary.Errors, pe)
			} else {
				summary.Errors = append(summary.Errors, item.Err.Error())
			}
			continue
		}
		summary.Succeeded++
		summary.Results = append(summary.Results, item.Result)
	}

	if werr := writeOutput(cmd.OutOrStdout(), cfg, outputFileFlag(cmd), summary); werr != nil {
		return werr
	}
	if !cfg.Batch.ContinueOnError && summary.Failed > 0 {
		return fmt.Errorf("%d of %d invoices failed", summary.Failed, summary.Total)
	}
	return err
}
