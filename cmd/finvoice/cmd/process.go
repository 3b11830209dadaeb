package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/finvoice/internal/pipeline"
)

// processCmd runs a single invoice image through the pipeline.
var processCmd = &cobra.Command{
	Use:   "process [image]",
	Short: "Extract and validate structured data from one invoice image",
	Long: `Process a single invoice image through OCR, parsing and financial
validation, persisting every stage to the stage store.

Examples:
  finvoice process invoice.png
  finvoice process invoice.png --invoice-id INV-2024-017 --output result.json
  finvoice process scan.jpg --ocr remote --ocr-url http://ocr.internal/detect`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runProcessCommand,
}

func init() {
	processCmd.Flags().String("invoice-id", "", "invoice identifier (generated when empty)")
	processCmd.Flags().StringP("output", "o", "", "write the JSON result to a file instead of stdout")

	rootCmd.AddCommand(processCmd)
}

func runProcessCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	imageBytes, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	orch, err := buildOrchestrator(cfg, nil)
	if err != nil {
		return err
	}

	invoiceID, _ := cmd.Flags().GetString("invoice-id")
	res, err := orch.Process(cmd.Context(), invoiceID, imageBytes)
	if err != nil {
		// The structured failure object is the output contract even on
		// error.
		if pe, ok := pipeline.AsPipelineError(err); ok {
			_ = writeOutput(cmd.OutOrStdout(), cfg, outputFileFlag(cmd), pe)
		}
		return err
	}

	return writeOutput(cmd.OutOrStdout(), cfg, outputFileFlag(cmd), res)
}
