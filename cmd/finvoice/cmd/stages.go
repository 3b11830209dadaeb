package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/finvoice/internal/etl"
)

// stagesCmd inspects the stage store.
var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Inspect the persisted pipeline stages",
	Long: `Inspect the stage store used for audit and replay. Every processed
invoice leaves one JSON snapshot per completed stage
(raw_ocr, parsed, validated, corrected).`,
}

var stagesListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List all invoice IDs present in the stage store",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		ids, err := store.List()
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var stagesShowCmd = &cobra.Command{
	Use:          "show [invoice-id] [stage]",
	Short:        "Show one persisted stage snapshot",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		stage := etl.Stage(args[1])
		if !etl.ValidStage(stage) {
			return fmt.Errorf("unknown stage %q, want one of %v", args[1], etl.Stages())
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		env, err := store.Load(stage, args[0])
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), GetConfig(), outputFileFlag(cmd), env)
	},
}

var stagesTraceCmd = &cobra.Command{
	Use:          "trace [invoice-id]",
	Short:        "Show every persisted stage of one invoice",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		trace, err := store.LoadAll(args[0])
		if err != nil {
			return err
		}
		if len(trace) == 0 {
			return fmt.Errorf("no stages found for invoice %s", args[0])
		}
		// Emit in pipeline order rather than map order.
		ordered := make([]*etl.Envelope, 0, len(trace))
		for _, stage := range etl.Stages() {
			if env, ok := trace[stage]; ok {
				ordered = append(ordered, env)
			}
		}
		return writeOutput(cmd.OutOrStdout(), GetConfig(), outputFileFlag(cmd), ordered)
	},
}

func openStore() (etl.Store, error) {
	return etl.NewFileStore(GetConfig().Store.Dir)
}

func init() {
	stagesShowCmd.Flags().StringP("output", "o", "", "write the JSON snapshot to a file instead of stdout")
	stagesTraceCmd.Flags().StringP("output", "o", "", "write the JSON trace to a file instead of stdout")

	stagesCmd.AddCommand(stagesListCmd, stagesShowCmd, stagesTraceCmd)
	rootCmd.AddCommand(stagesCmd)
}
