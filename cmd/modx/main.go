package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/modx/cmd/modx/commands"
	"github.com/teranos/modx/logger"
	"github.com/teranos/modx/sym"
)

var rootCmd = &cobra.Command{
	Use:   "modx",
	Short: sym.Pipeline + " modx - batched document modification pipeline",
	Long: sym.Pipeline + ` modx - batched document modification pipeline

modx applies insert, remove, update, replace and upsert operations to
document collections in batches, keeping output rows in input order.

Available commands:
  apply   - Run the batched pipeline over a row file
  point   - Apply one operation per row without batching
  db      - Migrate and inspect the document database
  am      - Manage modx configuration ("I am")
  version - Show build information

Examples:
  modx apply insert -c users -i users.jsonl --return-new
  modx apply upsert -c users -i rows.yaml --format yaml --roles
  modx point lookup -c users --key alice
  modx db stats
  modx am show --format yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.InitializeWithLevel(jsonLogs, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON")

	rootCmd.AddCommand(commands.ApplyCmd)
	rootCmd.AddCommand(commands.PointCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
