package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/modx/db"
	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/storage"
	"github.com/teranos/modx/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the modx document database",
	Long: sym.DB + ` db - Manage the modx document database

Examples:
  modx db migrate                 # Apply pending schema migrations
  modx db stats                   # Show per-collection document counts
  modx db stats --format json     # Same, as JSON`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-collection document statistics",
	RunE:  runDbStats,
}

var (
	dbPathFlag  string
	statsFormat string
)

func init() {
	DbCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Database path (default: database.path from config)")
	dbStatsCmd.Flags().StringVar(&statsFormat, "format", "table", "Output format: table, json, yaml")

	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	versions, err := db.AppliedVersions(database)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Schema up to date (%d migrations applied)\n", sym.DB, len(versions))
	for _, v := range versions {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", v)
	}
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	store, err := storage.NewStore(database, storage.Options{})
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(commandContext(cmd))
	if err != nil {
		return errors.Wrap(err, "failed to query collection stats")
	}

	if statsFormat != "table" {
		return writeFormatted(cmd.OutOrStdout(), statsFormat, stats)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Database Statistics\n", sym.DB)
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	if len(stats) == 0 {
		fmt.Fprintln(out, "No documents stored")
		return nil
	}
	fmt.Fprintf(out, "%-24s %10s %12s %10s\n", "Collection", "Documents", "Body bytes", "Compressed")
	var total int64
	for _, s := range stats {
		fmt.Fprintf(out, "%-24s %10d %12d %10d\n", s.Collection, s.Documents, s.BodyBytes, s.CompressedCount)
		total += s.Documents
	}
	fmt.Fprintf(out, "\nTotal documents: %d\n", total)
	return nil
}
