package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teranos/modx/am"
	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage modx configuration",
	Long: sym.AM + ` am - Manage modx configuration ("I am")

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (MODX_* prefix, e.g. MODX_MODIFY_BATCH_SIZE)
3. Project config (am.toml, searched upward from the working directory)
4. User config (~/.modx/am.toml)
5. System config (/etc/modx/config.toml)
6. Default values

Examples:
  modx am show                          # Show current configuration
  modx am show --format json            # Show configuration in JSON format
  modx am get modify.batch_size         # Get specific config value
  modx am set write_filter.enabled true # Persist a value in ~/.modx/am.toml
  modx am where                         # Show where each value came from
  modx am validate                      # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, modify.batch_size)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value in the user config",
	Long: `Set a value in ~/.modx/am.toml (or --file). true/false become booleans,
numbers become numbers, and comma-separated values become lists.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where each configuration value is loaded from",
	RunE:  runAmWhere,
}

var (
	configFormat string
	setFile      string
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amSetCmd.Flags().StringVar(&setFile, "file", "", "Config file to modify (default: ~/.modx/am.toml)")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	settings := am.GetViper().AllSettings()
	if configFormat != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "# modx configuration")
	}
	return writeFormatted(cmd.OutOrStdout(), configFormat, settings)
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	v := am.GetViper()
	if !v.IsSet(key) {
		return errors.NewNotFoundError("configuration key %q", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], am.ParseValue(args[1])

	var err error
	if setFile != "" {
		err = am.SetValue(setFile, key, value)
	} else {
		err = am.SetUserValue(key, value)
	}
	if err != nil {
		return err
	}
	am.Reset()

	target := setFile
	if target == "" {
		target = am.UserConfigPath()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %v (%s)\n", sym.AM, key, value, target)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	settings, err := am.GetConfigIntrospection()
	if err != nil {
		return errors.Wrap(err, "failed to get config introspection")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(out, "  1. [DEFAULT]  Built-in defaults")
	fmt.Fprintln(out, "  2. [SYSTEM]   /etc/modx/config.toml")
	fmt.Fprintln(out, "  3. [USER]     ~/.modx/am.toml")
	fmt.Fprintln(out, "  4. [PROJECT]  am.toml (searches up directories)")
	fmt.Fprintln(out, "  5. [ENV]      MODX_* environment variables")
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE\tFROM")
	for _, s := range settings {
		fmt.Fprintf(tw, "%s\t%v\t%s\t%s\n", s.Key, s.Value, s.Source, s.SourcePath)
	}
	return tw.Flush()
}
