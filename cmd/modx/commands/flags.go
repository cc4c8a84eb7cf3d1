package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/modx/modify"
)

// operationFlag binds a CLI flag to one OperationConfig field. Flags left
// unset keep the value from modify.defaults in config.
type operationFlag struct {
	name  string
	usage string
	field func(*modify.OperationConfig) *bool
}

var operationFlags = []operationFlag{
	{"wait-for-sync", "Wait until writes are synced to disk", func(c *modify.OperationConfig) *bool { return &c.WaitForSync }},
	{"keep-null", "Store null attributes instead of removing them", func(c *modify.OperationConfig) *bool { return &c.KeepNull }},
	{"merge-objects", "Merge nested objects on update", func(c *modify.OperationConfig) *bool { return &c.MergeObjects }},
	{"ignore-revs", "Skip _rev checks", func(c *modify.OperationConfig) *bool { return &c.IgnoreRevs }},
	{"ignore-errors", "Skip rows whose document fails instead of aborting", func(c *modify.OperationConfig) *bool { return &c.IgnoreErrors }},
	{"ignore-not-found", "Produce no output for missing documents instead of failing", func(c *modify.OperationConfig) *bool { return &c.IgnoreDocumentNotFound }},
	{"return-new", "Write the new document to the output row", func(c *modify.OperationConfig) *bool { return &c.ReturnNew }},
	{"return-old", "Write the previous document to the output row", func(c *modify.OperationConfig) *bool { return &c.ReturnOld }},
	{"overwrite", "Let inserts overwrite existing documents", func(c *modify.OperationConfig) *bool { return &c.Overwrite }},
	{"replace", "Replace instead of update (upsert and overwrite)", func(c *modify.OperationConfig) *bool { return &c.IsReplace }},
	{"restore", "Keep the _rev supplied in each document", func(c *modify.OperationConfig) *bool { return &c.IsRestore }},
}

func registerOperationFlags(cmd *cobra.Command) {
	for _, f := range operationFlags {
		cmd.Flags().Bool(f.name, false, f.usage)
	}
}

// applyOperationFlags overrides cfg with every flag set on the command line.
func applyOperationFlags(cmd *cobra.Command, cfg *modify.OperationConfig) error {
	for _, f := range operationFlags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		v, err := cmd.Flags().GetBool(f.name)
		if err != nil {
			return err
		}
		*f.field(cfg) = v
	}
	return nil
}
