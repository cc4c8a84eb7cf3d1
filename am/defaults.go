package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default values
const (
	DefaultDatabasePath     = "modx.db"
	DefaultBatchSize        = 1000
	DefaultMetricsNamespace = "modx"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.compress_documents", false)
	v.SetDefault("database.key_style", "sequence")

	// Pipeline defaults
	v.SetDefault("modify.batch_size", DefaultBatchSize)
	v.SetDefault("modify.upsert_read_own_writes", true)
	v.SetDefault("modify.defaults.wait_for_sync", false)
	v.SetDefault("modify.defaults.keep_null", false)
	v.SetDefault("modify.defaults.merge_objects", true)
	v.SetDefault("modify.defaults.ignore_revs", true)
	v.SetDefault("modify.defaults.ignore_errors", false)
	v.SetDefault("modify.defaults.ignore_document_not_found", false)
	v.SetDefault("modify.defaults.return_old", false)
	v.SetDefault("modify.defaults.return_new", false)
	v.SetDefault("modify.defaults.overwrite", false)
	v.SetDefault("modify.defaults.is_replace", false)

	// Storage throttle: unlimited
	v.SetDefault("storage.max_transactions_per_second", 0.0)
	v.SetDefault("storage.burst", 1)

	v.SetDefault("write_filter.enabled", false)
	v.SetDefault("write_filter.key_prefixes", []string{})
	v.SetDefault("write_filter.attribute", "")
	v.SetDefault("write_filter.values", []string{})

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)
}

// BindSensitiveEnvVars explicitly binds settings commonly overridden per
// invocation to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "MODX_DATABASE_PATH")
	v.BindEnv("modify.batch_size", "MODX_BATCH_SIZE")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// GetBatchSize returns the pipeline batch size (default: 1000)
func (c *Config) GetBatchSize() int {
	if c.Modify.BatchSize == 0 {
		return DefaultBatchSize
	}
	return c.Modify.BatchSize
}

// GetMetricsNamespace returns the metrics namespace (default: modx)
func (c *Config) GetMetricsNamespace() string {
	if c.Metrics.Namespace == "" {
		return DefaultMetricsNamespace
	}
	return c.Metrics.Namespace
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Modify: {BatchSize: %d}, WriteFilter: {Enabled: %t}, Metrics: {Enabled: %t}}",
		c.Database.Path, c.Modify.BatchSize, c.WriteFilter.Enabled, c.Metrics.Enabled)
}
