// Package am ("as modified") loads and watches modx configuration.
//
// Settings merge in precedence order: built-in defaults, /etc/modx/config.toml,
// ~/.modx/am.toml, the nearest project am.toml, then MODX_* environment
// variables.
package am

import "github.com/teranos/modx/modify"

// Config represents the modx configuration
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Modify      ModifyConfig      `mapstructure:"modify"`
	Storage     StorageConfig     `mapstructure:"storage"`
	WriteFilter WriteFilterConfig `mapstructure:"write_filter"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path              string `mapstructure:"path"`
	CompressDocuments bool   `mapstructure:"compress_documents"` // zstd-compress stored bodies
	KeyStyle          string `mapstructure:"key_style"`          // sequence or uuid
}

// ModifyConfig configures the modification pipeline
type ModifyConfig struct {
	BatchSize           int            `mapstructure:"batch_size"`
	UpsertReadOwnWrites bool           `mapstructure:"upsert_read_own_writes"` // false allows batched upserts
	Defaults            ModifyDefaults `mapstructure:"defaults"`
}

// ModifyDefaults are the operation flags used when the CLI does not set them.
type ModifyDefaults struct {
	WaitForSync            bool `mapstructure:"wait_for_sync"`
	KeepNull               bool `mapstructure:"keep_null"`
	MergeObjects           bool `mapstructure:"merge_objects"`
	IgnoreRevs             bool `mapstructure:"ignore_revs"`
	IgnoreErrors           bool `mapstructure:"ignore_errors"`
	IgnoreDocumentNotFound bool `mapstructure:"ignore_document_not_found"`
	ReturnOld              bool `mapstructure:"return_old"`
	ReturnNew              bool `mapstructure:"return_new"`
	Overwrite              bool `mapstructure:"overwrite"`
	IsReplace              bool `mapstructure:"is_replace"`
}

// OperationConfig converts the defaults into pipeline options.
func (d ModifyDefaults) OperationConfig() modify.OperationConfig {
	return modify.OperationConfig{
		WaitForSync:            d.WaitForSync,
		KeepNull:               d.KeepNull,
		MergeObjects:           d.MergeObjects,
		IgnoreRevs:             d.IgnoreRevs,
		IgnoreErrors:           d.IgnoreErrors,
		IgnoreDocumentNotFound: d.IgnoreDocumentNotFound,
		ReturnOld:              d.ReturnOld,
		ReturnNew:              d.ReturnNew,
		Overwrite:              d.Overwrite,
		IsReplace:              d.IsReplace,
	}
}

// StorageConfig throttles gateway transactions
type StorageConfig struct {
	MaxTransactionsPerSecond float64 `mapstructure:"max_transactions_per_second"` // 0 = unlimited
	Burst                    int     `mapstructure:"burst"`
}

// WriteFilterConfig selects documents the pipeline must not modify
type WriteFilterConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	KeyPrefixes []string `mapstructure:"key_prefixes"`
	Attribute   string   `mapstructure:"attribute"`
	Values      []string `mapstructure:"values"`
}

// MetricsConfig configures the Prometheus write counters
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
