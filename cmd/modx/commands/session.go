package commands

import (
	"database/sql"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/modx/am"
	"github.com/teranos/modx/db"
	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/logger"
	"github.com/teranos/modx/metrics"
	"github.com/teranos/modx/modify"
	"github.com/teranos/modx/storage"
	"github.com/teranos/modx/sym"
	"github.com/teranos/modx/writefilter"
)

// openDatabase opens and migrates a database using the specified path.
// If dbPath is empty, it loads from am config.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		cfg, err := am.Load()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load configuration")
		}
		dbPath = cfg.GetDatabasePath()
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}

// session wires configuration, storage and the optional pipeline
// components shared by apply and point.
type session struct {
	cfg      *am.Config
	database *sql.DB
	store    *storage.Store
	gateway  modify.Gateway
	filter   *writefilter.Filter
	metrics  *metrics.Metrics
	watcher  *am.ConfigWatcher
}

type sessionFlags struct {
	dbPath      string
	watchConfig string
	metricsFile string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dbPath, "db", "", "Database path (default: database.path from config)")
	cmd.Flags().StringVar(&f.watchConfig, "watch-config", "", "Reload write filter rules when this config file changes")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
}

func openSession(flags sessionFlags) (*session, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	rt := &session{cfg: cfg}
	path := flags.dbPath
	if path == "" {
		path = cfg.GetDatabasePath()
	}
	if rt.database, err = openDatabase(path); err != nil {
		return nil, err
	}

	rt.store, err = storage.NewStore(rt.database, storage.Options{
		CompressDocuments: cfg.Database.CompressDocuments,
		KeyStyle:          storage.KeyStyle(cfg.Database.KeyStyle),
		Logger:            logger.Logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.gateway = storage.Throttle(rt.store, cfg.Storage.MaxTransactionsPerSecond, cfg.Storage.Burst)

	if cfg.WriteFilter.Enabled || flags.watchConfig != "" {
		rt.filter = writefilter.NewFromConfig(cfg.WriteFilter, logger.Logger)
	}
	if flags.watchConfig != "" {
		rt.watcher, err = am.NewConfigWatcher(flags.watchConfig)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.filter.Watch(rt.watcher)
		am.SetGlobalWatcher(rt.watcher)
		rt.watcher.Start()
	}

	if cfg.Metrics.Enabled || flags.metricsFile != "" {
		if rt.metrics, err = metrics.New(cfg.GetMetricsNamespace()); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

// writeFilter returns the filter as a modify.WriteFilter, or nil when none
// is configured.
func (rt *session) writeFilter() modify.WriteFilter {
	if rt.filter == nil {
		return nil
	}
	return rt.filter
}

// counters returns Prometheus counters when metrics are on, in-memory
// stats otherwise. The stats are always returned for the run summary.
func (rt *session) counters(collection, kind string) (modify.Counters, *modify.Stats, *metrics.Counters) {
	stats := &modify.Stats{}
	if rt.metrics == nil {
		return stats, stats, nil
	}
	prom := rt.metrics.For(collection, kind)
	return teeCounters{stats, prom}, stats, prom
}

func (rt *session) flushMetrics(path string) error {
	if rt.metrics == nil || path == "" {
		return nil
	}
	return rt.metrics.WriteToTextfile(path)
}

func (rt *session) Close() {
	if rt.watcher != nil {
		am.SetGlobalWatcher(nil)
		rt.watcher.Stop()
	}
	if rt.store != nil {
		rt.store.Close()
	}
	if rt.database != nil {
		rt.database.Close()
	}
}

// teeCounters forwards write statistics to several sinks.
type teeCounters []modify.Counters

func (t teeCounters) AddWritesExecuted(n int) {
	for _, c := range t {
		c.AddWritesExecuted(n)
	}
}

func (t teeCounters) AddWritesIgnored(n int) {
	for _, c := range t {
		c.AddWritesIgnored(n)
	}
}

// openInput returns the reader named by path; "-" reads the command's stdin.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open input %s", path)
	}
	return f, nil
}

// openOutput returns the writer named by path; "-" writes to the command's
// stdout.
func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create output %s", path)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// operationName accepts an operation name or its glyph.
func operationName(arg string) string {
	if name, ok := sym.SymbolToCommand[arg]; ok {
		return name
	}
	return arg
}
