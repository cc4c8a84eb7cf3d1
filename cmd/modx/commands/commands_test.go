package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/modx/am"
	"github.com/teranos/modx/document"
	"github.com/teranos/modx/storage"
)

// isolate points HOME, the working directory and the database at a fresh
// temp dir and returns the working directory.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	home := filepath.Join(root, "home")
	work := filepath.Join(root, "work")
	require.NoError(t, os.MkdirAll(home, am.DefaultDirPermissions))
	require.NoError(t, os.MkdirAll(work, am.DefaultDirPermissions))
	t.Setenv("HOME", home)
	t.Setenv("MODX_DATABASE_PATH", filepath.Join(root, "modx.db"))
	t.Chdir(work)
	am.Reset()
	t.Cleanup(am.Reset)
	return work
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(cmd)
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func outputRows(t *testing.T, out string) []document.Value {
	t.Helper()
	var rows []document.Value
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		v, err := document.Parse([]byte(line))
		require.NoError(t, err, line)
		rows = append(rows, v)
	}
	return rows
}

func TestApplyInsertAndPointLookup(t *testing.T) {
	isolate(t)

	out, err := execute(t, ApplyCmd, "{\"_key\":\"a\",\"n\":1}\n{\"_key\":\"b\",\"n\":2}\n",
		"insert", "-c", "docs", "--return-new")
	require.NoError(t, err)

	rows := outputRows(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Get("doc").Get("_key").StringValue())
	assert.Equal(t, "docs/a", rows[0].Get("new").Get("_id").StringValue())
	assert.Equal(t, float64(2), rows[1].Get("new").Get("n").NumberValue())

	out, err = execute(t, PointCmd, "", "lookup", "-c", "docs", "--key", "b")
	require.NoError(t, err)
	rows = outputRows(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(2), rows[0].Get("new").Get("n").NumberValue())
	assert.True(t, rows[0].Get("doc").IsNone())
}

func TestApplyUpsertWithRoles(t *testing.T) {
	isolate(t)

	input := `{"doc":null,"insert":{"_key":"k","n":1},"update":{}}
{"doc":{"_key":"k"},"insert":{},"update":{"n":2}}
`
	out, err := execute(t, ApplyCmd, input, "upsert", "-c", "counters", "--roles", "--return-new")
	require.NoError(t, err)

	rows := outputRows(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, float64(1), rows[0].Get("new").Get("n").NumberValue())
	assert.Equal(t, float64(2), rows[1].Get("new").Get("n").NumberValue())
	assert.Equal(t, "k", rows[1].Get("new").Get("_key").StringValue())
}

func TestApplyErrors(t *testing.T) {
	isolate(t)

	_, err := execute(t, ApplyCmd, "", "frobnicate", "-c", "docs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operation")

	_, err = execute(t, ApplyCmd, "", "upsert", "-c", "docs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert needs role records")

	_, err = execute(t, ApplyCmd, "{\"_key\":\"a\"}\n{\"_key\":\"a\"}\n", "insert", "-c", "docs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unique constraint violated")
}

func TestApplyRemoveIgnoreErrors(t *testing.T) {
	isolate(t)

	_, err := execute(t, ApplyCmd, "{\"_key\":\"a\",\"v\":1}\n", "insert", "-c", "docs")
	require.NoError(t, err)

	out, err := execute(t, ApplyCmd, "{\"_key\":\"a\"}\n{\"_key\":\"missing\"}\n",
		"remove", "-c", "docs", "--ignore-errors", "--return-old")
	require.NoError(t, err)

	rows := outputRows(t, out)
	require.Len(t, rows, 1, "the missing document produces no output row")
	assert.Equal(t, float64(1), rows[0].Get("old").Get("v").NumberValue())
}

func TestPointRemoveIgnoreNotFound(t *testing.T) {
	isolate(t)

	out, err := execute(t, PointCmd, "", "remove", "-c", "docs", "--key", "missing", "--ignore-not-found")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))

	_, err = execute(t, PointCmd, "", "remove", "-c", "docs", "--key", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document not found")
}

func TestApplyWriteFilterFromProjectConfig(t *testing.T) {
	work := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(work, "am.toml"), []byte(`
[write_filter]
enabled = true
key_prefixes = ["tmp-"]
`), am.DefaultFilePermissions))

	out, err := execute(t, ApplyCmd, "{\"_key\":\"tmp-1\"}\n{\"_key\":\"a\"}\n",
		"insert", "-c", "docs", "--return-new")
	require.NoError(t, err)

	rows := outputRows(t, out)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Get("new").IsNone(), "filtered row is copied through")
	assert.Equal(t, "a", rows[1].Get("new").Get("_key").StringValue())

	out, err = execute(t, DbCmd, "", "stats", "--format", "json")
	require.NoError(t, err)
	var stats []storage.CollectionStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "docs", stats[0].Collection)
	assert.Equal(t, int64(1), stats[0].Documents)
}

func TestApplyMetricsFile(t *testing.T) {
	work := isolate(t)
	metricsPath := filepath.Join(work, "modx.prom")

	_, err := execute(t, ApplyCmd, "{\"_key\":\"a\"}\n", "insert", "-c", "docs", "--metrics-file", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "modx_modify_writes_total")
	assert.Contains(t, string(data), `collection="docs"`)
}

func TestApplyOutputFile(t *testing.T) {
	work := isolate(t)
	outPath := filepath.Join(work, "out.jsonl")

	out, err := execute(t, ApplyCmd, "{\"_key\":\"a\"}\n", "insert", "-c", "docs", "-o", outPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Len(t, outputRows(t, string(data)), 1)
}

func TestPointUnknownOperation(t *testing.T) {
	isolate(t)

	_, err := execute(t, PointCmd, "", "truncate", "-c", "docs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown point operation")
}

func TestDbMigrate(t *testing.T) {
	isolate(t)

	out, err := execute(t, DbCmd, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema up to date")
}

func TestAmSetAndGet(t *testing.T) {
	work := isolate(t)
	configPath := filepath.Join(work, "am.toml")

	out, err := execute(t, AmCmd, "", "set", "modify.batch_size", "7", "--file", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "modify.batch_size = 7")

	out, err = execute(t, AmCmd, "", "get", "modify.batch_size")
	require.NoError(t, err)
	assert.Equal(t, "7", strings.TrimSpace(out))

	_, err = execute(t, AmCmd, "", "get", "no.such.key")
	assert.Error(t, err)

	out, err = execute(t, AmCmd, "", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
}

func TestAmShowJSON(t *testing.T) {
	isolate(t)

	out, err := execute(t, AmCmd, "", "show", "--format", "json")
	require.NoError(t, err)

	var settings map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	assert.Contains(t, settings, "modify")
	assert.Contains(t, settings, "database")
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, VersionCmd, "", "--json")
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")
}
