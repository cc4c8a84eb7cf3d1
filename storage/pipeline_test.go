package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/modx/document"
	testutil "github.com/teranos/modx/internal/testing"
	"github.com/teranos/modx/modify"
	"github.com/teranos/modx/rows"
)

// drain runs the executor until it reports done.
func drain(t *testing.T, exec *modify.Executor, src modify.RowSource, sink modify.OutputSink) error {
	t.Helper()
	for i := 0; i < 100; i++ {
		state, err := exec.ProduceRows(context.Background(), src, sink, modify.DefaultBatchSize)
		if err != nil || state == modify.ExecDone {
			return err
		}
	}
	t.Fatal("executor did not finish")
	return nil
}

func newExecutor(t *testing.T, s *Store, infos modify.Infos) *modify.Executor {
	t.Helper()
	infos.Collection = "docs"
	infos.Gateway = s
	infos.Logger = zaptest.NewLogger(t).Sugar()
	exec, err := modify.NewExecutor(infos)
	require.NoError(t, err)
	return exec
}

func TestPipelineInsertReturnNew(t *testing.T) {
	s := newTestStore(t, Options{})
	cfg := modify.DefaultOperationConfig()
	cfg.ReturnNew = true
	stats := &modify.Stats{}

	exec := newExecutor(t, s, modify.Infos{Kind: modify.KindInsert, Options: cfg, Registers: rows.Registers(false), Counters: stats})
	out := rows.NewCollector(rows.Registers(false))
	require.NoError(t, drain(t, exec, rows.NewSliceSource(rows.DocumentRow(document.MustParse(`{"x":1}`))), out))

	require.Len(t, out.Rows(), 1)
	newDoc := out.Rows()[0].Value(rows.RegNew)
	assert.Equal(t, float64(1), newDoc.Get("x").NumberValue())
	assert.Equal(t, "1", newDoc.Get(document.KeyAttribute).StringValue())
	assert.Equal(t, int64(1), stats.WritesExecuted())
}

func TestPipelineRemoveWithWriteFilter(t *testing.T) {
	s := newTestStore(t, Options{})
	apply(t, s, modify.OpInsert, modify.OperationConfig{}, `{"_key":"keep"}`, `{"_key":"drop","v":2}`)

	cfg := modify.DefaultOperationConfig()
	cfg.ReturnOld = true
	cfg.ConsultWriteFilter = true
	stats := &modify.Stats{}
	exec := newExecutor(t, s, modify.Infos{
		Kind:      modify.KindRemove,
		Options:   cfg,
		Registers: rows.Registers(false),
		Counters:  stats,
		WriteFilter: modify.WriteFilterFunc(func(_ document.Value, key string) bool {
			return key == "keep"
		}),
	})
	out := rows.NewCollector(rows.Registers(false))
	src := rows.NewSliceSource(
		rows.DocumentRow(document.String("keep")),
		rows.DocumentRow(document.String("drop")),
	)
	require.NoError(t, drain(t, exec, src, out))

	require.Len(t, out.Rows(), 2)
	assert.True(t, out.Rows()[0].Value(rows.RegOld).IsNone(), "filtered row is copied through")
	assert.Equal(t, float64(2), out.Rows()[1].Value(rows.RegOld).Get("v").NumberValue())
	assert.Equal(t, int64(1), stats.WritesExecuted())

	_, found := lookup(t, s, "keep")
	assert.True(t, found)
	_, found = lookup(t, s, "drop")
	assert.False(t, found)
}

func TestPointUpdateMissingDocument(t *testing.T) {
	s := newTestStore(t, Options{})
	cfg := modify.DefaultOperationConfig()
	cfg.IgnoreDocumentNotFound = true

	exec, err := modify.NewSingleRowExecutor(modify.SingleInfos{
		Operation:  modify.PointUpdate,
		Collection: "docs",
		Options:    cfg,
		Registers:  rows.Registers(false),
		Gateway:    s,
		Logger:     zaptest.NewLogger(t).Sugar(),
	})
	require.NoError(t, err)

	out := rows.NewCollector(rows.Registers(false))
	produced, err := exec.Execute(context.Background(), rows.DocumentRow(document.MustParse(`{"_key":"missing","v":1}`)), out)
	require.NoError(t, err)
	assert.False(t, produced)
	assert.Empty(t, out.Rows())
}

func TestPipelineUpsertSeesEarlierRows(t *testing.T) {
	s := newTestStore(t, Options{})
	cfg := modify.DefaultOperationConfig()
	cfg.ReturnNew = true
	stats := &modify.Stats{}
	exec := newExecutor(t, s, modify.Infos{Kind: modify.KindUpsert, Options: cfg, Registers: rows.Registers(false), Counters: stats})

	// Each row looks up its match the way an upstream index read would,
	// so the second row must observe the first row's insert.
	remaining := 2
	src := rows.FuncSource(func(ctx context.Context) (modify.FetchStatus, modify.Row, error) {
		match := document.Null()
		res, err := s.Apply(ctx, modify.Request{
			Collection: "docs",
			Operation:  modify.OpLookup,
			Documents:  []document.Value{document.String("k")},
			Options:    modify.OperationConfig{IgnoreRevs: true},
		})
		if err != nil {
			return modify.Done, nil, err
		}
		update := document.MustParse(`{"count":1}`)
		if !res[0].Failed() {
			match = res[0].New
			update = document.Object(map[string]document.Value{
				"count": document.Number(match.Get("count").NumberValue() + 1),
			})
		}
		row := rows.NewRow(match, document.None(), document.MustParse(`{"_key":"k","count":1}`), update)
		remaining--
		if remaining == 0 {
			return modify.Done, row, nil
		}
		return modify.HasMore, row, nil
	})

	out := rows.NewCollector(rows.Registers(false))
	require.NoError(t, drain(t, exec, src, out))

	require.Len(t, out.Rows(), 2)
	assert.Equal(t, float64(1), out.Rows()[0].Value(rows.RegNew).Get("count").NumberValue())
	assert.Equal(t, float64(2), out.Rows()[1].Value(rows.RegNew).Get("count").NumberValue())
	assert.Equal(t, 2, exec.Cycles())
	assert.Equal(t, int64(2), stats.WritesExecuted())

	doc, _ := lookup(t, s, "k")
	assert.Equal(t, float64(2), doc.Get("count").NumberValue())
}

func TestPipelineAbortsOnDocumentError(t *testing.T) {
	s := newTestStore(t, Options{})
	apply(t, s, modify.OpInsert, modify.OperationConfig{}, `{"_key":"taken"}`)

	exec := newExecutor(t, s, modify.Infos{Kind: modify.KindInsert, Options: modify.DefaultOperationConfig(), Registers: rows.Registers(false)})
	out := rows.NewCollector(rows.Registers(false))
	src := rows.NewSliceSource(
		rows.DocumentRow(document.MustParse(`{"_key":"fresh"}`)),
		rows.DocumentRow(document.MustParse(`{"_key":"taken"}`)),
	)
	err := drain(t, exec, src, out)
	require.Error(t, err)
	assert.True(t, modify.IsCode(err, modify.CodeUniqueConstraintViolated))
	assert.Empty(t, out.Rows())

	_, found := lookup(t, s, "fresh")
	assert.False(t, found, "failed batch is rolled back")
}

func TestPipelineClosedDatabaseIsFatal(t *testing.T) {
	conn := testutil.CreateMigratedTestDB(t)
	s, err := NewStore(conn, Options{})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, conn.Close())

	exec := newExecutor(t, s, modify.Infos{Kind: modify.KindInsert, Options: modify.DefaultOperationConfig(), Registers: rows.Registers(false)})
	err = drain(t, exec, rows.NewSliceSource(rows.DocumentRow(document.NewObject())), rows.NewCollector(rows.Registers(false)))
	require.Error(t, err)
	assert.True(t, modify.IsFatal(err))
}
