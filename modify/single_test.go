package modify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
	"go.uber.org/zap/zaptest"
)

func newTestSingle(t *testing.T, infos SingleInfos) *SingleRowExecutor {
	t.Helper()
	infos.Collection = "docs"
	infos.Logger = zaptest.NewLogger(t).Sugar()
	s, err := NewSingleRowExecutor(infos)
	require.NoError(t, err)
	return s
}

func TestSingleRowUpdateNotFound(t *testing.T) {
	gw := newMemGateway()
	s := newTestSingle(t, SingleInfos{
		Operation: PointUpdate,
		Options:   OperationConfig{IgnoreRevs: true, IgnoreDocumentNotFound: true},
		Registers: registers(0, NoRegister, NoRegister, NoRegister, NoRegister, NoRegister),
		Gateway:   gw,
	})
	sink := &recordingSink{}

	produced, err := s.Execute(context.Background(), docRow(`{"_key":"nope","v":1}`), sink)
	require.NoError(t, err)
	assert.False(t, produced)
	assert.Empty(t, sink.entries)
	require.Len(t, gw.calls, 1)
}

func TestSingleRowNotFoundPolicy(t *testing.T) {
	tests := []struct {
		name        string
		op          PointOperation
		cfg         OperationConfig
		wantErr     bool
		wantIgnored int64
	}{
		{"remove ignores not found", PointRemove, OperationConfig{IgnoreDocumentNotFound: true}, false, 0},
		{"lookup ignores not found", PointLookup, OperationConfig{IgnoreDocumentNotFound: true}, false, 0},
		{"replace ignores not found", PointReplace, OperationConfig{IgnoreDocumentNotFound: true}, false, 0},
		{"ignoreErrors skips and counts", PointRemove, OperationConfig{IgnoreErrors: true}, false, 1},
		{"not found override wins over ignoreErrors", PointRemove, OperationConfig{IgnoreErrors: true, IgnoreDocumentNotFound: true}, false, 0},
		{"remove raises without override", PointRemove, OperationConfig{}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.IgnoreRevs = true
			stats := &Stats{}
			s := newTestSingle(t, SingleInfos{
				Operation: tt.op,
				Options:   tt.cfg,
				Registers: registers(0, NoRegister, NoRegister, NoRegister, 1, NoRegister),
				Gateway:   newMemGateway(),
				Counters:  stats,
			})
			produced, err := s.Execute(context.Background(), docRow(`{"_key":"nope"}`), &recordingSink{})
			assert.False(t, produced)
			if tt.wantErr {
				assert.True(t, IsCode(err, CodeDocumentNotFound))
				assert.Contains(t, errors.GetAllHints(err), `document key "nope"`)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantIgnored, stats.WritesIgnored())
		})
	}
}

func TestSingleRowInsertConflictNotIgnoredByNotFoundOverride(t *testing.T) {
	s := newTestSingle(t, SingleInfos{
		Operation: PointInsert,
		Options:   OperationConfig{IgnoreDocumentNotFound: true},
		Registers: registers(0, NoRegister, NoRegister, NoRegister, NoRegister, NoRegister),
		Gateway:   newMemGateway(`{"_key":"a"}`),
	})
	_, err := s.Execute(context.Background(), docRow(`{"_key":"a"}`), &recordingSink{})
	assert.True(t, IsCode(err, CodeUniqueConstraintViolated))
}

func TestSingleRowLookup(t *testing.T) {
	s := newTestSingle(t, SingleInfos{
		Operation: PointLookup,
		Options:   OperationConfig{IgnoreRevs: true},
		Registers: registers(NoRegister, 0, NoRegister, NoRegister, 1, NoRegister),
		Gateway:   newMemGateway(`{"_key":"a","v":7}`),
	})
	sink := &recordingSink{}

	produced, err := s.Execute(context.Background(), docRow(`"a"`), sink)
	require.NoError(t, err)
	assert.True(t, produced)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, `{"_key":"a","v":7}`, sink.entries[0].newDoc.String())
}

func TestSingleRowConstantKey(t *testing.T) {
	gw := newMemGateway(`{"_key":"fixed","v":1}`)
	stats := &Stats{}
	s := newTestSingle(t, SingleInfos{
		Operation:   PointUpdate,
		Options:     OperationConfig{IgnoreRevs: true, ReturnNew: true, ReturnOld: true, MergeObjects: true},
		Registers:   registers(0, NoRegister, NoRegister, NoRegister, 1, 2),
		ConstantKey: "fixed",
		Gateway:     gw,
		Counters:    stats,
	})
	sink := &recordingSink{}

	produced, err := s.Execute(context.Background(), docRow(`{"_key":"ignored","w":2}`), sink)
	require.NoError(t, err)
	assert.True(t, produced)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, `{"_key":"fixed","v":1,"w":2}`, sink.entries[0].newDoc.String())
	assert.Equal(t, `{"_key":"fixed","v":1}`, sink.entries[0].oldDoc.String())
	assert.Equal(t, int64(1), stats.WritesExecuted())
}

func TestSingleRowUpsertOverwrites(t *testing.T) {
	gw := newMemGateway(`{"_key":"a","v":1,"keep":true}`)
	s := newTestSingle(t, SingleInfos{
		Operation: PointUpsert,
		Options:   OperationConfig{MergeObjects: true, ReturnNew: true},
		Registers: registers(NoRegister, NoRegister, 0, NoRegister, 1, NoRegister),
		Gateway:   gw,
	})
	sink := &recordingSink{}

	produced, err := s.Execute(context.Background(), docRow(`{"_key":"a","v":2}`), sink)
	require.NoError(t, err)
	assert.True(t, produced)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, OpInsert, gw.calls[0].Operation)
	assert.True(t, gw.calls[0].Options.Overwrite)
	assert.Equal(t, `{"_key":"a","keep":true,"v":2}`, sink.entries[0].newDoc.String())
}

func TestSingleRowInvalidInput(t *testing.T) {
	regs := registers(0, NoRegister, NoRegister, NoRegister, NoRegister, NoRegister)

	t.Run("raised", func(t *testing.T) {
		gw := &scriptedGateway{fn: okResult}
		s := newTestSingle(t, SingleInfos{Operation: PointRemove, Registers: regs, Gateway: gw})
		_, err := s.Execute(context.Background(), docRow(`[1]`), &recordingSink{})
		assert.True(t, IsCode(err, CodeDocumentTypeInvalid))
		assert.Empty(t, gw.calls)
	})

	t.Run("ignored", func(t *testing.T) {
		stats := &Stats{}
		s := newTestSingle(t, SingleInfos{
			Operation: PointReplace,
			Options:   OperationConfig{IgnoreErrors: true},
			Registers: regs,
			Gateway:   &scriptedGateway{fn: okResult},
			Counters:  stats,
		})
		produced, err := s.Execute(context.Background(), docRow(`"k"`), &recordingSink{})
		assert.NoError(t, err)
		assert.False(t, produced)
		assert.Equal(t, int64(1), stats.WritesIgnored())
	})
}

func TestSingleRowFatal(t *testing.T) {
	s := newTestSingle(t, SingleInfos{
		Operation: PointRemove,
		Options:   OperationConfig{IgnoreErrors: true},
		Registers: registers(0, NoRegister, NoRegister, NoRegister, NoRegister, NoRegister),
		Gateway:   &scriptedGateway{fn: func(Request) (Result, error) { return nil, errors.New("disk full") }},
	})
	_, err := s.Execute(context.Background(), docRow(`"a"`), &recordingSink{})
	assert.True(t, IsFatal(err))
}

func TestNewSingleRowExecutorValidation(t *testing.T) {
	gw := &scriptedGateway{fn: okResult}
	_, err := NewSingleRowExecutor(SingleInfos{Operation: PointLookup, Collection: "c", Registers: registers(0, NoRegister, NoRegister, NoRegister, NoRegister, NoRegister), Gateway: gw})
	assert.True(t, errors.IsInvalidRequestError(err), "lookup needs an output register")

	_, err = NewSingleRowExecutor(SingleInfos{Operation: PointRemove, Collection: "c", Registers: UnboundRegisters(), Gateway: gw})
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = NewSingleRowExecutor(SingleInfos{Operation: PointRemove, Collection: "c", Registers: UnboundRegisters(), ConstantKey: "k", Gateway: gw})
	assert.NoError(t, err)

	p, ok := ParsePointOperation("lookup")
	assert.True(t, ok)
	assert.Equal(t, PointLookup, p)
	assert.Equal(t, document.None(), value(testRow{}, NoRegister))
}
