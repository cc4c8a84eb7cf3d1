package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{0, zapcore.WarnLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.DebugLevel},
		{7, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerbosityToLevel(tt.verbosity), "verbosity %d", tt.verbosity)
	}
	assert.True(t, ShouldLogTrace(3))
	assert.False(t, ShouldLogAll(3))
	assert.Equal(t, "All (-vvvv+)", LevelName(9))
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core).Sugar()

	ctx := WithQueryID(WithRequestID(context.Background(), "req-1"), "q-7")
	ctx = WithComponent(ctx, "pipeline")
	FromContext(ctx, base).Infow("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields[FieldRequestID])
	assert.Equal(t, "q-7", fields[FieldQueryID])
	assert.Equal(t, "pipeline", fields[FieldComponent])
}

func TestSymbolHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger
	Logger = zap.New(core).Sugar()
	t.Cleanup(func() { Logger = prev })

	ModifyDebugw("batch submitted", FieldDocuments, 3)
	AddOperationSymbol(Logger, "upsert").Infow("routed")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "⋙", logs.All()[0].ContextMap()[FieldSymbol])
	assert.Equal(t, int64(3), logs.All()[0].ContextMap()[FieldDocuments])
	assert.Equal(t, "⊜", logs.All()[1].ContextMap()[FieldSymbol])
}

func TestOrGlobal(t *testing.T) {
	l := zap.NewNop().Sugar()
	assert.Same(t, l, OrGlobal(l))
	assert.Same(t, Logger, OrGlobal(nil))
}
