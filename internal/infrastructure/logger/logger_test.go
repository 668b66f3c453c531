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

func TestNew(t *testing.T) {
	t.Run("creates logger with json format", func(t *testing.T) {
		l, err := New(&Config{Level: "info", Format: "json", Output: "stdout"})
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("creates logger with console format", func(t *testing.T) {
		l, err := New(&Config{Level: "debug", Format: "console", Output: "stderr"})
		require.NoError(t, err)
		assert.NotNil(t, l)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLevel(tt.input), tt.input)
	}
}

func TestContext(t *testing.T) {
	t.Run("round-trips logger through context", func(t *testing.T) {
		l := zap.NewNop()
		ctx := WithContext(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("returns nop logger when context is empty", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("enriches logger with request and store IDs", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		base := zap.New(core)

		ctx, _ := WithRequestID(context.Background(), base, "req-123")
		ctx, _ = WithStoreID(ctx, FromContext(ctx), "store-456")

		L(ctx).Info("hello")

		require.Equal(t, 1, logs.Len())
		fields := logs.All()[0].ContextMap()
		assert.Equal(t, "req-123", fields["request_id"])
		assert.Equal(t, "store-456", fields["store_id"])
	})
}
