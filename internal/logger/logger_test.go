package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"panic": zapcore.PanicLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestWithLevel_OverridesCoreLevel ensures a core wrapped by WithLevel filters
// by the pinned level instead of the level of the core it wraps.
func TestWithLevel_OverridesCoreLevel(t *testing.T) {
	t.Parallel()

	base, entries := observer.New(zapcore.ErrorLevel)

	pinned := zap.New(base, WithLevel(zapcore.InfoLevel)).Sugar()
	pinned.Infow("visible through the pinned level")
	require.Equal(t, 1, entries.Len())

	muted := zap.New(base, WithLevel(zapcore.ErrorLevel)).Sugar()
	muted.Infow("filtered by the pinned level")
	require.Equal(t, 1, entries.Len())
}

// TestWithLevel_WithKeepsPinnedLevel ensures field-scoped children inherit the pin.
func TestWithLevel_WithKeepsPinnedLevel(t *testing.T) {
	t.Parallel()

	base, entries := observer.New(zapcore.ErrorLevel)

	child := zap.New(base, WithLevel(zapcore.InfoLevel)).With(zap.String("scope", "audit")).Sugar()
	child.Infow("inherited pin")

	require.Equal(t, 1, entries.Len())
	require.Equal(t, "audit", entries.All()[0].ContextMap()["scope"])
}
