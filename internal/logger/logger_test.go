package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewPlain(&buf, false)

	l.Info("info")
	l.Success("ok")
	l.Warn("careful")
	l.Error("broken")
	l.Step("working")

	assert.Equal(t, "● info\n✓ ok\n⚠ careful\n✗ broken\n→ working\n", buf.String())
}

func TestVerbose(t *testing.T) {
	var buf bytes.Buffer
	NewPlain(&buf, false).Verbose("hidden")
	assert.Empty(t, buf.String())

	l := NewPlain(&buf, true)
	assert.True(t, l.VerboseEnabled())
	l.Verbose("git push")
	assert.Equal(t, "[verbose] git push\n", buf.String())
}

func TestHintAndField(t *testing.T) {
	var buf bytes.Buffer
	l := NewPlain(&buf, false)

	l.Hint("first\nsecond\n")
	l.Field("Branch", "feature-x")
	l.Cancelled()

	assert.Equal(t, "  first\n  second\n  Branch: feature-x\n⚠ Operation cancelled.\n", buf.String())
}

func TestColorEnabled_NonTerminal(t *testing.T) {
	assert.False(t, ColorEnabled(&bytes.Buffer{}))

	var buf bytes.Buffer
	New(&buf, false).Success("done")
	assert.Equal(t, "✓ done\n", buf.String(), "buffers never receive ANSI codes")
}

func TestDebugFromEnv(t *testing.T) {
	tests := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"TRUE":  true,
		" yes ": true,
	}
	for value, want := range tests {
		got := DebugFromEnv(func(key string) string {
			if key == EnvDebug {
				return value
			}
			return ""
		})
		assert.Equal(t, want, got, "SPEC_DEBUG=%q", value)
	}
}

func TestNewSlog(t *testing.T) {
	ctx := context.Background()

	quiet := NewSlog(&bytes.Buffer{}, false)
	assert.False(t, quiet.Enabled(ctx, slog.LevelDebug))
	assert.False(t, quiet.Enabled(ctx, slog.LevelInfo))
	assert.True(t, quiet.Enabled(ctx, slog.LevelWarn))

	var buf bytes.Buffer
	debug := NewSlog(&buf, true)
	debug.Debug("slug collision", "candidate", "login-page")
	assert.Contains(t, buf.String(), "slug collision")
	assert.Contains(t, buf.String(), "candidate=login-page")
}
