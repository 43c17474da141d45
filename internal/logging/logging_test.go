package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		level, format string
		enabled       zapcore.Level
		disabled      zapcore.Level
	}{
		{"debug", FormatConsole, zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn", FormatJSON, zapcore.WarnLevel, zapcore.InfoLevel},
		{"error", "", zapcore.ErrorLevel, zapcore.WarnLevel},
	} {
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			t.Parallel()

			log, err := New(tc.level, tc.format)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tc.enabled))
			assert.False(t, log.Core().Enabled(tc.disabled))
		})
	}
}

func TestNewRejectsUnknownValues(t *testing.T) {
	t.Parallel()

	_, err := New("loud", FormatJSON)
	assert.ErrorContains(t, err, "unsupported log level")
	_, err = New("info", "xml")
	assert.ErrorContains(t, err, "unsupported log format")
}
