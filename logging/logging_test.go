package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{level: "", want: zapcore.InfoLevel},
		{level: "debug", want: zapcore.DebugLevel},
		{level: "warn", want: zapcore.WarnLevel},
		{level: "ERROR", want: zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New("count", tt.level)
			require.NoError(t, err)
			assert.True(t, logger.Desugar().Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Desugar().Core().Enabled(tt.want-1))
			}
		})
	}

	_, err := New("count", "verbose")
	assert.Error(t, err)
}

func TestNewTest(t *testing.T) {
	logger := NewTest(t)
	logger.Debugw("test logger", "ok", true)
	assert.True(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel))

	NewNop().Infow("discarded")
}
