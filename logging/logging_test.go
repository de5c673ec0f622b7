package logging_test

import (
	"context"
	"testing"

	"github.com/nasermirzaei89/threadline/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zapcore.Level
		wantErr  bool
	}{
		{input: "debug", expected: zapcore.DebugLevel},
		{input: "", expected: zapcore.InfoLevel},
		{input: "INFO", expected: zapcore.InfoLevel},
		{input: " warn ", expected: zapcore.WarnLevel},
		{input: "error", expected: zapcore.ErrorLevel},
		{input: "verbose", expected: zapcore.InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			level, err := logging.ParseLevel(tt.input)
			assert.Equal(t, tt.expected, level)

			if tt.wantErr {
				unknownLevelErr := &logging.UnknownLevelError{}
				require.ErrorAs(t, err, &unknownLevelErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	logger, err := logging.New("warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewSlog(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := logging.NewSlog(zap.New(core))

	logger.DebugContext(context.Background(), "hidden")
	logger.WarnContext(context.Background(), "author of reply not found", "replyId", "r1")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "author of reply not found", entries[0].Message)
	assert.Equal(t, "r1", entries[0].ContextMap()["replyId"])
}
