package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_When_DefaultLevel(t *testing.T) {
	t.Parallel()

	log, err := New("")
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_When_DebugLevel(t *testing.T) {
	t.Parallel()

	log, err := New("debug")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_When_UnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New("shouting")
	assert.Error(t, err)
}
