package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/nocforge/internal/testutil"
)

func TestParsePositionalDesignPath(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	cfg, done, err := Parse([]string{"./designs/ring"}, buf)
	require.NoError(t, err)
	require.False(t, done)
	require.NotNil(t, cfg)
	assert.Equal(t, "./designs/ring", cfg.DesignPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.WorkerCount)
}

func TestParseFlagsOverridePositional(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	cfg, done, err := Parse([]string{
		"-design", "./a",
		"-constraints", "./c",
		"-cache", "scores.db",
		"-validate-cmd", "vivado -mode batch",
		"-log-format", "text",
		"-log-level", "debug",
		"-workers", "8",
		"./ignored",
	}, buf)
	require.NoError(t, err)
	require.False(t, done)
	assert.Equal(t, "./a", cfg.DesignPath)
	assert.Equal(t, "./c", cfg.ConstraintsPath)
	assert.Equal(t, "scores.db", cfg.CachePath)
	assert.Equal(t, "vivado -mode batch", cfg.ValidateCmd)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.WorkerCount)
}

func TestParseShorthandDesignFlag(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	cfg, done, err := Parse([]string{"-d", "./short"}, buf)
	require.NoError(t, err)
	require.False(t, done)
	assert.Equal(t, "./short", cfg.DesignPath)
}

func TestParseNoArgsPrintsUsageAndExitsCleanly(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	cfg, done, err := Parse(nil, buf)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, cfg)
	assert.Contains(t, buf.String(), "Usage:")
}

func TestParseHelpExitsCleanly(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	cfg, done, err := Parse([]string{"-h"}, buf)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, cfg)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"-bogus"}, "flag provided but not defined"},
		{"bad log format", []string{"-log-format", "xml", "./d"}, "invalid log-format"},
		{"bad log level", []string{"-log-level", "loud", "./d"}, "invalid log-level"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &testutil.SafeBuffer{}
			_, _, err := Parse(tc.args, buf)
			require.Error(t, err)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.True(t, strings.Contains(exitErr.Message, tc.want),
				"message %q should contain %q", exitErr.Message, tc.want)
		})
	}
}
