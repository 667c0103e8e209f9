package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullFlagSet(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"-scenario", "smoke.yaml",
		"-server", "http://localhost:3000/socket.io",
		"-mode", "sequential",
		"-report",
		"-halt-on-background-failure",
		"-log-format", "text",
		"-log-level", "debug",
		"-timeout", "5",
	}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "smoke.yaml", cfg.ScenarioPath)
	assert.Equal(t, "http://localhost:3000/socket.io", cfg.ServerURL)
	assert.Equal(t, "sequential", cfg.Mode)
	assert.True(t, cfg.Report)
	assert.True(t, cfg.HaltOnBackgroundFailure)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 5, cfg.TimeoutSeconds)
}

func TestParsePositionalScenarioPath(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-server", "http://x", "smoke.yaml"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "smoke.yaml", cfg.ScenarioPath)
}

func TestParseNoArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.True(t, strings.Contains(out.String(), "Usage:"))
}

func TestParseRejectsMissingServer(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"smoke.yaml"}, &out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "-server")
}

func TestParseRejectsInvalidMode(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"-server", "http://x", "-mode", "parallel", "smoke.yaml"}, &out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParseRejectsInvalidLogSettings(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"-server", "http://x", "-log-format", "xml", "smoke.yaml"}, &out)
	require.Error(t, err)

	_, _, err = Parse([]string{"-server", "http://x", "-log-level", "loud", "smoke.yaml"}, &out)
	require.Error(t, err)
}
