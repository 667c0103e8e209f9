package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgridgo/internal/cli"
)

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(&out, nil)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out.String(), "Usage:"))
}

func TestRun_InvalidFlagReturnsExitError(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(&out, []string{"-mode", "parallel", "-server", "http://x", "smoke.yaml"})
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestRun_MissingScenarioFileFails(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(&out, []string{"-server", "http://127.0.0.1:1", "-log-level", "error", "no-such-file.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario path")
}
