package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rssebambulidde/QueryAI-sub001/internal/config"
)

func TestConfigCmd_ShowPrintsDefaults(t *testing.T) {
	configDir = t.TempDir()

	cmd := newConfigCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"show"})

	err := cmd.Execute()

	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "model: gpt-4")
	assert.Contains(t, output, "threshold:")
}

func TestConfigCmd_InitWritesFile(t *testing.T) {
	dir := t.TempDir()
	configDir = dir

	cmd := newConfigCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"init"})

	err := cmd.Execute()

	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, config.ConfigFileName))
	assert.NoError(t, statErr)
}
