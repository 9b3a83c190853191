package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listener:\n  addr: \"127.0.0.1:9000\"\n"), 0o600))

	out, err := execute(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "127.0.0.1:9000")
	assert.Contains(t, out, "level: info")
}

func TestValidateCommand_Errors(t *testing.T) {
	_, err := execute(t, "validate")
	assert.ErrorContains(t, err, "config flag")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))
	_, err = execute(t, "validate", "-c", path)
	assert.Error(t, err)
}

func TestRootCommand_RejectsArgs(t *testing.T) {
	_, err := execute(t, "extra")
	assert.Error(t, err)
}
