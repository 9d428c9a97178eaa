package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"serve", "migrate", "sweep"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestMigrateCmd_RejectsUnknownAction(t *testing.T) {
	err := execute(t, "migrate", "sideways")
	assert.Error(t, err)
}

func TestMigrateCmd_StepsOnlyForDown(t *testing.T) {
	err := execute(t, "migrate", "up", "--steps", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only applies to down")

	err = execute(t, "migrate", "down", "--steps", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestSweepCmd_RejectsNonPositiveLimit(t *testing.T) {
	err := execute(t, "sweep", "--limit", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--limit must be positive")
}

func TestRootCmd_MissingEnvFile(t *testing.T) {
	err := execute(t, "--env-file", t.TempDir()+"/missing.env", "sweep", "--limit", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load env file")
}

func TestServeCmd_TakesNoArgs(t *testing.T) {
	err := execute(t, "serve", "extra")
	assert.Error(t, err)
}
