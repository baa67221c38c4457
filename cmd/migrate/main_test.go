package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndList(t *testing.T) {
	dir := t.TempDir()

	create := newRootCommand()
	create.SetArgs([]string{"--path", dir, "--log-level", "error", "create", "add roles", "Role table"})
	require.NoError(t, create.Execute())

	_, err := os.Stat(filepath.Join(dir, "000001_add_roles.up.sql"))
	require.NoError(t, err)

	var out bytes.Buffer
	list := newRootCommand()
	list.SetOut(&out)
	list.SetArgs([]string{"--path", dir, "--log-level", "error", "list"})
	require.NoError(t, list.Execute())
	assert.Equal(t, "  - 000001_add_roles\n", out.String())
}

func TestArgumentValidation(t *testing.T) {
	for _, args := range [][]string{
		{"step"},
		{"create"},
		{"up", "extra"},
		{"goto", "1", "2"},
	} {
		cmd := newRootCommand()
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--path", t.TempDir()}, args...))
		assert.Error(t, cmd.Execute(), args)
	}
}

func TestResolveMigrationsPath(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveMigrationsPath(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = resolveMigrationsPath("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}
