package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), mode))
	return path
}

func TestFindBinary(t *testing.T) {
	t.Run("configured path wins", func(t *testing.T) {
		configured := writeExecutable(t, 0o755)
		t.Setenv("TEST_BINARY_PATH", writeExecutable(t, 0o755))

		path, err := FindBinary("ls", "TEST_BINARY_PATH", configured)
		require.NoError(t, err)
		assert.Equal(t, configured, path)
	})

	t.Run("configured path must be executable", func(t *testing.T) {
		configured := writeExecutable(t, 0o644)

		_, err := FindBinary("ls", "", configured)
		assert.ErrorIs(t, err, ErrBinaryNotFound)
	})

	t.Run("env var takes priority over PATH", func(t *testing.T) {
		envPath := writeExecutable(t, 0o755)
		t.Setenv("TEST_BINARY_PATH", envPath)

		path, err := FindBinary("ls", "TEST_BINARY_PATH", "")
		require.NoError(t, err)
		assert.Equal(t, envPath, path)
	})

	t.Run("non-executable env path falls through to PATH", func(t *testing.T) {
		t.Setenv("TEST_BINARY_PATH", writeExecutable(t, 0o644))

		path, err := FindBinary("sh", "TEST_BINARY_PATH", "")
		require.NoError(t, err)
		assert.NotEmpty(t, path)
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := FindBinary("definitely-not-a-real-binary-xyz", "", "")
		assert.ErrorIs(t, err, ErrBinaryNotFound)
	})
}

func TestIsExecutable(t *testing.T) {
	assert.True(t, isExecutable(writeExecutable(t, 0o755)))
	assert.False(t, isExecutable(writeExecutable(t, 0o600)))
	assert.False(t, isExecutable(t.TempDir()))
	assert.False(t, isExecutable("/nonexistent/path"))
}
