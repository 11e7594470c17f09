package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingFile_AppendsToExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "chat.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("earlier\n"), 0o600))

	rf, err := NewRotatingFile(path, WithMaxSize(1024))
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.Write([]byte("later\n"))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "earlier\nlater\n", string(content))
	assert.Equal(t, path, rf.Path())
}

func TestRotatingFile_Rotates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chat.log")
	rf, err := NewRotatingFile(path, WithMaxSize(40), WithMaxBackups(2))
	require.NoError(t, err)
	defer rf.Close()

	first := bytes.Repeat([]byte("a"), 30)
	second := bytes.Repeat([]byte("b"), 30)
	third := bytes.Repeat([]byte("c"), 30)

	for _, chunk := range [][]byte{first, second, third} {
		_, err = rf.Write(chunk)
		require.NoError(t, err)
	}

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, third, current)

	backup1, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, second, backup1)

	backup2, err := os.ReadFile(path + ".2")
	require.NoError(t, err)
	assert.Equal(t, first, backup2)
}

func TestRotatingFile_DropsOldestBackup(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chat.log")
	rf, err := NewRotatingFile(path, WithMaxSize(10), WithMaxBackups(1))
	require.NoError(t, err)
	defer rf.Close()

	for range 4 {
		_, err = rf.Write([]byte("0123456789"))
		require.NoError(t, err)
	}

	_, err = os.Stat(path + ".1")
	require.NoError(t, err)
	_, err = os.Stat(path + ".2")
	assert.True(t, os.IsNotExist(err))
}

func TestRotatingFile_OversizedWriteOnEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chat.log")
	rf, err := NewRotatingFile(path, WithMaxSize(4))
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.Write([]byte("longer than the limit"))
	require.NoError(t, err)

	_, err = os.Stat(path + ".1")
	assert.True(t, os.IsNotExist(err), "an empty file is never rotated")
}

func TestRotatingFile_WriteAfterClose(t *testing.T) {
	t.Parallel()

	rf, err := NewRotatingFile(filepath.Join(t.TempDir(), "chat.log"))
	require.NoError(t, err)
	require.NoError(t, rf.Close())
	require.NoError(t, rf.Close())

	_, err = rf.Write([]byte("x"))
	require.ErrorIs(t, err, os.ErrClosed)
}
