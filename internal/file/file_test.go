package file

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path, err := ExpandPath("~/.config/popchat")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/popchat"), path)

	path, err = ExpandPath("/tmp/x")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", path)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "main.go")
	require.NoError(t, WriteFile(path, []byte("package main"), false))

	exists, err := Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Error(t, WriteFile(path, []byte("package other"), false))
	require.NoError(t, WriteFile(path, []byte("package other"), true))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package other", string(content))

	exists, err = Exists(filepath.Dir(path))
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = DirectoryExists(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReadImage(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "pixel.PNG")
	require.NoError(t, os.WriteFile(path, pngBytes, 0644))

	image, err := ReadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", image.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngBytes), image.Data)

	textPath := filepath.Join(directory, "notes.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("hello"), 0644))
	_, err = ReadImage(textPath)
	assert.Error(t, err)

	fakePath := filepath.Join(directory, "fake.jpg")
	require.NoError(t, os.WriteFile(fakePath, []byte("hello"), 0644))
	_, err = ReadImage(fakePath)
	assert.Error(t, err)
}
