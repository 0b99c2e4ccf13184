package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminaria-extractor/config"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "img-1", []byte("first"), "image/jpeg"))
	require.NoError(t, s.Put(ctx, "img-1", []byte("second"), "image/jpeg"))
	require.NoError(t, s.Put(ctx, "img-2", []byte("other"), "image/png"))

	data, err := s.Get(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data), "last write wins")

	require.NoError(t, s.Delete(ctx, "img-1"))
	_, err = s.Get(ctx, "img-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, "img-1"))

	require.NoError(t, s.Clear(ctx))
	_, err = s.Get(ctx, "img-2")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "../escape", "a/b", filepath.Join("x", "y")} {
		assert.ErrorIs(t, s.Put(ctx, key, []byte("x"), ""), ErrInvalidKey, key)
		_, err := s.Get(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{Backend: "filesystem", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = New(context.Background(), config.StorageConfig{Backend: "s3"})
	assert.Error(t, err)
}
