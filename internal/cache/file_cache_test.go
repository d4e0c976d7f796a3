package cache

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileCacheAddGet(t *testing.T) {
	dir := t.TempDir()
	fc, err := NewFileCache(dir)
	require.NoError(t, err)

	key := KeyFor([]byte("OUTPUT = 1\n"))
	content := []byte{1, 2, 3, 4, 5}

	require.NoError(t, fc.Add(key, content))

	got, ok, err := fc.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, content, got)
}

func TestFileCacheGetMissing(t *testing.T) {
	dir := t.TempDir()
	fc, err := NewFileCache(dir)
	require.NoError(t, err)

	_, ok, err := fc.Get(KeyFor([]byte("nope")))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileCacheDeleteMissingIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	fc, err := NewFileCache(dir)
	require.NoError(t, err)

	require.NoError(t, fc.Delete(KeyFor([]byte("nope"))))
}

func TestFileCacheDirIsCreatedLazily(t *testing.T) {
	dir := path.Join(t.TempDir(), "nested", "cache")
	fc, err := NewFileCache(dir)
	require.NoError(t, err)

	key := KeyFor([]byte("OUTPUT = 1\n"))
	_, ok, err := fc.Get(key)
	require.NoError(t, err)
	require.False(t, ok)
	_, statErr := os.Stat(path.Join(dir, compilerVersion))
	require.True(t, os.IsNotExist(statErr))

	require.NoError(t, fc.Add(key, []byte{1}))
	_, statErr = os.Stat(path.Join(dir, compilerVersion))
	require.NoError(t, statErr)
}

func TestFileCacheNamespacesByVersion(t *testing.T) {
	dir := t.TempDir()
	fc, err := NewFileCache(dir)
	require.NoError(t, err)

	key := KeyFor([]byte("OUTPUT = 1\n"))
	require.NoError(t, fc.Add(key, []byte{7}))

	_, err = os.Stat(path.Join(dir, compilerVersion, key))
	require.NoError(t, err)
}
