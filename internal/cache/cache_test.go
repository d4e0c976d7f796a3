package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyForIsDeterministic(t *testing.T) {
	a := KeyFor([]byte("OUTPUT = 1\n"))
	b := KeyFor([]byte("OUTPUT = 1\n"))
	require.Equal(t, a, b)
	require.Len(t, a, 64) // hex-encoded SHA-256
}

func TestKeyForDiffersOnContent(t *testing.T) {
	a := KeyFor([]byte("OUTPUT = 1\n"))
	b := KeyFor([]byte("OUTPUT = 2\n"))
	require.NotEqual(t, a, b)
}

func TestMemCacheAddGetDelete(t *testing.T) {
	c := NewCache()
	key := KeyFor([]byte("OUTPUT = 1\n"))

	_, ok, err := c.Get(key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Add(key, []byte{1, 2, 3}))

	content, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, content)

	require.NoError(t, c.Delete(key))
	_, ok, err = c.Get(key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemCacheGetReturnsACopy(t *testing.T) {
	c := NewCache()
	key := KeyFor([]byte("OUTPUT = 1\n"))
	require.NoError(t, c.Add(key, []byte{1, 2, 3}))

	content, _, err := c.Get(key)
	require.NoError(t, err)
	content[0] = 0xFF

	again, _, err := c.Get(key)
	require.NoError(t, err)
	require.Equal(t, byte(1), again[0])
}

func TestLookupNilCacheAlwaysMisses(t *testing.T) {
	content, trace, err := Lookup(nil, "anything")
	require.NoError(t, err)
	require.Nil(t, content)
	require.False(t, trace.Hit)
	require.NotEmpty(t, trace.ID)
}

func TestLookupReportsHitAndMiss(t *testing.T) {
	c := NewCache()
	key := KeyFor([]byte("OUTPUT = 1\n"))

	_, trace, err := Lookup(c, key)
	require.NoError(t, err)
	require.False(t, trace.Hit)

	require.NoError(t, c.Add(key, []byte{9}))

	content, trace, err := Lookup(c, key)
	require.NoError(t, err)
	require.True(t, trace.Hit)
	require.Equal(t, []byte{9}, content)
}
