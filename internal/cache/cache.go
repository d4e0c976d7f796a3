// Package cache implements content-addressed memoization of compilation
// results, keyed by the hex SHA-256 digest of the source text (§4.6).
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// Key is the hex-encoded SHA-256 digest of a source text.
type Key = string

// KeyFor hashes source into its cache Key.
func KeyFor(source []byte) Key {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Trace tags a single compilation attempt for log correlation. It never
// influences the emitted bytes.
type Trace struct {
	ID  string
	Hit bool
}

// newTrace stamps a fresh trace id. Kept as a function value (rather than a
// bare uuid.NewString() call at each use site) so callers needing
// determinism in tests can swap it.
var newTrace = uuid.NewString

// Cache is the interface for compile caches, mirroring the teacher's
// compilationcache.Cache: Goroutine-safe implementations, content returned
// by Get is exactly what was passed to Add.
type Cache interface {
	Get(key Key) (content []byte, ok bool, err error)
	Add(key Key, content []byte) error
	Delete(key Key) error
}

// Lookup consults c for key, returning the cached content (if any) alongside
// an observability Trace. A nil Cache always misses.
func Lookup(c Cache, key Key) ([]byte, Trace, error) {
	if c == nil {
		return nil, Trace{ID: newTrace(), Hit: false}, nil
	}
	content, ok, err := c.Get(key)
	if err != nil {
		return nil, Trace{ID: newTrace(), Hit: false}, err
	}
	return content, Trace{ID: newTrace(), Hit: ok}, nil
}

// memCache is the default in-memory Cache, good for the lifetime of one
// Compiler instance.
type memCache struct {
	mux     sync.RWMutex
	entries map[Key][]byte
}

// NewCache returns the default in-memory Cache.
func NewCache() Cache {
	return &memCache{entries: make(map[Key][]byte)}
}

func (m *memCache) Get(key Key) ([]byte, bool, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	content, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, true, nil
}

func (m *memCache) Add(key Key, content []byte) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	stored := make([]byte, len(content))
	copy(stored, content)
	m.entries[key] = stored
	return nil
}

func (m *memCache) Delete(key Key) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	delete(m.entries, key)
	return nil
}
