package cache

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sync"

	goversion "github.com/hashicorp/go-version"
)

// compilerVersion namespaces the on-disk cache directory so that entries
// written by an incompatible compiler release are never read back, the way
// the teacher's internal/version guards wazero's own cache directories.
const compilerVersion = "0.1.0"

// fileCache persists compiled modules under <dir>/<version>/<key>; dirPath
// holds <dir>/<version>.
type fileCache struct {
	dirPath string
	dirOk   bool
	mux     sync.RWMutex
}

// NewFileCache returns a Cache that persists entries under dir, namespaced
// by compilerVersion. dir is created on first Add if it does not exist.
func NewFileCache(dir string) (Cache, error) {
	if _, err := goversion.NewVersion(compilerVersion); err != nil {
		return nil, fmt.Errorf("cache: invalid compiler version %q: %w", compilerVersion, err)
	}
	return &fileCache{dirPath: path.Join(dir, compilerVersion)}, nil
}

func (fc *fileCache) path(key Key) string {
	return path.Join(fc.dirPath, key)
}

func (fc *fileCache) Get(key Key) ([]byte, bool, error) {
	fc.mux.RLock()
	defer fc.mux.RUnlock()

	content, err := os.ReadFile(fc.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return content, true, nil
}

func (fc *fileCache) Add(key Key, content []byte) error {
	fc.mux.Lock()
	defer fc.mux.Unlock()

	if err := fc.requireDir(); err != nil {
		return err
	}
	return os.WriteFile(fc.path(key), content, 0o600)
}

func (fc *fileCache) Delete(key Key) error {
	fc.mux.Lock()
	defer fc.mux.Unlock()

	err := os.Remove(fc.path(key))
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	return err
}

// requireDir ensures the configured directory exists, called under lock
// during Add.
func (fc *fileCache) requireDir() error {
	if fc.dirOk {
		return nil
	}
	if s, err := os.Stat(fc.dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(fc.dirPath, 0o700); err != nil {
			return fmt.Errorf("cache: couldn't create dir %s: %w", fc.dirPath, err)
		}
	} else if err != nil {
		return fmt.Errorf("cache: couldn't open dir %s: %w", fc.dirPath, err)
	} else if !s.IsDir() {
		return fmt.Errorf("cache: expected dir at %s", fc.dirPath)
	}
	fc.dirOk = true
	return nil
}
