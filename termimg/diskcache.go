package termimg

import (
	"encoding/base64"
	"os"
	"path/filepath"
)

// DiskCache is an on-disk byte store keyed by source URL. Unlike the
// in-memory response cache it survives process restarts: a URL fetched
// once is served from disk on every later run until invalidated.
type DiskCache struct {
	dir string
}

// NewDiskCache returns a cache rooted at dir. The directory is created
// lazily on the first Put.
func NewDiskCache(dir string) *DiskCache {
	return &DiskCache{dir: dir}
}

// Get returns the cached bytes for url, if present.
func (c *DiskCache) Get(url string) ([]byte, bool) {
	bytes, err := os.ReadFile(c.path(url))
	if err != nil {
		return nil, false
	}
	return bytes, true
}

// Put stores bytes for url.
func (c *DiskCache) Put(url string, bytes []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path(url), bytes, 0o644)
}

// Invalidate removes the cached bytes for url, forcing the next lookup
// back to the network.
func (c *DiskCache) Invalidate(url string) error {
	err := os.Remove(c.path(url))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (c *DiskCache) path(url string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(url))
	return filepath.Join(c.dir, name)
}
