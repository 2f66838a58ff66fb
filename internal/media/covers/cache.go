package covers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Cache keeps rendered covers on disk so a device re-requesting the same
// thumbnail is answered without decoding the book again.
// Thread-safe for concurrent operations.
type Cache struct {
	basePath string
	mu       sync.RWMutex
}

// NewCache creates the cache directory if needed.
func NewCache(basePath string) (*Cache, error) {
	if basePath == "" {
		return nil, errors.New("cache path cannot be empty")
	}
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("create cover cache directory: %w", err)
	}
	return &Cache{basePath: basePath}, nil
}

// Save stores a rendition.
func (c *Cache) Save(key string, data []byte) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if len(data) == 0 {
		return errors.New("image data cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Write then rename so a concurrent reader never sees a partial file.
	tmp := c.Path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write cover: %w", err)
	}
	if err := os.Rename(tmp, c.Path(key)); err != nil {
		return fmt.Errorf("commit cover: %w", err)
	}
	return nil
}

// Get returns a stored rendition and whether it exists.
func (c *Cache) Get(key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.Path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Path returns the file holding a rendition.
func (c *Cache) Path(key string) string {
	return filepath.Join(c.basePath, key+".jpg")
}
