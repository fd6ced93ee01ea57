package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/paulb-elastic/synthetics"
)

// RunCache is the temporary directory holding a run's artifacts.
// It is created when a run starts and removed when the run ends, so
// anything written here has the lifetime of one run.
type RunCache struct {
	mu      sync.Mutex
	dir     string
	codec   Codec
	removed bool
}

// NewRunCache creates a fresh cache directory under the system temp
// dir.
func NewRunCache(codec Codec) (*RunCache, error) {
	dir, err := os.MkdirTemp("", "synthetics-*")
	if err != nil {
		return nil, fmt.Errorf("artifact: create run cache: %w", err)
	}
	if codec == nil {
		codec = &JSONCodec{}
	}
	return &RunCache{dir: dir, codec: codec}, nil
}

// Dir returns the cache directory path.
func (c *RunCache) Dir() string { return c.dir }

// Write stores raw bytes under the given name inside the cache.
func (c *RunCache) Write(name string, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.removed {
		return "", synthetics.ErrCacheRemoved
	}
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", name, err)
	}
	return path, nil
}

// SaveScreenshot serializes the screenshot record into the cache and
// returns its path.
func (c *RunCache) SaveScreenshot(s *Screenshot) (string, error) {
	data, err := c.codec.Encode(s)
	if err != nil {
		return "", fmt.Errorf("artifact: encode screenshot %s: %w", s.ID, err)
	}
	return c.Write(s.ID.String()+"."+c.codec.Name(), data)
}

// Remove deletes the cache directory and everything in it. Further
// writes fail with ErrCacheRemoved.
func (c *RunCache) Remove() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.removed {
		return nil
	}
	c.removed = true
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("artifact: remove run cache: %w", err)
	}
	return nil
}
