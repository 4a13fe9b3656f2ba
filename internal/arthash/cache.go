package arthash

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cardscan/internal/logging"
)

// Cache persists computed reference hashes across runs so repeated
// lookups of the same printing skip the image fetch. Entries are
// content addressed, so a lost write only costs a recomputation.
type Cache struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]string
}

// NewCache creates a hash cache backed by path. An empty path makes
// every operation a no-op. A corrupt or unreadable file starts empty
// instead of failing.
func NewCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "arthash")

	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]string),
	}
	if path == "" {
		return c
	}
	if err := c.load(); err != nil {
		logger.Warn("failed to load art hash cache, starting empty", logging.Error(err))
		c.entries = make(map[string]string)
	}
	return c
}

// Lookup returns the cached hash for a printing key.
func (c *Cache) Lookup(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" || c.path == "" {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	hash, found := c.entries[key]
	return hash, found
}

// Store writes an entry through to disk. Persistence failure is logged
// and swallowed; the in-memory entry still serves this process.
func (c *Cache) Store(key, hash string) {
	key = strings.TrimSpace(key)
	if key == "" || c.path == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = hash
	if err := c.save(); err != nil {
		c.logger.Warn("failed to persist art hash cache", logging.Error(err))
	}
}

// Count returns the number of cached hashes.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	c.entries = entries
	c.logger.Debug("loaded art hash cache",
		logging.Int("entry_count", len(entries)),
		logging.String("path", c.path))
	return nil
}

func (c *Cache) save() error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
