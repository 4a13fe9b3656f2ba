package arthash

import (
	"os"
	"path/filepath"
	"testing"

	"cardscan/internal/logging"
)

func TestCacheRoundTripAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")

	cache := NewCache(path, logging.NewNop())
	if _, found := cache.Lookup("m10/146/en"); found {
		t.Fatal("empty cache must miss")
	}

	cache.Store("m10/146/en", "00ff00ff00ff00ff")
	if hash, found := cache.Lookup("m10/146/en"); !found || hash != "00ff00ff00ff00ff" {
		t.Fatalf("expected stored hash back, got %q found=%v", hash, found)
	}

	reloaded := NewCache(path, logging.NewNop())
	if hash, found := reloaded.Lookup("m10/146/en"); !found || hash != "00ff00ff00ff00ff" {
		t.Fatalf("expected hash to survive reload, got %q found=%v", hash, found)
	}
	if reloaded.Count() != 1 {
		t.Fatalf("expected 1 entry after reload, got %d", reloaded.Count())
	}
}

func TestCacheCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	cache := NewCache(path, logging.NewNop())
	if cache.Count() != 0 {
		t.Fatalf("corrupt cache must start empty, got %d entries", cache.Count())
	}

	// And it must still accept new entries afterwards.
	cache.Store("neo/113/en", "ffffffffffffffff")
	if _, found := cache.Lookup("neo/113/en"); !found {
		t.Fatal("store after corrupt load must work")
	}
}

func TestCacheEmptyPathIsNoop(t *testing.T) {
	cache := NewCache("", logging.NewNop())
	cache.Store("key", "ffffffffffffffff")
	if _, found := cache.Lookup("key"); found {
		t.Fatal("pathless cache must not retain entries")
	}
}
