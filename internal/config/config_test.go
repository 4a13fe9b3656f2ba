package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers.Count != defaultWorkerCount {
		t.Fatalf("expected default worker count, got %d", cfg.Workers.Count)
	}
	if cfg.Gate.AutoIngestMinScore != 0.85 {
		t.Fatalf("expected default auto ingest score, got %v", cfg.Gate.AutoIngestMinScore)
	}
	if cfg.Recognition.NameRetryThreshold != defaultNameRetryThreshold {
		t.Fatalf("expected default name retry threshold, got %d", cfg.Recognition.NameRetryThreshold)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[workers]
count = 3
max_attempts = 7

[recognition]
standalone_min_confidence = 80.0
name_retry_threshold = 160
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, used, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if used != path {
		t.Fatalf("expected used path %s, got %s", path, used)
	}
	if cfg.Workers.Count != 3 || cfg.Workers.MaxAttempts != 7 {
		t.Fatalf("worker overrides not applied: %+v", cfg.Workers)
	}
	if cfg.Recognition.StandaloneMinConfidence != 80 || cfg.Recognition.NameRetryThreshold != 160 {
		t.Fatalf("recognition override not applied: %+v", cfg.Recognition)
	}
	// Untouched sections keep defaults.
	if cfg.Catalog.PageCap != defaultCatalogPageCap {
		t.Fatalf("expected default page cap, got %d", cfg.Catalog.PageCap)
	}
}

func TestLoadEnvOverridesIngestKey(t *testing.T) {
	t.Setenv("CARDSCAN_INGEST_KEY", "secret-from-env")
	cfg, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Paths.IngestKey != "secret-from-env" {
		t.Fatalf("expected env ingest key, got %q", cfg.Paths.IngestKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Workers.Count = 0
	cfg.Gate.AutoIngestMinScore = 1.5
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "workers.count") || !strings.Contains(err.Error(), "auto_ingest_min_score") {
		t.Fatalf("unexpected validation message: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ReviewPath = filepath.Join(base, "review", "queue.jsonl")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.ScratchDir, filepath.Join(base, "review")} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", dir, err)
		}
	}
}
