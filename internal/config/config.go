package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, file, and bind address configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	ScratchDir   string `toml:"scratch_dir"`
	UploadDir    string `toml:"upload_dir"`
	LogDir       string `toml:"log_dir"`
	ReviewPath   string `toml:"review_path"`
	DebugCropDir string `toml:"debug_crop_dir"`
	APIBind      string `toml:"api_bind"`
	IngestKey    string `toml:"ingest_key"`
}

// Tesseract contains configuration for the external OCR engine.
type Tesseract struct {
	Binary         string `toml:"binary"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Recognition contains the empirically tuned OCR acceptance thresholds.
// The defaults come from production calibration; do not "improve" them.
type Recognition struct {
	NameEarlyExitConfidence      float64 `toml:"name_early_exit_confidence"`
	NameThresholdRetryConfidence float64 `toml:"name_threshold_retry_confidence"`
	NameRetryThreshold           int     `toml:"name_retry_threshold"`
	NameMinConfidence            float64 `toml:"name_min_confidence"`
	SlashMinConfidence           float64 `toml:"slash_min_confidence"`
	StandaloneMinConfidence      float64 `toml:"standalone_min_confidence"`
	DebugCrops                   bool    `toml:"debug_crops"`
}

// Catalog contains configuration for the Scryfall card catalog API.
type Catalog struct {
	BaseURL        string `toml:"base_url"`
	PageCap        int    `toml:"page_cap"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PreferOldest   bool   `toml:"prefer_oldest"`
}

// Gate contains the auto-ingest scoring weights and threshold.
type Gate struct {
	NameWeight              float64 `toml:"name_weight"`
	CollectorWeight         float64 `toml:"collector_weight"`
	DisambigWeight          float64 `toml:"disambig_weight"`
	SymbolWeight            float64 `toml:"symbol_weight"`
	MissingCollectorPenalty float64 `toml:"missing_collector_penalty"`
	AutoIngestMinScore      float64 `toml:"auto_ingest_min_score"`
}

// Workers contains worker pool and lease configuration.
type Workers struct {
	Count               int `toml:"count"`
	MaxAttempts         int `toml:"max_attempts"`
	LockTimeoutSeconds  int `toml:"lock_timeout_seconds"`
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration document.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Tesseract   Tesseract   `toml:"tesseract"`
	Recognition Recognition `toml:"recognition"`
	Catalog     Catalog     `toml:"catalog"`
	Gate        Gate        `toml:"gate"`
	Workers     Workers     `toml:"workers"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	return expandHome("~/.config/cardscan/config.toml")
}

// Load reads configuration from path (or the default location when path
// is empty), applies defaults for unset fields, environment overrides,
// and validates the result. The second return value is the path that
// was consulted; missing files fall back to defaults without error.
func Load(path string) (*Config, string, error) {
	// Secrets may live in a .env next to the working directory.
	_ = godotenv.Load()

	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath()
	}
	path = expandHome(path)

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, path, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	default:
		return nil, path, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("CARDSCAN_INGEST_KEY")); v != "" {
		c.Paths.IngestKey = v
	}
	if v := strings.TrimSpace(os.Getenv("CARDSCAN_API_BIND")); v != "" {
		c.Paths.APIBind = v
	}
}

func (c *Config) normalize() {
	c.Paths.DataDir = expandHome(c.Paths.DataDir)
	c.Paths.ScratchDir = expandHome(c.Paths.ScratchDir)
	c.Paths.UploadDir = expandHome(c.Paths.UploadDir)
	c.Paths.LogDir = expandHome(c.Paths.LogDir)
	c.Paths.ReviewPath = expandHome(c.Paths.ReviewPath)
	c.Paths.DebugCropDir = expandHome(c.Paths.DebugCropDir)
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	c.Tesseract.Language = strings.TrimSpace(c.Tesseract.Language)
}

// EnsureDirectories creates every directory the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.ScratchDir, c.Paths.UploadDir, c.Paths.LogDir}
	if c.Recognition.DebugCrops && c.Paths.DebugCropDir != "" {
		dirs = append(dirs, c.Paths.DebugCropDir)
	}
	if c.Paths.ReviewPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.ReviewPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the SQLite database location for jobs and inventory.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "cardscan.db")
}

// HashCachePath returns the artwork hash cache location.
func (c *Config) HashCachePath() string {
	return filepath.Join(c.Paths.DataDir, "art_hash_cache.json")
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
