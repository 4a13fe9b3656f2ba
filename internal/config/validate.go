package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir is required")
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		problems = append(problems, "paths.scratch_dir is required")
	}
	if strings.TrimSpace(c.Tesseract.Binary) == "" {
		problems = append(problems, "tesseract.binary is required")
	}
	if c.Tesseract.TimeoutSeconds <= 0 {
		problems = append(problems, "tesseract.timeout_seconds must be positive")
	}
	if strings.TrimSpace(c.Catalog.BaseURL) == "" {
		problems = append(problems, "catalog.base_url is required")
	}
	if c.Catalog.PageCap <= 0 {
		problems = append(problems, "catalog.page_cap must be positive")
	}
	if c.Workers.Count <= 0 {
		problems = append(problems, "workers.count must be positive")
	}
	if c.Workers.MaxAttempts <= 0 {
		problems = append(problems, "workers.max_attempts must be positive")
	}
	if c.Workers.LockTimeoutSeconds <= 0 {
		problems = append(problems, "workers.lock_timeout_seconds must be positive")
	}
	if c.Gate.AutoIngestMinScore < 0 || c.Gate.AutoIngestMinScore > 1 {
		problems = append(problems, "gate.auto_ingest_min_score must be within [0, 1]")
	}
	for _, weight := range []struct {
		name  string
		value float64
	}{
		{"gate.name_weight", c.Gate.NameWeight},
		{"gate.collector_weight", c.Gate.CollectorWeight},
		{"gate.disambig_weight", c.Gate.DisambigWeight},
		{"gate.symbol_weight", c.Gate.SymbolWeight},
	} {
		if weight.value < 0 {
			problems = append(problems, fmt.Sprintf("%s must not be negative", weight.name))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
