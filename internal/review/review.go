// Package review appends sub-threshold scan results to a JSONL file
// for manual confirmation.
package review

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cardscan/internal/logging"
)

// Record is one review entry. The zero values of optional fields are
// omitted from the output line.
type Record struct {
	Timestamp       string  `json:"ts"`
	JobID           int64   `json:"job_id,omitempty"`
	GuessedName     string  `json:"guessed_name,omitempty"`
	NameConfidence  float64 `json:"name_confidence,omitempty"`
	CollectorNumber string  `json:"collector_number,omitempty"`
	CollectorText   string  `json:"collector_text,omitempty"`
	ChosenSet       string  `json:"chosen_set,omitempty"`
	ChosenCollector string  `json:"chosen_collector,omitempty"`
	Score           float64 `json:"score"`
	Reason          string  `json:"reason,omitempty"`
}

// Sink appends records to an append-only file. Writes never return an
// error to the caller; losing a review line is acceptable, blocking a
// job's status transition is not.
type Sink struct {
	path   string
	logger *slog.Logger
}

// NewSink builds a Sink writing to path.
func NewSink(path string, logger *slog.Logger) *Sink {
	return &Sink{
		path:   path,
		logger: logging.NewComponentLogger(logger, "review"),
	}
}

// Append stamps and writes one record.
func (s *Sink) Append(record Record) {
	if s.path == "" {
		return
	}
	record.Timestamp = time.Now().UTC().Format(time.RFC3339)

	line, err := json.Marshal(record)
	if err != nil {
		s.logger.Debug("marshal review record failed", logging.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Debug("create review dir failed", logging.Error(err))
		return
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Debug("open review file failed", logging.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		s.logger.Debug("write review record failed", logging.Error(err))
	}
}
