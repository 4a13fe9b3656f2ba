package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a scan job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{StatusQueued, StatusProcessing, StatusDone, StatusFailed}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[normalized]; !ok {
		return "", false
	}
	return normalized, true
}

// IsTerminal reports whether a status ends the job lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Job is one unit of ingestion work persisted in SQLite.
//
// Only the worker currently holding the lease (the most recent Claim)
// may mutate a processing job. LockedAt is refreshed on every claim and
// is the sole recovery signal for crashed workers.
type Job struct {
	ID           int64
	Status       Status
	FilePath     string
	OriginalName string

	// Batch inputs supplied at submission.
	Condition   string
	Foil        bool
	SetCodeHint string

	// Lease bookkeeping.
	Attempts  int
	LockedAt  *time.Time
	LastError string

	// Recognition results.
	GuessedName     string
	NameConfidence  float64
	CollectorNumber string
	ChosenSet       string
	ChosenSetName   string
	ChosenCollector string
	OCRTextBottom   string

	FinishedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Result carries the fields a successful pipeline run writes back to
// the job record.
type Result struct {
	GuessedName     string
	NameConfidence  float64
	CollectorNumber string
	ChosenSet       string
	ChosenSetName   string
	ChosenCollector string
	OCRTextBottom   string
}

// SetDone applies a successful result and retires the job.
func (j *Job) SetDone(res Result) {
	now := time.Now().UTC()
	j.Status = StatusDone
	j.LastError = ""
	j.FinishedAt = &now
	j.GuessedName = res.GuessedName
	j.NameConfidence = res.NameConfidence
	j.CollectorNumber = res.CollectorNumber
	j.ChosenSet = res.ChosenSet
	j.ChosenSetName = res.ChosenSetName
	j.ChosenCollector = res.ChosenCollector
	j.OCRTextBottom = res.OCRTextBottom
}

// SetFailure records an error and either requeues the job for another
// attempt or retires it once maxAttempts is exhausted. It reports
// whether the job became terminal.
func (j *Job) SetFailure(message string, maxAttempts int) bool {
	j.LastError = strings.TrimSpace(message)
	if j.Attempts >= maxAttempts {
		now := time.Now().UTC()
		j.Status = StatusFailed
		j.FinishedAt = &now
		return true
	}
	j.Status = StatusQueued
	return false
}
