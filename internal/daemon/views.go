package daemon

import (
	"time"

	"cardscan/internal/queue"
)

// jobView is the wire representation of a scan job.
type jobView struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	OriginalName string `json:"originalName,omitempty"`
	Condition    string `json:"condition"`
	Foil         bool   `json:"foil"`
	SetCodeHint  string `json:"setCodeHint,omitempty"`
	Attempts     int    `json:"attempts"`
	LastError    string `json:"lastError,omitempty"`

	GuessedName     string  `json:"guessedName,omitempty"`
	NameConfidence  float64 `json:"nameConfidence,omitempty"`
	CollectorNumber string  `json:"collectorNumber,omitempty"`
	ChosenSet       string  `json:"chosenSet,omitempty"`
	ChosenSetName   string  `json:"chosenSetName,omitempty"`
	ChosenCollector string  `json:"chosenCollector,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

type jobListResponse struct {
	Jobs []jobView `json:"jobs"`
}

func newJobView(job *queue.Job) jobView {
	return jobView{
		ID:              job.ID,
		Status:          string(job.Status),
		OriginalName:    job.OriginalName,
		Condition:       job.Condition,
		Foil:            job.Foil,
		SetCodeHint:     job.SetCodeHint,
		Attempts:        job.Attempts,
		LastError:       job.LastError,
		GuessedName:     job.GuessedName,
		NameConfidence:  job.NameConfidence,
		CollectorNumber: job.CollectorNumber,
		ChosenSet:       job.ChosenSet,
		ChosenSetName:   job.ChosenSetName,
		ChosenCollector: job.ChosenCollector,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		FinishedAt:      job.FinishedAt,
	}
}
