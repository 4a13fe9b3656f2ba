// Package gate decides whether a recognized scan is trustworthy enough
// to ingest without human review.
package gate

import (
	"math"

	"cardscan/internal/config"
)

// Inputs are the signals combined into the overall score. Confidences
// are on the OCR engine's 0 to 100 scale; SymbolScore is 0 to 1 and
// negative when unavailable.
type Inputs struct {
	NameConfidence      float64
	CollectorConfidence float64
	HadCollector        bool
	MatchCount          int
	SymbolScore         float64
}

// OverallScore combines OCR confidence with disambiguation strength.
// A unique catalog match is worth far more than raw OCR confidence
// alone; a missing collector number caps the whole score.
func OverallScore(in Inputs, cfg config.Gate) float64 {
	name := clamp01(in.NameConfidence / 100)
	coll := clamp01(in.CollectorConfidence / 100)

	var disambig float64
	switch {
	case in.MatchCount == 1:
		disambig = 1.0
	case in.MatchCount == 2:
		disambig = 0.85
	case in.MatchCount <= 5:
		disambig = 0.65
	case in.MatchCount <= 10:
		disambig = 0.45
	default:
		disambig = 0.25
	}

	symbol := 0.0
	if in.SymbolScore >= 0 {
		symbol = clamp01(in.SymbolScore)
	}

	collectorTerm := 0.0
	if in.HadCollector {
		collectorTerm = coll
	}

	score := cfg.NameWeight*name +
		cfg.CollectorWeight*collectorTerm +
		cfg.DisambigWeight*disambig +
		cfg.SymbolWeight*symbol

	if !in.HadCollector {
		score *= cfg.MissingCollectorPenalty
	}
	return clamp01(score)
}

// ShouldAutoIngest reports whether a score clears the auto-ingest bar.
// Non-finite scores never pass.
func ShouldAutoIngest(score, minScore float64) bool {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return false
	}
	return score >= minScore
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
