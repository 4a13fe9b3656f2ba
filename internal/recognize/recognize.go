// Package recognize drives the OCR grid for a scanned card: it fans a
// crop plan out across region templates, jitter offsets, and
// binarization thresholds, collects per-attempt candidates, and selects
// the best reading for the name bar and the collector strip.
package recognize

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sort"
	"time"

	"cardscan/internal/config"
	"cardscan/internal/logging"
	"cardscan/internal/metrics"
	"cardscan/internal/ocr"
	"cardscan/internal/preprocess"
	"cardscan/internal/regions"
	"cardscan/internal/textparse"
)

// NameResult is the selected name-bar reading.
type NameResult struct {
	Name       string
	Confidence float64
}

// CollectorResult is the selected collector-strip reading. Number is
// empty when no attempt parsed one.
type CollectorResult struct {
	Text       string
	Confidence float64
	Number     string
	Mode       textparse.ParseMode
}

// candidate is one grid attempt. Failed attempts stay in the list with
// zero confidence so the selection logic sees the whole grid.
type candidate struct {
	text       string
	confidence float64
	number     string
	mode       textparse.ParseMode
	errTag     string
}

// Aggregator runs recognition passes over a loaded scan image.
type Aggregator struct {
	prep   *preprocess.Preprocessor
	engine ocr.Engine
	cfg    config.Recognition
	logger *slog.Logger
}

// New builds an Aggregator around a preprocessor and an OCR engine.
func New(prep *preprocess.Preprocessor, engine ocr.Engine, cfg config.Recognition, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		prep:   prep,
		engine: engine,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "recognize"),
	}
}

// ReadName OCRs the title bar across the jitter grid. A plain pass runs
// for every offset; a thresholded retry runs when the plain pass is
// below the retry confidence. The grid exits early on a high-confidence
// hit, and the best candidate wins by confidence, then by longer text.
func (a *Aggregator) ReadName(ctx context.Context, src image.Image, jobLabel string) (NameResult, error) {
	bounds := src.Bounds()
	region := regions.NameBarRegion(bounds.Dx(), bounds.Dy())
	opts := ocr.Options{Whitelist: ocr.NameWhitelist, PSM: ocr.PSMSingleLine}

	var candidates []candidate

grid:
	for i, off := range regions.JitterOffsets() {
		if err := ctx.Err(); err != nil {
			return NameResult{}, err
		}

		label := fmt.Sprintf("%s_name_o%d_p1", jobLabel, i)
		cand := a.attempt(ctx, src, region, off, regions.ThresholdNone, preprocess.NameTargetWidth, opts, "name", label)
		cand.text = textparse.CleanCardName(cand.text)
		if cand.text != "" {
			candidates = append(candidates, cand)
		}
		if cand.errTag == "" && cand.confidence >= a.cfg.NameEarlyExitConfidence && cand.text != "" {
			break grid
		}

		if cand.confidence < a.cfg.NameThresholdRetryConfidence {
			label = fmt.Sprintf("%s_name_o%d_p2", jobLabel, i)
			retry := a.attempt(ctx, src, region, off, a.retryThreshold(), preprocess.NameTargetWidth, opts, "name", label)
			retry.text = textparse.CleanCardName(retry.text)
			if retry.text != "" {
				candidates = append(candidates, retry)
			}
			if retry.errTag == "" && retry.confidence >= a.cfg.NameEarlyExitConfidence && retry.text != "" {
				break grid
			}
		}
	}

	if len(candidates) == 0 {
		a.logger.Warn("name pass produced no candidates", logging.String("job", jobLabel))
		return NameResult{}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].confidence != candidates[j].confidence {
			return candidates[i].confidence > candidates[j].confidence
		}
		return len(candidates[i].text) > len(candidates[j].text)
	})
	best := candidates[0]
	return NameResult{Name: best.text, Confidence: best.confidence}, nil
}

// ReadCollector OCRs the bottom strip across the full region x offset x
// threshold grid. Slash parses are accepted immediately at a lower
// confidence than standalone parses; if nothing is accepted outright,
// the best leftover wins by parsed-at-all, then slash mode, then
// confidence.
func (a *Aggregator) ReadCollector(ctx context.Context, src image.Image, jobLabel string) (CollectorResult, error) {
	bounds := src.Bounds()
	templates := regions.CollectorRegions(bounds.Dx(), bounds.Dy())
	opts := ocr.Options{Whitelist: ocr.CollectorWhitelist, PSM: ocr.PSMSingleLine}

	var candidates []candidate

	for r, region := range templates {
		for o, off := range regions.JitterOffsets() {
			for th, threshold := range regions.Thresholds() {
				if err := ctx.Err(); err != nil {
					return CollectorResult{}, err
				}

				label := fmt.Sprintf("%s_coll_r%d_o%d_t%d", jobLabel, r, o, th)
				cand := a.attempt(ctx, src, region, off, threshold, preprocess.CollectorTargetWidth, opts, "collector", label)
				cand.text = textparse.CleanBottomText(cand.text)
				if parsed, ok := textparse.ParseCollectorNumber(cand.text); ok {
					cand.number = parsed.Value
					cand.mode = parsed.Mode
				}
				candidates = append(candidates, cand)

				if cand.number != "" {
					minConf := a.cfg.SlashMinConfidence
					if cand.mode == textparse.ModeStandalone {
						minConf = a.cfg.StandaloneMinConfidence
					}
					if cand.confidence >= minConf {
						return CollectorResult{
							Text:       cand.text,
							Confidence: cand.confidence,
							Number:     cand.number,
							Mode:       cand.mode,
						}, nil
					}
				}
			}
		}
	}

	if len(candidates) == 0 {
		return CollectorResult{}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		iParsed, jParsed := candidates[i].number != "", candidates[j].number != ""
		if iParsed != jParsed {
			return iParsed
		}
		iSlash, jSlash := candidates[i].mode == textparse.ModeSlash, candidates[j].mode == textparse.ModeSlash
		if iSlash != jSlash {
			return iSlash
		}
		return candidates[i].confidence > candidates[j].confidence
	})
	best := candidates[0]
	return CollectorResult{
		Text:       best.text,
		Confidence: best.confidence,
		Number:     best.number,
		Mode:       best.mode,
	}, nil
}

// retryThreshold returns the luma cut for the binarized name retry,
// guarding against zero-valued configs built without Default().
func (a *Aggregator) retryThreshold() int {
	if a.cfg.NameRetryThreshold > 0 {
		return a.cfg.NameRetryThreshold
	}
	return config.Default().Recognition.NameRetryThreshold
}

// attempt runs one preprocess+recognize pass. Failures never abort the
// grid; they come back as a zero-confidence candidate with an error tag.
// The crop artifact is removed afterwards regardless of outcome.
func (a *Aggregator) attempt(ctx context.Context, src image.Image, region regions.Rect, off regions.Offset, threshold, targetWidth int, opts ocr.Options, kind, label string) candidate {
	started := time.Now()

	artifact, err := a.prep.PrepareCrop(src, region, off, threshold, targetWidth, label)
	if err != nil {
		a.logger.Debug("crop failed", logging.String("label", label), logging.Error(err))
		metrics.OCRAttempts.WithLabelValues(kind, "error").Inc()
		return candidate{errTag: "crop_failed"}
	}
	defer os.Remove(artifact)

	result, err := a.engine.Recognize(ctx, artifact, opts)
	metrics.OCRAttemptDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	if err != nil {
		a.logger.Debug("ocr attempt failed", logging.String("label", label), logging.Error(err))
		metrics.OCRAttempts.WithLabelValues(kind, "error").Inc()
		return candidate{errTag: "ocr_failed"}
	}

	outcome := "empty"
	if result.Text != "" {
		outcome = "text"
	}
	metrics.OCRAttempts.WithLabelValues(kind, outcome).Inc()
	return candidate{text: result.Text, confidence: result.Confidence}
}
