// Package pipeline runs the full recognition flow for one claimed scan
// job: OCR the name bar and collector strip, resolve a printing against
// the catalog, refine contested picks by artwork hash, then either
// commit the card to inventory or queue it for review.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"

	"cardscan/internal/arthash"
	"cardscan/internal/catalog"
	"cardscan/internal/config"
	"cardscan/internal/gate"
	"cardscan/internal/inventory"
	"cardscan/internal/logging"
	"cardscan/internal/ocr"
	"cardscan/internal/preprocess"
	"cardscan/internal/queue"
	"cardscan/internal/recognize"
	"cardscan/internal/review"
	"cardscan/internal/services"
)

// Outcome reports how a successfully processed job was resolved.
type Outcome string

const (
	OutcomeIngested Outcome = "ingested"
	OutcomeReview   Outcome = "review"
)

// Pipeline wires the per-job processing stages together.
type Pipeline struct {
	cfg     *config.Config
	prep    *preprocess.Preprocessor
	agg     *recognize.Aggregator
	catalog *catalog.Client
	refiner *arthash.Refiner
	reviews *review.Sink
	inv     *inventory.Store
	logger  *slog.Logger
}

// New assembles a Pipeline from its stage dependencies.
func New(cfg *config.Config, engine ocr.Engine, cat *catalog.Client, refiner *arthash.Refiner, inv *inventory.Store, logger *slog.Logger) *Pipeline {
	prep := preprocess.New(cfg.Paths.ScratchDir, cfg.Paths.DebugCropDir, cfg.Recognition.DebugCrops, logger)
	return &Pipeline{
		cfg:     cfg,
		prep:    prep,
		agg:     recognize.New(prep, engine, cfg.Recognition, logger),
		catalog: cat,
		refiner: refiner,
		reviews: review.NewSink(cfg.Paths.ReviewPath, logger),
		inv:     inv,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Process runs the pipeline for one claimed job. The returned Result is
// only meaningful when err is nil.
func (p *Pipeline) Process(ctx context.Context, job *queue.Job) (queue.Result, Outcome, error) {
	if _, err := os.Stat(job.FilePath); err != nil {
		return queue.Result{}, "", services.Wrap(services.ErrInputMissing, "pipeline", "process",
			fmt.Sprintf("source artifact %s is absent", job.FilePath), err)
	}
	if err := p.prep.EnsureScratch(); err != nil {
		return queue.Result{}, "", services.Wrap(services.ErrScratchUnwritable, "pipeline", "process",
			"cannot prepare scratch directory", err)
	}

	src, err := p.prep.Load(job.FilePath)
	if err != nil {
		return queue.Result{}, "", services.Wrap(services.ErrValidation, "pipeline", "process",
			"source artifact is not a readable image", err)
	}

	// Stamp the job identity so downstream log lines carry it.
	ctx = logging.WithJobID(ctx, job.ID)
	jobLabel := fmt.Sprintf("job%d", job.ID)
	logger := logging.WithContext(ctx, p.logger)

	name, err := p.agg.ReadName(ctx, src, jobLabel)
	if err != nil {
		return queue.Result{}, "", err
	}
	if len(name.Name) < 3 || name.Confidence < p.cfg.Recognition.NameMinConfidence {
		return queue.Result{}, "", services.Wrap(services.ErrLowConfidence, "pipeline", "process",
			fmt.Sprintf("name %q at confidence %.0f is below the usable floor", name.Name, name.Confidence), nil)
	}

	collector, err := p.agg.ReadCollector(ctx, src, jobLabel)
	if err != nil {
		return queue.Result{}, "", err
	}
	logger.Info("scan recognized",
		logging.String("name", name.Name),
		logging.Float64("name_confidence", name.Confidence),
		logging.String("collector_number", collector.Number),
		logging.Float64("collector_confidence", collector.Confidence))

	chosen, matchCount, err := p.resolvePrinting(ctx, src, name.Name, collector.Number, job)
	if err != nil {
		return queue.Result{}, "", err
	}

	score := gate.OverallScore(gate.Inputs{
		NameConfidence:      name.Confidence,
		CollectorConfidence: collector.Confidence,
		HadCollector:        collector.Number != "",
		MatchCount:          matchCount,
		SymbolScore:         -1,
	}, p.cfg.Gate)

	result := queue.Result{
		GuessedName:     name.Name,
		NameConfidence:  name.Confidence,
		CollectorNumber: collector.Number,
		ChosenSet:       chosen.Set,
		ChosenSetName:   chosen.SetName,
		ChosenCollector: chosen.CollectorNumber,
		OCRTextBottom:   collector.Text,
	}

	if !gate.ShouldAutoIngest(score, p.cfg.Gate.AutoIngestMinScore) {
		p.reviews.Append(review.Record{
			JobID:           job.ID,
			GuessedName:     name.Name,
			NameConfidence:  name.Confidence,
			CollectorNumber: collector.Number,
			CollectorText:   collector.Text,
			ChosenSet:       chosen.Set,
			ChosenCollector: chosen.CollectorNumber,
			Score:           score,
			Reason:          "below auto-ingest threshold",
		})
		logger.Info("scan routed to review", logging.Float64("score", score))
		return result, OutcomeReview, nil
	}

	if _, err := p.inv.AddCopy(ctx, inventory.Item{
		CardName:  chosen.Name,
		SetName:   chosen.SetName,
		Condition: job.Condition,
		Foil:      job.Foil,
		PriceUSD:  printingPrice(chosen, job.Foil),
		ImageURL:  chosen.ImageURL,
	}); err != nil {
		return queue.Result{}, "", fmt.Errorf("commit inventory: %w", err)
	}
	logger.Info("scan ingested",
		logging.String("set", chosen.Set),
		logging.String("collector", chosen.CollectorNumber),
		logging.Float64("score", score))
	return result, OutcomeIngested, nil
}

// resolvePrinting mirrors the lookup ladder: fuzzy-resolve the name,
// then use the collector number (exact set lookup when hinted, prints
// filtering otherwise) or an exact name search within a hinted set.
// Contested picks with more than one surviving printing are refined by
// artwork hash when possible.
func (p *Pipeline) resolvePrinting(ctx context.Context, src image.Image, name, collectorNumber string, job *queue.Job) (*catalog.Printing, int, error) {
	base, err := p.catalog.NamedFuzzy(ctx, name)
	if err != nil {
		return nil, 0, err
	}

	if collectorNumber != "" {
		if job.SetCodeHint != "" {
			exact, err := p.catalog.BySetAndNumber(ctx, job.SetCodeHint, collectorNumber)
			if err == nil {
				return exact, 1, nil
			}
			if !errors.Is(err, services.ErrCatalogNoMatch) {
				return nil, 0, err
			}
			// Wrong hint or misread number; fall back to the prints scan.
		}

		if base.PrintsSearchURI != "" {
			prints, err := p.catalog.Prints(ctx, base.PrintsSearchURI)
			if err != nil {
				// A failed prints scan counts as zero matches; the base
				// resolution still stands.
				logging.WithContext(ctx, p.logger).Warn("prints fetch failed, keeping fuzzy match",
					logging.String("name", name), logging.Error(err))
				return base, 0, nil
			}
			pick := catalog.PickPrinting(prints, collectorNumber, catalog.PickOptions{
				Foil:         job.Foil,
				SetCode:      job.SetCodeHint,
				PreferOldest: p.cfg.Catalog.PreferOldest,
			})
			if pick.Printing != nil {
				chosen := pick.Printing
				if pick.MatchCount > 1 && p.refiner != nil {
					if best, _ := p.refiner.Best(ctx, arthash.ScanHash(src), pick.Pool); best != nil {
						chosen = best
					}
				}
				return chosen, pick.MatchCount, nil
			}
		}
		return base, 0, nil
	}

	if job.SetCodeHint != "" {
		results, err := p.catalog.SearchExact(ctx, name, job.SetCodeHint)
		if err != nil && !errors.Is(err, services.ErrCatalogNoMatch) {
			return nil, 0, err
		}
		if len(results) > 0 {
			return &results[0], len(results), nil
		}
	}
	return base, 0, nil
}

func printingPrice(p *catalog.Printing, foil bool) float64 {
	raw := p.PriceUSD
	if foil && p.PriceUSDFoil != "" {
		raw = p.PriceUSDFoil
	}
	if raw == "" {
		return 0
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return price
}
