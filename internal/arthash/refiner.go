package arthash

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	"cardscan/internal/catalog"
	"cardscan/internal/logging"
)

const refineHTTPTimeout = 45 * time.Second

// Refiner ranks catalog printings by artwork similarity to a scan.
// Reference hashes are cached by printing key so repeated lookups skip
// the image download.
type Refiner struct {
	cache  *Cache
	http   *http.Client
	logger *slog.Logger
}

// NewRefiner builds a Refiner. A nil httpClient gets a default with a
// bounded timeout.
func NewRefiner(cache *Cache, httpClient *http.Client, logger *slog.Logger) *Refiner {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: refineHTTPTimeout}
	}
	return &Refiner{
		cache:  cache,
		http:   httpClient,
		logger: logging.NewComponentLogger(logger, "arthash"),
	}
}

// Best returns the printing whose reference artwork is closest to
// scanHash, with its hamming distance. Printings whose reference image
// cannot be fetched or hashed are skipped; if none can be hashed, Best
// returns nil.
func (r *Refiner) Best(ctx context.Context, scanHash string, pool []catalog.Printing) (*catalog.Printing, int) {
	var best *catalog.Printing
	bestDistance := MalformedDistance

	for i := range pool {
		p := &pool[i]
		hash, err := r.referenceHash(ctx, p)
		if err != nil {
			r.logger.Debug("reference hash unavailable",
				logging.String("set", p.Set),
				logging.String("collector", p.CollectorNumber),
				logging.Error(err))
			continue
		}
		distance := Hamming(scanHash, hash)
		if distance < bestDistance {
			best = p
			bestDistance = distance
		}
	}
	return best, bestDistance
}

func (r *Refiner) referenceHash(ctx context.Context, p *catalog.Printing) (string, error) {
	key := printingKey(p)
	if hash, found := r.cache.Lookup(key); found {
		return hash, nil
	}
	if p.ImageURL == "" {
		return "", fmt.Errorf("printing %s has no image", key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ImageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch reference image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch reference image: %s", resp.Status)
	}

	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("decode reference image: %w", err)
	}

	hash := ScanHash(img)
	r.cache.Store(key, hash)
	return hash, nil
}

func printingKey(p *catalog.Printing) string {
	return p.Set + "/" + p.CollectorNumber + "/" + p.Lang
}
