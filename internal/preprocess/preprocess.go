// Package preprocess turns a crop plan into normalized, upscaled image
// artifacts ready for the OCR engine.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"cardscan/internal/logging"
	"cardscan/internal/regions"
)

// Upscale targets for OCR crops. The collector strip is smaller than
// the name bar and needs the extra width for legible digits.
const (
	NameTargetWidth      = 1400
	CollectorTargetWidth = 1600
)

// Preprocessor prepares OCR crop artifacts in a scratch directory.
type Preprocessor struct {
	scratchDir string
	debugDir   string
	debug      bool
	logger     *slog.Logger
}

// New constructs a Preprocessor writing into scratchDir. When debug is
// set, every artifact is also copied into debugDir for inspection.
func New(scratchDir, debugDir string, debug bool, logger *slog.Logger) *Preprocessor {
	return &Preprocessor{
		scratchDir: scratchDir,
		debugDir:   debugDir,
		debug:      debug,
		logger:     logging.NewComponentLogger(logger, "preprocess"),
	}
}

// EnsureScratch creates the scratch (and debug) directories.
func (p *Preprocessor) EnsureScratch() error {
	if err := os.MkdirAll(p.scratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir %s: %w", p.scratchDir, err)
	}
	if p.debug && p.debugDir != "" {
		if err := os.MkdirAll(p.debugDir, 0o755); err != nil {
			return fmt.Errorf("create debug dir %s: %w", p.debugDir, err)
		}
	}
	return nil
}

// Load opens the source scan image.
func (p *Preprocessor) Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return img, nil
}

// Clamp translates region by off and clamps it inside a width x height
// image. Width and height shrink rather than error when the translated
// rectangle would leave the image; the result always satisfies
// 0 <= left, 0 <= top, left+width <= W, top+height <= H with positive
// size for any positive image dimensions.
func Clamp(region regions.Rect, off regions.Offset, width, height int) regions.Rect {
	left := clampInt(region.Left+off.DX, 0, width-1)
	top := clampInt(region.Top+off.DY, 0, height-1)
	w := region.Width
	if left+w > width {
		w = width - left
	}
	h := region.Height
	if top+h > height {
		h = height - top
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return regions.Rect{Left: left, Top: top, Width: w, Height: h}
}

// PrepareCrop extracts the clamped region from src, normalizes it for
// OCR (grayscale, contrast stretch, light blur then sharpen, Lanczos
// upscale to targetWidth), optionally binarizes it at threshold, and
// writes the artifact as a PNG named after label in the scratch
// directory. regions.ThresholdNone skips binarization.
func (p *Preprocessor) PrepareCrop(src image.Image, region regions.Rect, off regions.Offset, threshold, targetWidth int, label string) (string, error) {
	bounds := src.Bounds()
	clamped := Clamp(region, off, bounds.Dx(), bounds.Dy())

	rect := image.Rect(
		bounds.Min.X+clamped.Left,
		bounds.Min.Y+clamped.Top,
		bounds.Min.X+clamped.Left+clamped.Width,
		bounds.Min.Y+clamped.Top+clamped.Height,
	)

	crop := imaging.Crop(src, rect)
	crop = imaging.Grayscale(crop)
	crop = stretchContrast(crop)
	crop = imaging.Blur(crop, 0.5)
	crop = imaging.Sharpen(crop, 1.0)
	// Upscale even when the crop is already wider; the engine is tuned
	// for these widths.
	crop = imaging.Resize(crop, targetWidth, 0, imaging.Lanczos)
	if threshold != regions.ThresholdNone {
		crop = binarize(crop, uint8(threshold))
	}

	outPath := filepath.Join(p.scratchDir, label+".png")
	if err := imaging.Save(crop, outPath); err != nil {
		return "", fmt.Errorf("save crop %s: %w", outPath, err)
	}

	if p.debug && p.debugDir != "" {
		debugPath := filepath.Join(p.debugDir, filepath.Base(outPath))
		if err := imaging.Save(crop, debugPath); err != nil {
			p.logger.Debug("debug crop copy failed", logging.Error(err))
		} else {
			p.logger.Debug("saved debug crop", logging.String("path", debugPath))
		}
	}
	return outPath, nil
}

// stretchContrast linearly maps the darkest pixel to 0 and the
// brightest to 255. Input is expected to be grayscale.
func stretchContrast(img *image.NRGBA) *image.NRGBA {
	bounds := img.Bounds()
	minLuma, maxLuma := uint8(255), uint8(0)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			luma := img.NRGBAAt(x, y).R
			if luma < minLuma {
				minLuma = luma
			}
			if luma > maxLuma {
				maxLuma = luma
			}
		}
	}
	if maxLuma <= minLuma {
		return img
	}

	scale := 255.0 / float64(maxLuma-minLuma)
	out := imaging.Clone(img)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.NRGBAAt(x, y)
			stretched := uint8(float64(px.R-minLuma) * scale)
			out.SetNRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.NRGBA{R: stretched, G: stretched, B: stretched, A: px.A})
		}
	}
	return out
}

func binarize(img *image.NRGBA, threshold uint8) *image.NRGBA {
	bounds := img.Bounds()
	out := imaging.Clone(img)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.NRGBAAt(x, y)
			value := uint8(0)
			if px.R >= threshold {
				value = 255
			}
			out.SetNRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.NRGBA{R: value, G: value, B: value, A: px.A})
		}
	}
	return out
}

func clampInt(value, low, high int) int {
	if high < low {
		high = low
	}
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
