package preprocess

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"cardscan/internal/logging"
	"cardscan/internal/regions"
)

func TestClampKeepsRectInsideImage(t *testing.T) {
	tests := []struct {
		name   string
		region regions.Rect
		off    regions.Offset
		w, h   int
	}{
		{"identity", regions.Rect{Left: 10, Top: 10, Width: 50, Height: 20}, regions.Offset{}, 100, 100},
		{"negative offset past origin", regions.Rect{Left: 2, Top: 3, Width: 50, Height: 20}, regions.Offset{DX: -8, DY: -8}, 100, 100},
		{"offset past right edge", regions.Rect{Left: 90, Top: 10, Width: 50, Height: 20}, regions.Offset{DX: 8, DY: 0}, 100, 100},
		{"region larger than image", regions.Rect{Left: 0, Top: 0, Width: 500, Height: 500}, regions.Offset{}, 64, 48},
		{"region fully outside", regions.Rect{Left: 400, Top: 400, Width: 20, Height: 20}, regions.Offset{DX: 8, DY: 8}, 100, 100},
		{"tiny image", regions.Rect{Left: 80, Top: 32, Width: 520, Height: 85}, regions.Offset{DX: -6, DY: 2}, 2, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Clamp(tc.region, tc.off, tc.w, tc.h)
			if got.Left < 0 || got.Top < 0 {
				t.Fatalf("clamped rect has negative origin: %+v", got)
			}
			if got.Width < 1 || got.Height < 1 {
				t.Fatalf("clamped rect has degenerate size: %+v", got)
			}
			if got.Left+got.Width > tc.w {
				t.Fatalf("rect exceeds image width: %+v vs w=%d", got, tc.w)
			}
			if got.Top+got.Height > tc.h {
				t.Fatalf("rect exceeds image height: %+v vs h=%d", got, tc.h)
			}
		})
	}
}

func TestClampPreservesInteriorRect(t *testing.T) {
	region := regions.Rect{Left: 80, Top: 32, Width: 520, Height: 85}
	got := Clamp(region, regions.Offset{DX: 4, DY: -2}, regions.FixedScanWidth, regions.FixedScanHeight)
	want := regions.Rect{Left: 84, Top: 30, Width: 520, Height: 85}
	if got != want {
		t.Fatalf("interior rect should only translate: got %+v want %+v", got, want)
	}
}

func TestPrepareCropWritesUpscaledArtifact(t *testing.T) {
	scratch := t.TempDir()
	p := New(scratch, "", false, logging.NewNop())
	if err := p.EnsureScratch(); err != nil {
		t.Fatalf("EnsureScratch failed: %v", err)
	}

	src := gradientImage(200, 300)
	region := regions.Rect{Left: 20, Top: 30, Width: 100, Height: 40}

	path, err := p.PrepareCrop(src, region, regions.Offset{}, regions.ThresholdNone, NameTargetWidth, "job1_name_0")
	if err != nil {
		t.Fatalf("PrepareCrop failed: %v", err)
	}
	if filepath.Dir(path) != scratch {
		t.Fatalf("artifact written outside scratch dir: %s", path)
	}

	out, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	if out.Bounds().Dx() != NameTargetWidth {
		t.Fatalf("expected upscale to %d, got width %d", NameTargetWidth, out.Bounds().Dx())
	}
}

func TestPrepareCropThresholdBinarizes(t *testing.T) {
	scratch := t.TempDir()
	p := New(scratch, "", false, logging.NewNop())
	if err := p.EnsureScratch(); err != nil {
		t.Fatalf("EnsureScratch failed: %v", err)
	}

	src := gradientImage(200, 300)
	region := regions.Rect{Left: 0, Top: 0, Width: 200, Height: 60}

	path, err := p.PrepareCrop(src, region, regions.Offset{}, 180, CollectorTargetWidth, "job1_coll_0")
	if err != nil {
		t.Fatalf("PrepareCrop failed: %v", err)
	}

	out, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	nrgba := imaging.Clone(out)
	b := nrgba.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += 7 {
		for x := b.Min.X; x < b.Max.X; x += 7 {
			r := nrgba.NRGBAAt(x, y).R
			if r != 0 && r != 255 {
				t.Fatalf("binarized artifact has intermediate luma %d at (%d,%d)", r, x, y)
			}
		}
	}
}

func TestPrepareCropCopiesDebugArtifact(t *testing.T) {
	scratch := t.TempDir()
	debug := t.TempDir()
	p := New(scratch, debug, true, logging.NewNop())
	if err := p.EnsureScratch(); err != nil {
		t.Fatalf("EnsureScratch failed: %v", err)
	}

	src := gradientImage(120, 160)
	region := regions.Rect{Left: 10, Top: 10, Width: 60, Height: 30}
	path, err := p.PrepareCrop(src, region, regions.Offset{}, regions.ThresholdNone, NameTargetWidth, "dbg_name_0")
	if err != nil {
		t.Fatalf("PrepareCrop failed: %v", err)
	}

	copyPath := filepath.Join(debug, filepath.Base(path))
	if _, err := imaging.Open(copyPath); err != nil {
		t.Fatalf("expected debug copy at %s: %v", copyPath, err)
	}
}

// gradientImage produces a horizontal luma ramp so contrast stretching
// and binarization have real variance to act on.
func gradientImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}
