// Package regions plans the crop geometry for a scanned card: candidate
// rectangles for the collector-number strip, the name bar, the jitter
// offsets that tolerate scan skew, and the binarization thresholds that
// cover glare and contrast variance. Everything here is deterministic
// for a given image size.
package regions

// Rect is a pixel-space crop rectangle.
type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Offset is a small pixel translation applied to a crop rectangle.
type Offset struct {
	DX int
	DY int
}

// ThresholdNone marks an attempt that skips binarization entirely.
const ThresholdNone = -1

// Fixed output size of the production sheet-fed scanner. Scans at this
// exact size use the hand-tuned name bar crop instead of percentages.
const (
	FixedScanWidth  = 771
	FixedScanHeight = 1061
)

var fixedNameBar = Rect{Left: 80, Top: 32, Width: 520, Height: 85}

// CollectorRegions returns the ordered candidate rectangles for the
// bottom collector-number strip. Each template is tuned to a layout
// drift observed in production scans; they are tried in order.
func CollectorRegions(width, height int) []Rect {
	w := float64(width)
	h := float64(height)
	return []Rect{
		// Older frames print the collector number higher.
		{Left: int(w * 0.05), Top: int(h * 0.885), Width: int(w * 0.35), Height: int(h * 0.028)},
		// Modern bottom-left, tight.
		{Left: int(w * 0.05), Top: int(h * 0.93), Width: int(w * 0.28), Height: int(h * 0.020)},
		// Slightly higher; some layouts shift up.
		{Left: int(w * 0.05), Top: int(h * 0.915), Width: int(w * 0.30), Height: int(h * 0.024)},
		// Larger left margin.
		{Left: int(w * 0.10), Top: int(h * 0.93), Width: int(w * 0.30), Height: int(h * 0.020)},
		// Wider, for when the slash or denominator is being clipped.
		{Left: int(w * 0.05), Top: int(h * 0.93), Width: int(w * 0.36), Height: int(h * 0.022)},
		// Taller, to capture vertically clipped text.
		{Left: int(w * 0.05), Top: int(h * 0.925), Width: int(w * 0.36), Height: int(h * 0.030)},
	}
}

// NameBarRegion returns the crop rectangle for the card title bar:
// pixel-exact for the known scanner output size, percentage-based
// otherwise.
func NameBarRegion(width, height int) Rect {
	if width == FixedScanWidth && height == FixedScanHeight {
		return fixedNameBar
	}
	w := float64(width)
	h := float64(height)
	return Rect{
		Left:   int(w * 0.08),
		Top:    int(h * 0.055),
		Width:  int(w * 0.78),
		Height: int(h * 0.055),
	}
}

// ArtworkRegion returns the percentage-based artwork crop used for
// perceptual hashing.
func ArtworkRegion(width, height int) Rect {
	w := float64(width)
	h := float64(height)
	return Rect{
		Left:   int(w * 0.11),
		Top:    int(h * 0.17),
		Width:  int(w * 0.78),
		Height: int(h * 0.40),
	}
}

// JitterOffsets returns the small translations tried around each crop
// to tolerate scan skew.
func JitterOffsets() []Offset {
	return []Offset{
		{DX: 0, DY: 0},
		{DX: 4, DY: 0}, {DX: -4, DY: 0},
		{DX: 0, DY: 4}, {DX: 0, DY: -4},
		{DX: 6, DY: 2}, {DX: -6, DY: 2},
		{DX: 6, DY: -2}, {DX: -6, DY: -2},
	}
}

// Thresholds returns the binarization luma cut points tried per crop,
// starting with no threshold at all.
func Thresholds() []int {
	return []int{ThresholdNone, 165, 180, 195}
}
