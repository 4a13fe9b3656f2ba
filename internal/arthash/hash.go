// Package arthash disambiguates printings by comparing 64-bit
// difference hashes of artwork crops.
package arthash

import (
	"fmt"
	"image"
	"math/bits"
	"strconv"

	"github.com/disintegration/imaging"

	"cardscan/internal/preprocess"
	"cardscan/internal/regions"
)

// MalformedDistance is returned when either hash is not a 16-character
// hex value. It is far beyond any real 0 to 64 hamming distance.
const MalformedDistance = 9999

// HashImage computes the dHash of an artwork crop: resize to a 9x8
// grid, then set one bit per adjacent horizontal pair where the left
// pixel is darker than the right. Returned as 16 hex characters.
func HashImage(img image.Image) string {
	grid := imaging.Resize(imaging.Grayscale(img), 9, 8, imaging.Lanczos)

	var value uint64
	var idx uint
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			left := grid.NRGBAAt(x, y).R
			right := grid.NRGBAAt(x+1, y).R
			if left < right {
				value |= 1 << idx
			}
			idx++
		}
	}
	return fmt.Sprintf("%016x", value)
}

// ScanHash crops the artwork region out of a full scan and hashes it.
func ScanHash(src image.Image) string {
	bounds := src.Bounds()
	region := regions.ArtworkRegion(bounds.Dx(), bounds.Dy())
	clamped := preprocess.Clamp(region, regions.Offset{}, bounds.Dx(), bounds.Dy())
	crop := imaging.Crop(src, image.Rect(
		bounds.Min.X+clamped.Left,
		bounds.Min.Y+clamped.Top,
		bounds.Min.X+clamped.Left+clamped.Width,
		bounds.Min.Y+clamped.Top+clamped.Height,
	))
	return HashImage(crop)
}

// Hamming counts differing bits between two hex hashes. Malformed
// inputs yield MalformedDistance instead of an error so comparison
// loops can treat them as "never close".
func Hamming(a, b string) int {
	if len(a) != 16 || len(b) != 16 {
		return MalformedDistance
	}
	av, err := strconv.ParseUint(a, 16, 64)
	if err != nil {
		return MalformedDistance
	}
	bv, err := strconv.ParseUint(b, 16, 64)
	if err != nil {
		return MalformedDistance
	}
	return bits.OnesCount64(av ^ bv)
}
