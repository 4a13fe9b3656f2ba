package arthash

import (
	"image"
	"image/color"
	"testing"
)

// rampImage increases luma left to right, so every adjacent pair
// compares left < right.
func rampImage(w, h int, invert bool) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			if invert {
				v = 255 - v
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestHashImageRampExtremes(t *testing.T) {
	rising := HashImage(rampImage(9, 8, false))
	if rising != "ffffffffffffffff" {
		t.Fatalf("rising ramp must set every bit, got %s", rising)
	}
	falling := HashImage(rampImage(9, 8, true))
	if falling != "0000000000000000" {
		t.Fatalf("falling ramp must clear every bit, got %s", falling)
	}
}

func TestHashImageDeterministic(t *testing.T) {
	img := rampImage(200, 150, false)
	a, b := HashImage(img), HashImage(img)
	if a != b {
		t.Fatalf("hash not deterministic: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex characters, got %q", a)
	}
}

func TestHammingSelfAndComplement(t *testing.T) {
	hash := HashImage(rampImage(100, 80, false))
	if got := Hamming(hash, hash); got != 0 {
		t.Fatalf("self distance must be 0, got %d", got)
	}
	if got := Hamming("0000000000000000", "ffffffffffffffff"); got != 64 {
		t.Fatalf("complement distance must be 64, got %d", got)
	}
}

func TestHammingMalformedInputsReturnSentinel(t *testing.T) {
	tests := []struct{ a, b string }{
		{"", ""},
		{"abc", "ffffffffffffffff"},
		{"ffffffffffffffff", "abc"},
		{"zzzzzzzzzzzzzzzz", "ffffffffffffffff"},
		{"ffffffffffffffff", "zzzzzzzzzzzzzzzz"},
	}
	for _, tc := range tests {
		if got := Hamming(tc.a, tc.b); got != MalformedDistance {
			t.Errorf("Hamming(%q, %q) = %d, want sentinel %d", tc.a, tc.b, got, MalformedDistance)
		}
	}
}

func TestScanHashUsesArtworkRegion(t *testing.T) {
	full := rampImage(771, 1061, false)
	if got := ScanHash(full); len(got) != 16 {
		t.Fatalf("expected 16 hex characters, got %q", got)
	}
}
