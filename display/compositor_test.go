package display

import "testing"

// TestCompositeBucketQuadrants reproduces the display round-trip
// scenario directly against the compositor: four 2x2 buckets tiling a
// 4x4 image, each a solid opaque color, composited in sequence. The
// resulting 8-bit buffer's four quadrants must match those colors
// exactly.
func TestCompositeBucketQuadrants(t *testing.T) {
	img := NewImage(4, 4, 3)

	red := solidBucket(2, 2, 1, 0, 0)
	green := solidBucket(2, 2, 0, 1, 0)
	blue := solidBucket(2, 2, 0, 0, 1)
	white := solidBucket(2, 2, 1, 1, 1)

	img.CompositeBucket(0, 0, 2, 2, red)
	img.CompositeBucket(2, 0, 4, 2, green)
	img.CompositeBucket(0, 2, 2, 4, blue)
	img.CompositeBucket(2, 2, 4, 4, white)

	check := func(x, y int, r, g, b uint8) {
		t.Helper()
		off := (y*img.XRes + x) * img.Channels
		got := [3]uint8{img.display[off], img.display[off+1], img.display[off+2]}
		want := [3]uint8{r, g, b}
		if got != want {
			t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
		}
	}
	check(0, 0, 255, 0, 0)
	check(1, 1, 255, 0, 0)
	check(2, 0, 0, 255, 0)
	check(3, 1, 0, 255, 0)
	check(0, 2, 0, 0, 255)
	check(1, 3, 0, 0, 255)
	check(2, 2, 255, 255, 255)
	check(3, 3, 255, 255, 255)
}

// solidBucket builds a w*h RGBA sample array, fully opaque, with the
// given color repeated at every sample.
func solidBucket(w, h int, r, g, b float32) []float32 {
	out := make([]float32, w*h*4)
	for i := 0; i < w*h; i++ {
		out[i*4+0] = r
		out[i*4+1] = g
		out[i*4+2] = b
		out[i*4+3] = 1
	}
	return out
}

// TestCompositeBucketBlendsTranslucentOverOpaque checks the
// INT_PRELERP associated-alpha formula against a hand-computed value:
// a half-alpha red sample over an opaque green background should blend
// to C' = (0.5,0,0) + (0,1,0)*(1-0.5) = (0.5, 0.5, 0).
func TestCompositeBucketBlendsTranslucentOverOpaque(t *testing.T) {
	img := NewImage(1, 1, 3)
	img.CompositeBucket(0, 0, 1, 1, solidBucket(1, 1, 0, 1, 0))

	half := []float32{0.5, 0, 0, 0.5}
	img.CompositeBucket(0, 0, 1, 1, half)

	want := [3]float32{0.5, 0.5, 0}
	got := [3]float32{img.real[0], img.real[1], img.real[2]}
	const eps = 1e-6
	for i := range want {
		if diff := got[i] - want[i]; diff > eps || diff < -eps {
			t.Fatalf("channel %d = %v, want %v", i, got[i], want[i])
		}
	}
}
