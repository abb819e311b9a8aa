package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestComputeLetterboxAlignedSquare validates idempotence on already-aligned,
// already-square dimensions: unit ratios and zero padding.
func TestComputeLetterboxAlignedSquare(t *testing.T) {
	tf := ComputeLetterbox(640, 640, 32)

	assert.Equal(t, 640, tf.AlignedWidth, "aligned width should be unchanged")
	assert.Equal(t, 640, tf.AlignedHeight, "aligned height should be unchanged")
	assert.Equal(t, 640, tf.PaddedSize, "padded size should be unchanged")
	assert.Equal(t, 0, tf.PadRight, "already-square input should need no padding")
	assert.Equal(t, 0, tf.PadBottom, "already-square input should need no padding")
	assert.Equal(t, float32(1), tf.XRatio, "x ratio should be 1")
	assert.Equal(t, float32(1), tf.YRatio, "y ratio should be 1")
}

// TestComputeLetterboxStrideRounding validates the nearest-multiple rounding
// rule: a remainder of at least stride/2 rounds up, smaller ones round down.
func TestComputeLetterboxStrideRounding(t *testing.T) {
	cases := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"round down", 1280, 712, 1280, 704},
		{"round up at tie", 1280, 720, 1280, 736},
		{"round up above tie", 1280, 730, 1280, 736},
		{"tiny input keeps one stride", 10, 10, 32, 32},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tf := ComputeLetterbox(tc.width, tc.height, 32)
			assert.Equal(t, tc.wantW, tf.AlignedWidth, "aligned width")
			assert.Equal(t, tc.wantH, tf.AlignedHeight, "aligned height")
		})
	}
}

// TestComputeLetterboxPaddedInvariant validates that the padded size is
// always the larger aligned dimension and the ratios relate it to each axis.
func TestComputeLetterboxPaddedInvariant(t *testing.T) {
	tf := ComputeLetterbox(1280, 720, 32)

	assert.Equal(t, 1280, tf.PaddedSize, "padded size should be the max aligned dimension")
	assert.Equal(t, 0, tf.PadRight, "wide image should need no horizontal padding")
	assert.Equal(t, 1280-736, tf.PadBottom, "vertical padding should fill to the square")
	assert.InDelta(t, 1.0, tf.XRatio, 1e-6, "x ratio should be padded/alignedWidth")
	assert.InDelta(t, 1280.0/736.0, tf.YRatio, 1e-6, "y ratio should be padded/alignedHeight")
}

// TestMapToOriginalRoundTrip validates that mapping a model-space box and
// scaling back by the inverse ratios reproduces it within rounding tolerance.
func TestMapToOriginalRoundTrip(t *testing.T) {
	tf := ComputeLetterbox(1920, 1080, 32)
	box := Rect{X1: 100, Y1: 120, X2: 400, Y2: 380}

	mapped := tf.MapToOriginal(box)
	back := Rect{
		X1: mapped.X1 / tf.XRatio,
		Y1: mapped.Y1 / tf.YRatio,
		X2: mapped.X2 / tf.XRatio,
		Y2: mapped.Y2 / tf.YRatio,
	}

	// Flooring loses at most one output pixel, which is at most one input
	// pixel after the inverse scale.
	assert.InDelta(t, box.X1, back.X1, 1.0, "X1 should round-trip")
	assert.InDelta(t, box.Y1, back.Y1, 1.0, "Y1 should round-trip")
	assert.InDelta(t, box.X2, back.X2, 1.0, "X2 should round-trip")
	assert.InDelta(t, box.Y2, back.Y2, 1.0, "Y2 should round-trip")
}
