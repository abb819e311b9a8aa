package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResampleGridIdentity validates that same-size resampling copies the
// grid unchanged.
func TestResampleGridIdentity(t *testing.T) {
	src := []float32{0, 1, 2, 3, 4, 5}
	dst := ResampleGrid(src, 3, 2, 3, 2)
	assert.Equal(t, src, dst, "identity resample should copy the grid")
}

// TestResampleGridConstant validates that a constant grid stays constant
// under upscaling.
func TestResampleGridConstant(t *testing.T) {
	src := make([]float32, 4*4)
	for i := range src {
		src[i] = 0.75
	}
	dst := ResampleGrid(src, 4, 4, 16, 16)
	require.Len(t, dst, 16*16)
	for i, v := range dst {
		assert.InDelta(t, 0.75, v, 1e-6, "pixel %d should keep the constant value", i)
	}
}

// TestCropGridClamps validates crop clamping and the 1x1 minimum.
func TestCropGridClamps(t *testing.T) {
	src := []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}

	crop, w, h := CropGrid(src, 3, 3, 1, 1, 3, 3)
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
	assert.Equal(t, []float32{5, 6, 8, 9}, crop, "crop should take the lower-right block")

	// Degenerate rectangles are widened to at least one pixel.
	crop, w, h = CropGrid(src, 3, 3, 2, 2, 2, 2)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, []float32{9}, crop, "empty crop should widen to one pixel")

	// Out-of-range coordinates are clamped into the grid.
	crop, w, h = CropGrid(src, 3, 3, -2, -2, 10, 1)
	assert.Equal(t, 3, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, []float32{1, 2, 3}, crop, "crop should clamp to the grid")
}
