package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamde/AutoKorrektur/models/model"
)

// solidImage builds a uniformly colored test image.
func solidImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// TestProcessRejectsInvalidInput validates the input guard.
func TestProcessRejectsInvalidInput(t *testing.T) {
	p := NewPreprocessor(DefaultConfig())

	_, err := p.Process(nil)
	require.Error(t, err, "a nil image must be rejected")
	assert.True(t, errors.Is(err, model.ErrInvalidImage))

	_, err = p.Process(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	require.Error(t, err, "a zero-sized image must be rejected")
	assert.True(t, errors.Is(err, model.ErrInvalidImage))
}

// TestProcessTensorShape validates the output tensor layout and value range.
func TestProcessTensorShape(t *testing.T) {
	p := NewPreprocessor(DefaultConfig())

	result, err := p.Process(solidImage(1280, 720, color.White))

	require.NoError(t, err)
	require.Len(t, result.Data, 3*640*640, "tensor should be CHW at model resolution")
	for i, v := range result.Data {
		require.GreaterOrEqual(t, v, float32(0), "value %d below range", i)
		require.LessOrEqual(t, v, float32(1), "value %d above range", i)
	}
}

// TestProcessLetterboxGeometry validates the transform recorded for a
// landscape input.
func TestProcessLetterboxGeometry(t *testing.T) {
	p := NewPreprocessor(DefaultConfig())

	result, err := p.Process(solidImage(1280, 720, color.White))

	require.NoError(t, err)
	transform := result.Transform
	assert.Equal(t, 1280, transform.OriginalWidth)
	assert.Equal(t, 720, transform.OriginalHeight)
	assert.Equal(t, 1280, transform.AlignedWidth, "1280 is already stride aligned")
	assert.Equal(t, 736, transform.AlignedHeight, "720 rounds up at the stride midpoint")
	assert.Equal(t, 1280, transform.PaddedSize, "padding fills to the larger aligned side")
	assert.Equal(t, 1280-736, transform.PadBottom)
	assert.Equal(t, 0, transform.PadRight)
}

// TestProcessPadsWithBlack validates that the padded region normalizes to
// zero while the image region stays bright.
func TestProcessPadsWithBlack(t *testing.T) {
	p := NewPreprocessor(DefaultConfig())

	result, err := p.Process(solidImage(1280, 640, color.White))

	require.NoError(t, err)
	// The white image occupies the top of the square; the bottom rows are
	// black padding across all three channels.
	plane := 640 * 640
	topIdx := 10*640 + 320
	bottomIdx := 630*640 + 320
	for c := 0; c < 3; c++ {
		assert.InDelta(t, 1.0, result.Data[c*plane+topIdx], 0.05, "image region should stay bright")
		assert.InDelta(t, 0.0, result.Data[c*plane+bottomIdx], 0.05, "padding should be black")
	}
}

// TestProcessMegapixelCap validates that oversized inputs are downscaled
// before letterboxing.
func TestProcessMegapixelCap(t *testing.T) {
	config := DefaultConfig()
	config.MaxMegapixels = 0.25
	p := NewPreprocessor(config)

	result, err := p.Process(solidImage(2000, 1000, color.White))

	require.NoError(t, err)
	working := result.Working.Bounds()
	pixels := working.Dx() * working.Dy()
	assert.LessOrEqual(t, pixels, 250000, "working image should respect the megapixel budget")
	assert.InDelta(t, 2.0, float64(working.Dx())/float64(working.Dy()), 0.05,
		"aspect ratio should be preserved")
	assert.Equal(t, working.Dx(), result.Transform.OriginalWidth,
		"transform should describe the working image, not the raw input")
}

// TestProcessCapDisabled validates that a zero budget leaves the input
// untouched.
func TestProcessCapDisabled(t *testing.T) {
	p := NewPreprocessor(DefaultConfig())
	img := solidImage(2000, 1000, color.White)

	result, err := p.Process(img)

	require.NoError(t, err)
	assert.Equal(t, 2000, result.Working.Bounds().Dx(), "no cap should mean no downscale")
}
