// Package images - Letterbox geometry for square model inputs.
package images

import "github.com/chewxy/math32"

// LetterboxTransform records the geometry of a letterbox operation: the
// original dimensions, the stride-aligned dimensions, the padded square size,
// and the two independent scale ratios needed to map model-space coordinates
// back out. It is immutable once computed for a given image.
type LetterboxTransform struct {
	// OriginalWidth is the width of the input image before any resizing.
	OriginalWidth int `json:"originalWidth" yaml:"originalWidth"`
	// OriginalHeight is the height of the input image before any resizing.
	OriginalHeight int `json:"originalHeight" yaml:"originalHeight"`
	// AlignedWidth is the width rounded to the nearest stride multiple.
	AlignedWidth int `json:"alignedWidth" yaml:"alignedWidth"`
	// AlignedHeight is the height rounded to the nearest stride multiple.
	AlignedHeight int `json:"alignedHeight" yaml:"alignedHeight"`
	// PaddedSize is the square side the aligned image is padded to,
	// always max(AlignedWidth, AlignedHeight).
	PaddedSize int `json:"paddedSize" yaml:"paddedSize"`
	// PadRight is the horizontal black padding in pixels.
	PadRight int `json:"padRight" yaml:"padRight"`
	// PadBottom is the vertical black padding in pixels.
	PadBottom int `json:"padBottom" yaml:"padBottom"`
	// XRatio is PaddedSize / AlignedWidth.
	XRatio float32 `json:"xRatio" yaml:"xRatio"`
	// YRatio is PaddedSize / AlignedHeight.
	YRatio float32 `json:"yRatio" yaml:"yRatio"`
}

// ComputeLetterbox derives the letterbox geometry for an image of the given
// dimensions. Each dimension is rounded to the nearest multiple of stride
// (a remainder of at least stride/2 rounds up, otherwise down), padding fills
// to the larger aligned dimension, and the per-axis ratios relate the padded
// square back to the aligned dimensions.
//
// Arguments:
//   - width: The original image width in pixels.
//   - height: The original image height in pixels.
//   - stride: The model's spatial stride (must be positive).
//
// Returns:
//   - LetterboxTransform: The computed geometry.
func ComputeLetterbox(width, height, stride int) LetterboxTransform {
	alignedW := alignToStride(width, stride)
	alignedH := alignToStride(height, stride)

	padded := alignedW
	if alignedH > padded {
		padded = alignedH
	}

	return LetterboxTransform{
		OriginalWidth:  width,
		OriginalHeight: height,
		AlignedWidth:   alignedW,
		AlignedHeight:  alignedH,
		PaddedSize:     padded,
		PadRight:       padded - alignedW,
		PadBottom:      padded - alignedH,
		XRatio:         float32(padded) / float32(alignedW),
		YRatio:         float32(padded) / float32(alignedH),
	}
}

// alignToStride rounds n to the nearest multiple of stride. Remainders of at
// least stride/2 round up, smaller ones round down, and the result is never
// below one stride.
func alignToStride(n, stride int) int {
	if stride <= 1 {
		return n
	}
	rem := n % stride
	aligned := n - rem
	if rem*2 >= stride {
		aligned += stride
	}
	if aligned < stride {
		aligned = stride
	}
	return aligned
}

// MapToOriginal converts a model-space corner box to original-image space by
// scaling with the transform's per-axis ratios and flooring. The inverse
// (dividing by the same ratios) reproduces the model-space box within
// rounding tolerance.
//
// Arguments:
//   - box: The model-space box, already converted to corner form.
//
// Returns:
//   - Rect: The box in original-image coordinates.
func (t LetterboxTransform) MapToOriginal(box Rect) Rect {
	return Rect{
		X1: math32.Floor(box.X1 * t.XRatio),
		Y1: math32.Floor(box.Y1 * t.YRatio),
		X2: math32.Floor(box.X2 * t.XRatio),
		Y2: math32.Floor(box.Y2 * t.YRatio),
	}
}
