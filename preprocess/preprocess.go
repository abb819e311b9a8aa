// Package preprocess - Letterbox preprocessing for square model inputs.
package preprocess

import (
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/xamde/AutoKorrektur/images"
	"github.com/xamde/AutoKorrektur/models/model"
)

// Config defines the preprocessing parameters for a detection model.
type Config struct {
	// ModelSize is the square model input resolution.
	ModelSize int `json:"modelSize" yaml:"modelSize"`
	// Stride is the model's spatial stride used for dimension alignment.
	Stride int `json:"stride" yaml:"stride"`
	// MaxMegapixels caps the input size before preprocessing. Larger images
	// are downscaled preserving aspect ratio. Zero disables the cap.
	MaxMegapixels float64 `json:"maxMegapixels" yaml:"maxMegapixels"`
}

// DefaultConfig returns the preprocessing parameters for the 640x640
// stride-32 detection model.
func DefaultConfig() Config {
	return Config{ModelSize: 640, Stride: 32}
}

// Result carries the model-ready tensor data and the geometry needed to map
// model-space coordinates back out.
type Result struct {
	// Data is the CHW float32 tensor data, normalized to [0,1], sized
	// 3*ModelSize*ModelSize.
	Data []float32
	// Transform is the letterbox geometry applied.
	Transform images.LetterboxTransform
	// Working is the image the transform was computed for: the decoded
	// input, downscaled if the megapixel cap applied. The inpainting stage
	// operates at this resolution.
	Working image.Image
}

// Preprocessor turns decoded images into model-ready tensors.
type Preprocessor struct {
	config Config
}

// NewPreprocessor creates a preprocessor with the given configuration.
//
// Arguments:
//   - config: The preprocessing configuration.
//
// Returns:
//   - *Preprocessor: The configured preprocessor.
func NewPreprocessor(config Config) *Preprocessor {
	if config.ModelSize <= 0 {
		config.ModelSize = 640
	}
	if config.Stride <= 0 {
		config.Stride = 32
	}
	return &Preprocessor{config: config}
}

// Process letterboxes an image into a model-ready tensor.
//
// The image is aligned to the model stride, resized with a high-quality
// filter, padded to a black square, resized to the model resolution, and
// normalized to [0,1] in channel-first order. The input image is never
// mutated; all work happens in freshly allocated buffers.
//
// Arguments:
//   - img: The decoded input image.
//
// Returns:
//   - *Result: The tensor data, transform, and working image.
//   - error: model.ErrInvalidImage for nil or zero-sized input.
func (p *Preprocessor) Process(img image.Image) (*Result, error) {
	if img == nil {
		return nil, errors.Wrap(model.ErrInvalidImage, "image is nil")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.Wrapf(model.ErrInvalidImage,
			"image has invalid dimensions %dx%d", bounds.Dx(), bounds.Dy())
	}

	working := p.applyMegapixelCap(img)
	w := working.Bounds().Dx()
	h := working.Bounds().Dy()

	transform := images.ComputeLetterbox(w, h, p.config.Stride)

	// Stride-aligned resize.
	aligned := resize.Resize(uint(transform.AlignedWidth), uint(transform.AlignedHeight),
		working, resize.Lanczos3)

	// Pad to a square with black. The image sits at the origin; padding
	// fills to the right and bottom.
	padded := image.NewRGBA(image.Rect(0, 0, transform.PaddedSize, transform.PaddedSize))
	draw.Draw(padded, aligned.Bounds(), aligned, image.Point{}, draw.Src)

	// Resize the square down (or up) to the model resolution.
	modelInput := resize.Resize(uint(p.config.ModelSize), uint(p.config.ModelSize),
		padded, resize.Lanczos3)

	return &Result{
		Data:      imageToCHW(modelInput, p.config.ModelSize),
		Transform: transform,
		Working:   working,
	}, nil
}

// applyMegapixelCap downscales the image if it exceeds the configured
// megapixel budget, preserving aspect ratio.
func (p *Preprocessor) applyMegapixelCap(img image.Image) image.Image {
	if p.config.MaxMegapixels <= 0 {
		return img
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	pixels := float64(w) * float64(h)
	budget := p.config.MaxMegapixels * 1e6
	if pixels <= budget {
		return img
	}
	scale := math.Sqrt(budget / pixels)
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return imaging.Resize(img, newW, newH, imaging.Lanczos)
}

// imageToCHW converts a square image into a CHW float32 tensor normalized to
// [0,1].
func imageToCHW(img image.Image, size int) []float32 {
	data := make([]float32, 3*size*size)
	plane := size * size
	bounds := img.Bounds()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*size + x
			data[idx] = float32(r>>8) / 255.0
			data[plane+idx] = float32(g>>8) / 255.0
			data[2*plane+idx] = float32(b>>8) / 255.0
		}
	}
	return data
}
