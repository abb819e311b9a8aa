// Package masks - Delegated mask rendering via a standalone model.
package masks

import (
	"context"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/xamde/AutoKorrektur/images"
	"github.com/xamde/AutoKorrektur/inference"
	"github.com/xamde/AutoKorrektur/models/model"
	"github.com/xamde/AutoKorrektur/models/postprocess"
	"github.com/xamde/AutoKorrektur/models/yolov8seg"
)

// Renderer produces the binary removal mask for a set of kept detections.
// The local Synthesizer is the default implementation; DelegatedRenderer
// hands the geometry to a standalone mask-rendering model instead.
type Renderer interface {
	Render(ctx context.Context, prototypes []float32, detections []postprocess.Result) (*image.Gray, error)
}

// Render implements Renderer for the local synthesizer. The context is
// accepted for interface symmetry; local synthesis never suspends.
func (s *Synthesizer) Render(_ context.Context, prototypes []float32, detections []postprocess.Result) (*image.Gray, error) {
	return s.Synthesize(prototypes, detections)
}

// DelegatedRenderer renders per-detection masks through a standalone
// mask-rendering model. Each detection is submitted with its box and
// coefficient vector, the shared prototype tensor, and a config vector
// [maxSize, x, y, width, height, r, g, b, a]; the model answers with an RGBA
// crop that is converted to grayscale, thresholded, and unioned into the
// overlay.
type DelegatedRenderer struct {
	engine    inference.Engine
	config    Config
	modelSize int
}

// renderColor is the fixed fill color requested from the mask model. Only
// the grayscale intensity matters downstream.
var renderColor = [4]float32{255, 255, 255, 255}

// NewDelegatedRenderer creates a renderer backed by the given engine.
//
// Arguments:
//   - engine: The mask-rendering model's engine.
//   - config: The synthesis parameters (upscale and downshift apply the
//     same way as for local synthesis).
//   - modelSize: The square model input resolution.
//
// Returns:
//   - *DelegatedRenderer: The configured renderer.
func NewDelegatedRenderer(engine inference.Engine, config Config, modelSize int) *DelegatedRenderer {
	if config.UpscaleFactor <= 0 {
		config.UpscaleFactor = 1
	}
	if modelSize <= 0 {
		modelSize = yolov8seg.InputSize
	}
	return &DelegatedRenderer{engine: engine, config: config, modelSize: modelSize}
}

// Render produces the removal mask by calling the mask model once per
// detection and unioning the rendered crops.
//
// Arguments:
//   - ctx: Passed through to every engine call.
//   - prototypes: The flat [1,32,160,160] prototype tensor data.
//   - detections: The detections kept after suppression.
//
// Returns:
//   - *image.Gray: The overlay, every pixel exactly 0 or 255.
//   - error: model.ErrModelContract on malformed inputs or outputs,
//     model.ErrInference on engine failure.
func (r *DelegatedRenderer) Render(ctx context.Context, prototypes []float32, detections []postprocess.Result) (*image.Gray, error) {
	if err := yolov8seg.ValidatePrototypes(prototypes); err != nil {
		return nil, err
	}

	overlay := NewOverlay(r.modelSize, r.modelSize)

	for _, detection := range detections {
		if len(detection.MaskCoefficients) != yolov8seg.NumCoefficients {
			return nil, errors.Wrapf(model.ErrModelContract,
				"detection at row %d has %d mask coefficients, want %d",
				detection.Row, len(detection.MaskCoefficients), yolov8seg.NumCoefficients)
		}
		if err := r.renderDetection(ctx, overlay, prototypes, detection); err != nil {
			return nil, err
		}
	}

	if r.config.DownshiftFraction > 0 {
		Downshift(overlay, r.config.DownshiftFraction)
	}

	return overlay, nil
}

// renderDetection runs the mask model for one detection and unions its crop.
func (r *DelegatedRenderer) renderDetection(ctx context.Context, overlay *image.Gray, prototypes []float32, detection postprocess.Result) error {
	placed := placedBox(detection.Box, r.config.UpscaleFactor, r.modelSize)
	x0, y0, x1, y1 := boxPixels(placed, r.modelSize)
	if x1 <= x0 || y1 <= y0 {
		return nil
	}
	width := x1 - x0
	height := y1 - y0

	// Box and coefficients in one vector, mirroring a decoded output row.
	vector := make([]float32, yolov8seg.NumBoxValues+yolov8seg.NumCoefficients)
	vector[0] = placed.X1
	vector[1] = placed.Y1
	vector[2] = placed.X2
	vector[3] = placed.Y2
	copy(vector[yolov8seg.NumBoxValues:], detection.MaskCoefficients)

	configVector := []float32{
		float32(r.modelSize),
		float32(x0), float32(y0), float32(width), float32(height),
		renderColor[0], renderColor[1], renderColor[2], renderColor[3],
	}

	inputs := map[string]*inference.Tensor{
		"detection": inference.NewFloat32Tensor(
			[]int64{1, int64(len(vector))}, vector),
		"protos": inference.NewFloat32Tensor(
			[]int64{1, yolov8seg.PrototypeChannels, yolov8seg.PrototypeSize, yolov8seg.PrototypeSize},
			prototypes),
		"config": inference.NewFloat32Tensor(
			[]int64{1, int64(len(configVector))}, configVector),
	}

	outputs, err := r.engine.Infer(ctx, inputs)
	if err != nil {
		return err
	}
	rendered, ok := outputs["mask"]
	if !ok {
		return errors.Wrap(model.ErrModelContract, "mask model returned no mask tensor")
	}
	return unionRenderedCrop(overlay, rendered, x0, y0, width, height)
}

// unionRenderedCrop converts a [1,4,h,w] RGBA crop to grayscale, thresholds
// it, and marks removal pixels in the overlay at the crop's position.
func unionRenderedCrop(overlay *image.Gray, rendered *inference.Tensor, x0, y0, width, height int) error {
	if len(rendered.Shape) != 4 || rendered.Shape[1] != 4 ||
		rendered.Shape[2] != int64(height) || rendered.Shape[3] != int64(width) {
		return errors.Wrapf(model.ErrModelContract,
			"mask model returned shape %v, want [1 4 %d %d]", rendered.Shape, height, width)
	}
	if err := rendered.Validate(); err != nil {
		return errors.Wrap(model.ErrModelContract, err.Error())
	}

	plane := width * height
	at := func(c, idx int) float32 {
		if rendered.DType == inference.Uint8 {
			return float32(rendered.Bytes[c*plane+idx])
		}
		return rendered.Floats[c*plane+idx]
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			// Luma conversion of the RGBA crop; transparent pixels carry
			// no mask.
			gray := 0.299*at(0, idx) + 0.587*at(1, idx) + 0.114*at(2, idx)
			alpha := at(3, idx)
			if alpha > 0 && gray >= 128 {
				overlay.SetGray(x0+x, y0+y, color.Gray{Y: MaskRemove})
			}
		}
	}
	return nil
}

// placedBox enlarges and clamps a detection box for placement.
func placedBox(box images.Rect, factor float32, modelSize int) images.Rect {
	return images.ClampBox(images.EnlargeBox(box, factor), float32(modelSize))
}

// boxPixels converts a placed box to integer pixel bounds within the model
// square.
func boxPixels(box images.Rect, modelSize int) (x0, y0, x1, y1 int) {
	x0 = int(box.X1)
	y0 = int(box.Y1)
	x1 = int(math32.Ceil(box.X2))
	y1 = int(math32.Ceil(box.Y2))
	if x1 > modelSize {
		x1 = modelSize
	}
	if y1 > modelSize {
		y1 = modelSize
	}
	return x0, y0, x1, y1
}
