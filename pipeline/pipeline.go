// Package pipeline - Orchestration of the detect-mask-inpaint sequence.
//
// The pipeline is logically synchronous and single-flow per request: each
// stage's output is the next stage's input, and the only operations that may
// suspend are the calls into the external inference engines. All entities are
// created per request and discarded when it completes; nothing is cached
// between images.
package pipeline

import (
	"context"
	"image"
	"log"

	"github.com/pkg/errors"

	"github.com/xamde/AutoKorrektur/images"
	"github.com/xamde/AutoKorrektur/inference"
	"github.com/xamde/AutoKorrektur/masks"
	"github.com/xamde/AutoKorrektur/models"
	"github.com/xamde/AutoKorrektur/models/inpaint"
	"github.com/xamde/AutoKorrektur/models/model"
	"github.com/xamde/AutoKorrektur/models/postprocess"
	"github.com/xamde/AutoKorrektur/models/yolov8seg"
	"github.com/xamde/AutoKorrektur/preprocess"
	"github.com/xamde/AutoKorrektur/profiler"
	"github.com/xamde/AutoKorrektur/util"
)

// Args configures a new pipeline.
type Args struct {
	// Detector is the detection model engine.
	Detector inference.Engine
	// Inpainter is the inpainting model engine.
	Inpainter inference.Engine
	// MaskEngine is the optional standalone mask-rendering model engine,
	// required only when Config.DelegateMask is set.
	MaskEngine inference.Engine
	// Config holds the tunable parameters.
	Config Config
	// Profiler optionally records per-stage timings.
	Profiler *profiler.StageProfiler
}

// Pipeline sequences preprocessing, detection, mask synthesis, and
// inpainting for one image at a time.
type Pipeline struct {
	config       Config
	preprocessor *preprocess.Preprocessor
	detector     inference.Engine
	inpainter    inference.Engine
	renderer     masks.Renderer
	adapter      *inpaint.Adapter
	profiler     *profiler.StageProfiler
}

// Result is the outcome of processing one image.
type Result struct {
	// Output is the inpainted, vehicle-free image at working resolution.
	Output image.Image
	// Mask is the finalized removal mask at model resolution.
	Mask *image.Gray
	// Detections are the kept detections in model space.
	Detections []postprocess.Result
	// Boxes are the kept detection boxes mapped to original-image space.
	Boxes []images.Rect
	// Transform is the letterbox geometry used for the image.
	Transform images.LetterboxTransform
}

// New creates a pipeline from the given engines and configuration.
//
// Arguments:
//   - args: The engines, configuration, and optional profiler.
//
// Returns:
//   - *Pipeline: The ready pipeline.
//   - error: An error when a required engine is missing.
func New(args Args) (*Pipeline, error) {
	if args.Detector == nil {
		return nil, errors.New("pipeline requires a detection engine")
	}
	if args.Inpainter == nil {
		return nil, errors.New("pipeline requires an inpainting engine")
	}

	maskConfig := args.Config.maskConfig()
	var renderer masks.Renderer
	if args.Config.DelegateMask {
		if args.MaskEngine == nil {
			return nil, errors.New("mask delegation requires a mask engine")
		}
		renderer = masks.NewDelegatedRenderer(args.MaskEngine, maskConfig, yolov8seg.InputSize)
	} else {
		renderer = masks.NewSynthesizer(maskConfig, yolov8seg.InputSize)
	}

	dtype := inference.Uint8
	if args.Config.InpaintDType == "float32" {
		dtype = inference.Float32
	}

	prof := args.Profiler
	if prof == nil {
		prof = profiler.NewStageProfiler()
	}

	return &Pipeline{
		config:       args.Config,
		preprocessor: preprocess.NewPreprocessor(args.Config.preprocessConfig()),
		detector:     args.Detector,
		inpainter:    args.Inpainter,
		renderer:     renderer,
		adapter:      inpaint.NewAdapter(dtype),
		profiler:     prof,
	}, nil
}

// Process runs the full removal sequence for one decoded image.
//
// A failure in any stage aborts the remainder of this image's processing and
// is surfaced to the caller; nothing is retried or degraded silently.
//
// Arguments:
//   - ctx: Passed through to every engine call.
//   - img: The decoded input image.
//
// Returns:
//   - *Result: The processed outcome.
//   - error: The first stage failure, classifiable with errors.Is against
//     the model error kinds.
func (p *Pipeline) Process(ctx context.Context, img image.Image) (*Result, error) {
	var pre *preprocess.Result
	err := p.profiler.Track("preprocess", func() error {
		var err error
		pre, err = p.preprocessor.Process(img)
		return err
	})
	if err != nil {
		return nil, err
	}

	var rawOutput, prototypes []float32
	err = p.profiler.Track("detect", func() error {
		var err error
		rawOutput, prototypes, err = p.runDetection(ctx, pre.Data)
		return err
	})
	if err != nil {
		return nil, err
	}

	candidates, err := yolov8seg.Decode(rawOutput, p.config.decoderConfig())
	if err != nil {
		return nil, err
	}
	kept := postprocess.ApplyGreedyNMS(candidates, p.config.nmsConfig())
	for _, detection := range kept {
		log.Printf("pipeline: keeping %s (score %.2f) at (%.0f,%.0f)-(%.0f,%.0f)",
			models.ClassName(detection.Class), detection.Score,
			detection.Box.X1, detection.Box.Y1, detection.Box.X2, detection.Box.Y2)
	}

	var mask *image.Gray
	err = p.profiler.Track("mask", func() error {
		var err error
		mask, err = p.renderer.Render(ctx, prototypes, kept)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Mask:       mask,
		Detections: kept,
		Boxes:      mapBoxes(kept, pre.Transform),
		Transform:  pre.Transform,
	}

	if len(kept) == 0 {
		// Nothing to remove; the working image passes through untouched.
		log.Printf("pipeline: no target detections, skipping inpainting")
		result.Output = pre.Working
		return result, nil
	}

	err = p.profiler.Track("inpaint", func() error {
		var err error
		// The overlay still carries the letterbox padding bands; only the
		// content region pairs with the working image.
		content := masks.CropToContent(mask, pre.Transform)
		result.Output, err = p.runInpainting(ctx, pre.Working, content)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// runDetection calls the detection engine and unpacks its two outputs.
func (p *Pipeline) runDetection(ctx context.Context, input []float32) ([]float32, []float32, error) {
	size := int64(yolov8seg.InputSize)
	outputs, err := p.detector.Infer(ctx, map[string]*inference.Tensor{
		model.DetectionInputName: inference.NewFloat32Tensor([]int64{1, 3, size, size}, input),
	})
	if err != nil {
		return nil, nil, err
	}

	rawOutput, ok := outputs[model.DetectionOutputName]
	if !ok || rawOutput.DType != inference.Float32 {
		return nil, nil, errors.Wrapf(model.ErrModelContract,
			"detection model produced no float32 %s tensor", model.DetectionOutputName)
	}
	prototypes, ok := outputs[model.PrototypeOutputName]
	if !ok || prototypes.DType != inference.Float32 {
		return nil, nil, errors.Wrapf(model.ErrModelContract,
			"detection model produced no float32 %s tensor (missing prototype masks)",
			model.PrototypeOutputName)
	}
	return rawOutput.Floats, prototypes.Floats, nil
}

// runInpainting marshals the pair, calls the inpainting engine, and unmarshals
// the result.
func (p *Pipeline) runInpainting(ctx context.Context, working image.Image, mask *image.Gray) (image.Image, error) {
	imageTensor, maskTensor, err := p.adapter.ToTensors(working, mask)
	if err != nil {
		return nil, err
	}

	outputs, err := p.inpainter.Infer(ctx, map[string]*inference.Tensor{
		model.InpaintImageInputName: imageTensor,
		model.InpaintMaskInputName:  maskTensor,
	})
	if err != nil {
		return nil, err
	}

	return p.adapter.FromTensor(outputs[model.InpaintOutputName])
}

// Profiler exposes the pipeline's stage timings.
func (p *Pipeline) Profiler() *profiler.StageProfiler {
	return p.profiler
}

// mapBoxes maps kept detection boxes into original-image space.
func mapBoxes(kept []postprocess.Result, transform images.LetterboxTransform) []images.Rect {
	boxes := make([]images.Rect, len(kept))
	for i, detection := range kept {
		boxes[i] = transform.MapToOriginal(detection.Box)
	}
	return boxes
}

// BatchResult records the outcome for one file of a batch.
type BatchResult struct {
	// Path is the input file path.
	Path string
	// Result is the processed outcome, nil on failure.
	Result *Result
	// Err records this image's failure, nil on success.
	Err error
}

// ProcessBatch processes files strictly sequentially to bound peak memory.
// One image's failure is recorded and processing continues with the next
// image; the batch itself never fails.
//
// Arguments:
//   - ctx: Passed through to each image's processing.
//   - files: The input files in processing order.
//
// Returns:
//   - []BatchResult: One entry per input file, in order.
func (p *Pipeline) ProcessBatch(ctx context.Context, files []util.ImageFile) []BatchResult {
	results := make([]BatchResult, 0, len(files))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			results = append(results, BatchResult{Path: file.Path, Err: err})
			continue
		}

		decoded, err := util.Decode(file.Image)
		if err != nil {
			log.Printf("pipeline: %s: %v", file.Path, err)
			results = append(results, BatchResult{Path: file.Path, Err: err})
			continue
		}

		result, err := p.Process(ctx, decoded)
		if err != nil {
			log.Printf("pipeline: %s: %v", file.Path, err)
			results = append(results, BatchResult{Path: file.Path, Err: err})
			continue
		}
		results = append(results, BatchResult{Path: file.Path, Result: result})
	}

	return results
}
