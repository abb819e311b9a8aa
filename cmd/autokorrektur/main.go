// Command autokorrektur removes vehicles from photographs: it detects them
// with a segmentation model, builds a per-pixel removal mask, and fills the
// masked regions with a generative inpainting model.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/xamde/AutoKorrektur/inference"
	"github.com/xamde/AutoKorrektur/models/model"
	"github.com/xamde/AutoKorrektur/pipeline"
	"github.com/xamde/AutoKorrektur/profiler"
	"github.com/xamde/AutoKorrektur/util"
)

const (
	// DefaultDetectionModelPath is the default detection model location.
	DefaultDetectionModelPath = "models/yolov8m-seg.onnx"
	// DefaultInpaintModelPath is the default inpainting model location.
	DefaultInpaintModelPath = "models/lama.onnx"
	// DefaultOutputDir is the default output directory.
	DefaultOutputDir = "out"
)

func main() {
	var (
		inputPath      string
		outputDir      string
		configPath     string
		detectionModel string
		inpaintModel   string
		maskModel      string
		ortLibrary     string
		provider       string
		saveMasks      bool
		showProfile    bool
	)
	flag.StringVar(&inputPath, "input", "", "Path to an image file or a directory of images")
	flag.StringVar(&outputDir, "output-dir", DefaultOutputDir, "Output directory for processed images")
	flag.StringVar(&configPath, "config", "", "Optional YAML config file overlaying the defaults")
	flag.StringVar(&detectionModel, "detection-model", DefaultDetectionModelPath, "Path to the segmentation detection ONNX model")
	flag.StringVar(&inpaintModel, "inpaint-model", DefaultInpaintModelPath, "Path to the inpainting ONNX model")
	flag.StringVar(&maskModel, "mask-model", "", "Path to the optional standalone mask-rendering ONNX model")
	flag.StringVar(&ortLibrary, "ort-library", "", "Override path to the onnxruntime shared library")
	flag.StringVar(&provider, "provider", "cpu", "Execution provider: cpu, cuda, or coreml")
	flag.BoolVar(&saveMasks, "save-masks", false, "Also write the removal masks next to the outputs")
	flag.BoolVar(&showProfile, "profile", false, "Print per-stage timing statistics after the run")
	flag.Parse()

	if inputPath == "" {
		log.Fatal("missing required -input path")
	}

	config := pipeline.DefaultConfig()
	if configPath != "" {
		var err error
		config, err = pipeline.LoadConfig(configPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	files, err := loadInputs(inputPath)
	if err != nil {
		log.Fatal(err)
	}
	if len(files) == 0 {
		log.Fatalf("no supported images found at %s", inputPath)
	}

	providerConfig := inference.ProviderConfig{Backend: inference.ProviderBackend(provider)}

	detector, err := inference.NewONNXEngine(inference.ONNXConfig{
		ModelPath:   detectionModel,
		LibraryPath: ortLibrary,
		InputNames:  []string{model.DetectionInputName},
		OutputNames: []string{model.DetectionOutputName, model.PrototypeOutputName},
		Provider:    providerConfig,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer detector.Close()

	inpainter, err := inference.NewONNXEngine(inference.ONNXConfig{
		ModelPath:   inpaintModel,
		LibraryPath: ortLibrary,
		InputNames:  []string{model.InpaintImageInputName, model.InpaintMaskInputName},
		OutputNames: []string{model.InpaintOutputName},
		Provider:    providerConfig,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer inpainter.Close()

	var maskEngine inference.Engine
	if config.DelegateMask {
		if maskModel == "" {
			log.Fatal("config delegates mask rendering but no -mask-model was given")
		}
		engine, err := inference.NewONNXEngine(inference.ONNXConfig{
			ModelPath:   maskModel,
			LibraryPath: ortLibrary,
			InputNames:  []string{"detection", "protos", "config"},
			OutputNames: []string{"mask"},
			Provider:    providerConfig,
		})
		if err != nil {
			log.Fatal(err)
		}
		defer engine.Close()
		maskEngine = engine
	}

	prof := profiler.NewStageProfiler()
	p, err := pipeline.New(pipeline.Args{
		Detector:   detector,
		Inpainter:  inpainter,
		MaskEngine: maskEngine,
		Config:     config,
		Profiler:   prof,
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatal(err)
	}

	results := p.ProcessBatch(context.Background(), files)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		if err := saveResult(outputDir, r, saveMasks); err != nil {
			log.Printf("%s: %v", r.Path, err)
			failed++
		}
	}

	log.Printf("processed %d images, %d failed", len(results), failed)
	if showProfile {
		fmt.Print(prof.Report())
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// loadInputs loads a single file or every supported image in a directory.
func loadInputs(path string) ([]util.ImageFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return util.LoadDirectoryImageFiles(path)
	}
	file, err := util.LoadImageFile(path)
	if err != nil {
		return nil, err
	}
	return []util.ImageFile{file}, nil
}

// saveResult writes the inpainted image (and optionally its mask) into the
// output directory.
func saveResult(outputDir string, r pipeline.BatchResult, saveMasks bool) error {
	base := filepath.Base(r.Path)
	if strings.EqualFold(filepath.Ext(base), ".webp") {
		// imaging has no WebP encoder; fall back to PNG for the output.
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
	}
	outPath := filepath.Join(outputDir, base)
	if err := imaging.Save(r.Result.Output, outPath); err != nil {
		return err
	}
	if saveMasks {
		ext := filepath.Ext(base)
		maskPath := filepath.Join(outputDir, strings.TrimSuffix(base, ext)+"_mask.png")
		if err := imaging.Save(r.Result.Mask, maskPath); err != nil {
			return err
		}
	}
	return nil
}
