// Package pipeline - Configuration for the vehicle removal pipeline.
package pipeline

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/xamde/AutoKorrektur/masks"
	"github.com/xamde/AutoKorrektur/models"
	"github.com/xamde/AutoKorrektur/models/postprocess"
	"github.com/xamde/AutoKorrektur/models/yolov8seg"
	"github.com/xamde/AutoKorrektur/preprocess"
)

// Config carries every tunable parameter crossing the pipeline boundary.
type Config struct {
	// ScoreThreshold is the minimum detection confidence.
	ScoreThreshold float32 `json:"scoreThreshold" yaml:"scoreThreshold"`
	// IoUThreshold is the NMS overlap threshold.
	IoUThreshold float32 `json:"iouThreshold" yaml:"iouThreshold"`
	// MaxPerClass caps kept detections per class.
	MaxPerClass int `json:"maxPerClass" yaml:"maxPerClass"`
	// TargetClasses are the class ids eligible for removal.
	TargetClasses []int `json:"targetClasses" yaml:"targetClasses"`
	// UpscaleFactor enlarges detection boxes before mask placement.
	UpscaleFactor float32 `json:"upscaleFactor" yaml:"upscaleFactor"`
	// DownshiftFraction shifts the finished mask down by this fraction of
	// its height.
	DownshiftFraction float32 `json:"downshiftFraction" yaml:"downshiftFraction"`
	// MaxMegapixels caps the input size before preprocessing. Zero
	// disables the cap.
	MaxMegapixels float64 `json:"maxMegapixels" yaml:"maxMegapixels"`
	// InpaintDType selects the inpainting model's declared element type:
	// "uint8" or "float32".
	InpaintDType string `json:"inpaintDType" yaml:"inpaintDType"`
	// DelegateMask renders masks through the standalone mask model instead
	// of the local synthesizer. Requires a mask engine.
	DelegateMask bool `json:"delegateMask" yaml:"delegateMask"`
}

// DefaultConfig returns the calibrated pipeline parameters.
//
// Returns:
//   - Config: Defaults targeting the COCO vehicle classes.
func DefaultConfig() Config {
	return Config{
		ScoreThreshold:    0.2,
		IoUThreshold:      0.4,
		MaxPerClass:       100,
		TargetClasses:     append([]int(nil), models.VehicleClassIDs...),
		UpscaleFactor:     1.2,
		DownshiftFraction: 0.025,
		InpaintDType:      "uint8",
	}
}

// LoadConfig overlays a YAML file onto the defaults.
//
// Arguments:
//   - path: The YAML config file path.
//
// Returns:
//   - Config: The merged configuration.
//   - error: An error if the file cannot be read or parsed.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrapf(err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(err, "parsing config file %s", path)
	}
	return config, nil
}

// decoderConfig derives the detection decoder configuration.
func (c Config) decoderConfig() yolov8seg.DecoderConfig {
	return yolov8seg.DecoderConfig{
		ScoreThreshold: c.ScoreThreshold,
		TargetClasses:  models.ClassSet(c.TargetClasses),
	}
}

// nmsConfig derives the suppression configuration.
func (c Config) nmsConfig() *postprocess.NMSConfig {
	return &postprocess.NMSConfig{
		IoUThreshold: c.IoUThreshold,
		MaxPerClass:  c.MaxPerClass,
	}
}

// maskConfig derives the mask synthesis configuration.
func (c Config) maskConfig() masks.Config {
	return masks.Config{
		UpscaleFactor:     c.UpscaleFactor,
		DownshiftFraction: c.DownshiftFraction,
	}
}

// preprocessConfig derives the letterbox preprocessing configuration.
func (c Config) preprocessConfig() preprocess.Config {
	cfg := preprocess.DefaultConfig()
	cfg.MaxMegapixels = c.MaxMegapixels
	return cfg
}
