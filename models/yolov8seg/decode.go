// Package yolov8seg - Candidate decoding and filtering.
package yolov8seg

import (
	"log"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/xamde/AutoKorrektur/images"
	"github.com/xamde/AutoKorrektur/models/model"
	"github.com/xamde/AutoKorrektur/models/postprocess"
)

// DecoderConfig defines the filtering applied while decoding raw candidates.
type DecoderConfig struct {
	// ScoreThreshold is the minimum arg-max class score a candidate must
	// reach to survive decoding.
	ScoreThreshold float32 `json:"scoreThreshold" yaml:"scoreThreshold"`
	// TargetClasses restricts decoding to the given class ids. An empty or
	// nil set keeps every class.
	TargetClasses map[int]bool `json:"-" yaml:"-"`
}

// Decode turns the raw detection tensor into filtered corner-form detections.
//
// Each of the 8400 candidate columns carries 4 box values (center form),
// 80 class scores, and 32 mask coefficients. The arg-max class score decides
// the candidate's class; candidates outside the target class set or below the
// score threshold are discarded, survivors are converted to corner form and
// clamped against the square model bounds. Columns containing non-finite
// values are skipped and logged rather than aborting the whole decode, so one
// bad column cannot discard all valid detections.
//
// Arguments:
//   - output: The flat [1,116,8400] tensor data.
//   - config: The decoding filter configuration.
//
// Returns:
//   - []postprocess.Result: The surviving detections in candidate order.
//   - error: model.ErrDetectionParse when the tensor has the wrong length.
func Decode(output []float32, config DecoderConfig) ([]postprocess.Result, error) {
	if len(output) != NumChannels*NumCandidates {
		return nil, errors.Wrapf(model.ErrDetectionParse,
			"detection output has %d elements, want %d", len(output), NumChannels*NumCandidates)
	}

	view := outputView{data: output, channels: NumChannels, candidates: NumCandidates}
	results := make([]postprocess.Result, 0, 64)

	for i := 0; i < NumCandidates; i++ {
		classID, score := argMaxClass(view, i)
		if classID < 0 || score < config.ScoreThreshold {
			continue
		}
		if len(config.TargetClasses) > 0 && !config.TargetClasses[classID] {
			continue
		}

		cx := view.at(0, i)
		cy := view.at(1, i)
		w := view.at(2, i)
		h := view.at(3, i)
		if !finite(cx) || !finite(cy) || !finite(w) || !finite(h) || !finite(score) {
			log.Printf("yolov8seg: skipping malformed candidate column %d", i)
			continue
		}

		box := images.ClampBox(images.Rect{
			X1: cx - w/2,
			Y1: cy - h/2,
			X2: cx + w/2,
			Y2: cy + h/2,
		}, float32(InputSize))

		coefficients := make([]float32, NumCoefficients)
		for c := 0; c < NumCoefficients; c++ {
			coefficients[c] = view.at(NumBoxValues+NumClasses+c, i)
		}

		results = append(results, postprocess.Result{
			Box:              box,
			Score:            score,
			Class:            classID,
			Row:              i,
			MaskCoefficients: coefficients,
		})
	}

	return results, nil
}

// ValidatePrototypes checks that the prototype tensor carries exactly
// 32x160x160 elements.
//
// Arguments:
//   - prototypes: The flat [1,32,160,160] tensor data.
//
// Returns:
//   - error: model.ErrModelContract on a wrong element count.
func ValidatePrototypes(prototypes []float32) error {
	want := PrototypeChannels * PrototypeSize * PrototypeSize
	if len(prototypes) != want {
		return errors.Wrapf(model.ErrModelContract,
			"prototype tensor has %d elements, want %d", len(prototypes), want)
	}
	return nil
}

// argMaxClass returns the best-scoring class for a candidate column, or -1
// when no class has a positive score.
func argMaxClass(view outputView, candidate int) (int, float32) {
	best := -1
	bestScore := float32(0)
	for c := 0; c < NumClasses; c++ {
		score := view.at(NumBoxValues+c, candidate)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best, bestScore
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
