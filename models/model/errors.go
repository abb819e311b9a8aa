// Package model - Typed error kinds shared across the pipeline stages.
package model

import "github.com/pkg/errors"

// Error kinds surfaced by the pipeline. Callers classify wrapped failures with
// errors.Is against these sentinels.
var (
	// ErrInvalidImage indicates an unreadable or zero-sized input image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrModelContract indicates a model produced tensors that violate its
	// declared contract: wrong shapes or dtypes, missing prototype masks, or a
	// wrong-length mask coefficient vector. It is never downgraded to a cruder
	// result.
	ErrModelContract = errors.New("model contract violation")
	// ErrDetectionParse indicates malformed raw detection model output.
	ErrDetectionParse = errors.New("detection parse error")
	// ErrInference indicates the external inference engine itself failed.
	ErrInference = errors.New("inference engine error")
)
