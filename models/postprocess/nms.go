// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/xamde/AutoKorrektur/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap above which the lower-scoring of two
	// detections is suppressed.
	IoUThreshold float32 `json:"iouThreshold" yaml:"iouThreshold"`
	// MaxPerClass caps how many detections of a single class are kept.
	// Zero or negative means no cap.
	MaxPerClass int `json:"maxPerClass" yaml:"maxPerClass"`
}

// ApplyGreedyNMS performs greedy class-agnostic Non-Maximum Suppression.
//
// Detections are ordered by descending score (ties broken by original row
// index, so the output is deterministic), then each detection is kept unless
// its IoU with an already-kept detection exceeds the configured threshold.
// Identical boxes have IoU 1, so the lower-scoring duplicate is always
// dropped. After suppression the per-class cap is applied in kept order.
//
// Arguments:
//   - detections: The candidate detections, in any order.
//   - config: The suppression parameters.
//
// Returns:
//   - []Result: The ordered slice of kept detections. Nil when no
//     detections are provided.
func ApplyGreedyNMS(detections []Result, config *NMSConfig) []Result {
	n := len(detections)
	if n == 0 {
		return nil
	}

	sorted := make([]Result, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Row < sorted[j].Row
	})

	kept := make([]Result, 0, n)
	perClass := make(map[int]int)

	for i := 0; i < n; i++ {
		candidate := sorted[i]

		suppressed := false
		for k := range kept {
			if images.CalculateIoU(kept[k].Box, candidate.Box) > config.IoUThreshold {
				suppressed = true
				break
			}
		}
		if suppressed {
			continue
		}

		if config.MaxPerClass > 0 && perClass[candidate.Class] >= config.MaxPerClass {
			continue
		}

		kept = append(kept, candidate)
		perClass[candidate.Class]++
	}

	return kept
}
