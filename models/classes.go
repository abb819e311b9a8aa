// Package models - Detection label sets for the vehicle removal pipeline.
package models

// COCOClassNames lists the 80 COCO labels in the ordering used by the
// detection model's class score block.
var COCOClassNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train",
	"truck", "boat", "traffic light", "fire hydrant", "stop sign",
	"parking meter", "bench", "bird", "cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag",
	"tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite",
	"baseball bat", "baseball glove", "skateboard", "surfboard",
	"tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot",
	"hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant",
	"bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote",
	"keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}

// VehicleClassIDs are the COCO class ids targeted for removal:
// car (2), motorcycle (3), and truck (7).
var VehicleClassIDs = []int{2, 3, 7}

// ClassName returns the COCO label for a class id, or "unknown" when the id
// falls outside the label set.
//
// Arguments:
//   - id: The class id reported by the model.
//
// Returns:
//   - string: The human-readable label.
func ClassName(id int) string {
	if id < 0 || id >= len(COCOClassNames) {
		return "unknown"
	}
	return COCOClassNames[id]
}

// ClassSet converts a list of class ids into a membership set for filtering.
//
// Arguments:
//   - ids: The class ids to include.
//
// Returns:
//   - map[int]bool: The membership set.
func ClassSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
