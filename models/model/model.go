// Package model - Shared definitions for the models consumed by the pipeline.
package model

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLOv8Seg is the name of the YOLOv8 segmentation detection model.
	ModelNameYOLOv8Seg Name = "yolov8seg"
	// ModelNameLaMa is the name of the LaMa generative inpainting model.
	ModelNameLaMa Name = "lama"
	// ModelNameMaskRenderer is the name of the optional standalone mask rendering model.
	ModelNameMaskRenderer Name = "maskrenderer"
)

// Tensor names fixed by the upstream model exports.
const (
	// DetectionInputName is the detection model's input tensor name.
	DetectionInputName = "images"
	// DetectionOutputName is the detection model's primary output tensor name,
	// shaped [1,116,8400].
	DetectionOutputName = "output0"
	// PrototypeOutputName is the detection model's prototype mask output tensor
	// name, shaped [1,32,160,160].
	PrototypeOutputName = "output1"
	// InpaintImageInputName is the inpainting model's image input tensor name.
	InpaintImageInputName = "image"
	// InpaintMaskInputName is the inpainting model's mask input tensor name.
	InpaintMaskInputName = "mask"
	// InpaintOutputName is the inpainting model's output tensor name.
	InpaintOutputName = "output"
)
