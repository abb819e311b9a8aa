// Package images - Image definition for processing utilities.
package images

import "strings"

// Image represents an encoded input image with a format, data, width, and height.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The encoded bytes of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatUnknown is any format not recognized by the loader.
	FormatUnknown ImageFormat = ""
)

// FormatForPath guesses the image format from a file path's extension.
//
// Arguments:
//   - path: The file path or name.
//
// Returns:
//   - ImageFormat: The matching format, or FormatUnknown.
func FormatForPath(path string) ImageFormat {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return FormatJPEG
	case strings.HasSuffix(lower, ".png"):
		return FormatPNG
	case strings.HasSuffix(lower, ".webp"):
		return FormatWebP
	default:
		return FormatUnknown
	}
}
