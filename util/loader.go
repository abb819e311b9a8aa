// Package util - Input image loading.
package util

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"

	"github.com/xamde/AutoKorrektur/images"
	"github.com/xamde/AutoKorrektur/models/model"
)

// ImageFile represents one input image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Image is the encoded image record.
	Image images.Image
}

// LoadDirectoryImageFiles reads all supported image files from a directory,
// ordered by file name for deterministic batch processing.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: The loaded files.
//   - error: Error if the directory cannot be read.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading image directory %s", dir)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format := images.FormatForPath(entry.Name())
		if format == images.FormatUnknown {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, errors.Wrapf(readErr, "reading image file %s", path)
		}
		files = append(files, ImageFile{
			Path:  path,
			Image: newImageRecord(format, data),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// LoadImageFile reads a single image file.
//
// Arguments:
//   - path: The image file path.
//
// Returns:
//   - ImageFile: The loaded file.
//   - error: model.ErrInvalidImage for unsupported extensions.
func LoadImageFile(path string) (ImageFile, error) {
	format := images.FormatForPath(path)
	if format == images.FormatUnknown {
		return ImageFile{}, errors.Wrapf(model.ErrInvalidImage,
			"unsupported image file %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageFile{}, errors.Wrapf(err, "reading image file %s", path)
	}
	return ImageFile{Path: path, Image: newImageRecord(format, data)}, nil
}

// newImageRecord wraps encoded bytes with their format and header dimensions.
// Dimensions stay zero when the header cannot be parsed; Decode surfaces the
// real error later.
func newImageRecord(format images.ImageFormat, data []byte) images.Image {
	width, height := imageDimensions(format, data)
	return images.Image{Format: format, Data: data, Width: width, Height: height}
}

// imageDimensions reads the encoded image's dimensions from its header.
func imageDimensions(format images.ImageFormat, data []byte) (int, int) {
	reader := bytes.NewReader(data)
	var config image.Config
	var err error
	switch format {
	case images.FormatJPEG:
		config, err = jpeg.DecodeConfig(reader)
	case images.FormatPNG:
		config, err = png.DecodeConfig(reader)
	case images.FormatWebP:
		config, err = webp.DecodeConfig(reader)
	default:
		config, _, err = image.DecodeConfig(reader)
	}
	if err != nil {
		return 0, 0
	}
	return config.Width, config.Height
}

// Decode decodes an encoded image record into a raster image.
//
// Arguments:
//   - img: The encoded image record.
//
// Returns:
//   - image.Image: The decoded raster.
//   - error: model.ErrInvalidImage for empty or undecodable data.
func Decode(img images.Image) (image.Image, error) {
	if len(img.Data) == 0 {
		return nil, errors.Wrap(model.ErrInvalidImage, "image data is empty")
	}

	reader := bytes.NewReader(img.Data)
	var decoded image.Image
	var err error
	switch img.Format {
	case images.FormatJPEG:
		decoded, err = jpeg.Decode(reader)
	case images.FormatPNG:
		decoded, err = png.Decode(reader)
	case images.FormatWebP:
		decoded, err = webp.Decode(reader)
	default:
		decoded, _, err = image.Decode(reader)
	}
	if err != nil {
		return nil, errors.Wrapf(model.ErrInvalidImage, "decoding image: %v", err)
	}
	return decoded, nil
}
