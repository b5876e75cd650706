// Package util - Loading image files for batch photo counting.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SupportedImageExtensions lists the file extensions loaded as images.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the trailing number of the file name ("frame-12.jpg" is 12), or -1 when the name
	// carries none.
	Frame int
}

// IsImageFile reports whether path has a supported image extension.
func IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The image files, numbered frames first in frame order, then the rest by name.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() || !IsImageFile(file.Name()) {
			continue
		}
		img, err := LoadImageFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	sort.SliceStable(images, func(i, j int) bool {
		a, b := images[i], images[j]
		if (a.Frame < 0) != (b.Frame < 0) {
			return a.Frame >= 0
		}
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return a.Path < b.Path
	})

	return images, nil
}

// LoadImageFile reads one image file.
func LoadImageFile(path string) (ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageFile{}, errors.Wrapf(err, "read image %s", path)
	}
	return ImageFile{
		Path:  path,
		Data:  data,
		Frame: frameNumber(filepath.Base(path)),
	}, nil
}

// LoadImagePaths loads every path, expanding directories with LoadDirectoryImageFiles.
func LoadImagePaths(paths ...string) ([]ImageFile, error) {
	var images []ImageFile
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", p)
		}
		if info.IsDir() {
			dirImages, err := LoadDirectoryImageFiles(p)
			if err != nil {
				return nil, err
			}
			images = append(images, dirImages...)
			continue
		}
		img, err := LoadImageFile(p)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func frameNumber(name string) int {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	i := len(stem)
	for i > 0 && stem[i-1] >= '0' && stem[i-1] <= '9' {
		i--
	}
	if i == len(stem) {
		return -1
	}
	frame, err := strconv.Atoi(stem[i:])
	if err != nil {
		return -1
	}
	return frame
}
