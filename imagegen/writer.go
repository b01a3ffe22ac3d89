package imagegen

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"flux_cli/fluxruntime"
)

// ErrSaveFailed matches every error returned by SaveImage.
var ErrSaveFailed = errors.New("failed to save image")

// SaveError reports a failed image write.
type SaveError struct {
	Path  string
	Cause error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save image to %s: %v", e.Path, e.Cause)
}

func (e *SaveError) Unwrap() error {
	return e.Cause
}

// Is matches ErrSaveFailed.
func (e *SaveError) Is(target error) bool {
	return target == ErrSaveFailed
}

// SaveImage encodes img as PNG and writes it to path, creating the parent
// directory if needed. An existing file at path is an error; there is no retry.
func SaveImage(img image.Image, path string) error {
	data, err := fluxruntime.EncodeToPNG(img)
	if err != nil {
		return &SaveError{Path: path, Cause: err}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &SaveError{Path: path, Cause: err}
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return &SaveError{Path: path, Cause: err}
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return &SaveError{Path: path, Cause: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return &SaveError{Path: path, Cause: err}
	}
	return nil
}
