// Package imagegen runs the flux generation pipeline end to end: asset
// acquisition, denoising, decoding and writing the result to a free path.
//
// output_path.go picks the file name an image is written to. Existing files
// are never overwritten.
package imagegen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ResolveOutputPath returns path if nothing exists there, otherwise the first
// free candidate of the form <base>_<n><ext> with n starting at 1.
//
// When the base name already ends in "_<digits>" that suffix is dropped before
// numbering, so an existing "out_3.png" yields "out_1.png" rather than
// "out_4.png", and "out__3.png" yields "out_1.png".
//
// The check is not atomic; SaveImage refuses to overwrite if another process
// creates the file first.
func ResolveOutputPath(path string) (string, error) {
	exists, err := pathExists(path)
	if err != nil || !exists {
		return path, err
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := stripNumericSuffix(strings.TrimSuffix(filepath.Base(path), ext))

	for counter := 1; ; counter++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, counter, ext))
		exists, err := pathExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

// stripNumericSuffix drops the last underscore-separated field of name when it
// is numeric. Fields are non-empty, so runs of underscores count as one
// separator and the remaining fields are rejoined with single underscores:
// "out__3" and "out_3_" both become "out".
func stripNumericSuffix(name string) string {
	if !strings.Contains(name, "_") {
		return name
	}
	fields := strings.FieldsFunc(name, func(r rune) bool { return r == '_' })
	if len(fields) == 0 || !isDigits(fields[len(fields)-1]) {
		return name
	}
	return strings.Join(fields[:len(fields)-1], "_")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("unable to check output path %s: %w", path, err)
}
