package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// DefaultBufferPercent is the extra free space required on top of a download's size.
const DefaultBufferPercent = 10

// DiskSpaceInfo contains information about disk space.
type DiskSpaceInfo struct {
	// Path that was checked
	Path string
	// Total disk space in bytes
	Total int64
	// Free disk space in bytes available to the current user
	Free int64
	// Used disk space in bytes
	Used int64
	// Human-readable free
	FreeFormatted string
}

// DiskSpaceError indicates a disk space problem.
type DiskSpaceError struct {
	Path      string
	Required  int64
	Available int64
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
		e.Path, humanize.Bytes(uint64(e.Required)), humanize.Bytes(uint64(e.Available)))
}

// GetDiskSpace returns disk space information for the filesystem containing path.
// A path that does not exist yet is resolved to its nearest existing parent.
func GetDiskSpace(path string) (*DiskSpaceInfo, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if parent := filepath.Dir(path); parent != path {
				return GetDiskSpace(parent)
			}
		}
		return nil, fmt.Errorf("cannot access path %s: %w", path, err)
	}
	if !info.IsDir() {
		path = filepath.Dir(path)
	}

	total, free, err := getDiskSpace(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk space for %s: %w", path, err)
	}

	return &DiskSpaceInfo{
		Path:          path,
		Total:         total,
		Free:          free,
		Used:          total - free,
		FreeFormatted: humanize.Bytes(uint64(free)),
	}, nil
}

// CheckDiskSpace returns a *DiskSpaceError when path has less than requiredBytes free.
func CheckDiskSpace(path string, requiredBytes int64) error {
	info, err := GetDiskSpace(path)
	if err != nil {
		return err
	}
	if info.Free < requiredBytes {
		return &DiskSpaceError{Path: path, Required: requiredBytes, Available: info.Free}
	}
	return nil
}

// CheckDiskSpaceForDownload checks room for sizeBytes plus bufferPercent extra.
func CheckDiskSpaceForDownload(path string, sizeBytes int64, bufferPercent int) error {
	required := sizeBytes + sizeBytes*int64(bufferPercent)/100
	return CheckDiskSpace(path, required)
}
