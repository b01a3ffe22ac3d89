package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// PartialSuffix marks a file whose download has not completed yet.
const PartialSuffix = ".partial"

// defaultChunkSize is the read size between cancellation checks.
const defaultChunkSize = 1 << 20

// progressInterval is the minimum number of bytes between progress callbacks.
const progressInterval = 100 * 1024

// DownloadOptions configures the download behavior.
type DownloadOptions struct {
	// URL to download from
	URL string
	// DestPath is the final local file path. Data is written to DestPath + PartialSuffix
	// and renamed once complete.
	DestPath string
	// ExpectedSHA256 is the optional expected SHA256 checksum (hex, 64 chars)
	ExpectedSHA256 string
	// Credential is sent as a bearer token when non-empty
	Credential string
	// HTTPClient is the HTTP client to use (creates default if nil)
	HTTPClient *http.Client
	// OnProgress is called with the resumed state first, then periodically (optional)
	OnProgress func(ProgressInfo)
	// Resume continues from an existing partial file
	Resume bool
	// ChunkSize is the read size between cancellation checks (default 1 MiB)
	ChunkSize int
}

// DownloadResult contains information about a completed download.
type DownloadResult struct {
	// BytesDownloaded is the number of bytes downloaded in this session
	BytesDownloaded int64
	// TotalBytes is the total file size
	TotalBytes int64
	// ResumedFrom is the size of the partial file the download continued from
	ResumedFrom int64
	// ChecksumValid is true if checksum was provided and verified
	ChecksumValid bool
	// Path is the final file path
	Path string
}

// Resumed reports whether the download continued a partial file.
func (r *DownloadResult) Resumed() bool {
	return r.ResumedFrom > 0
}

// DownloadWithProgress downloads a file with progress tracking and resume support.
//
// The body is copied in chunks; ctx is checked at the start of each chunk so a
// cancelled download stops at a chunk boundary and leaves the partial file for a
// later resume. Non-2xx responses return *HTTPStatusError.
func DownloadWithProgress(ctx context.Context, opts DownloadOptions) (*DownloadResult, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if opts.DestPath == "" {
		return nil, fmt.Errorf("DestPath is required")
	}

	client := opts.HTTPClient
	if client == nil {
		// No timeout for large downloads; ctx handles cancellation
		client = &http.Client{}
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	if err := os.MkdirAll(filepath.Dir(opts.DestPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	partialPath := opts.DestPath + PartialSuffix

	var resumeFrom int64
	if opts.Resume {
		if info, err := os.Stat(partialPath); err == nil {
			resumeFrom = info.Size()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", AppName+"-cli")
	if opts.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Credential)
	}
	if resumeFrom > 0 {
		req.Header.Set("Range", BuildRangeHeader(resumeFrom))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	var totalSize int64

	switch resp.StatusCode {
	case http.StatusOK:
		// Full content; any partial data is discarded
		totalSize = resp.ContentLength
		resumeFrom = 0

	case http.StatusPartialContent:
		if contentRange := resp.Header.Get("Content-Range"); contentRange != "" {
			r, parseErr := ParseContentRange(contentRange)
			if parseErr == nil && r.Start != resumeFrom {
				return nil, fmt.Errorf("server resumed at byte %d, expected %d", r.Start, resumeFrom)
			}
			if parseErr == nil && r.Total > 0 {
				totalSize = r.Total
			}
		}
		if totalSize <= 0 && resp.ContentLength > 0 {
			totalSize = resumeFrom + resp.ContentLength
		}

	case http.StatusRequestedRangeNotSatisfiable:
		// The partial file may already hold the whole body
		if resumeFrom > 0 && opts.ExpectedSHA256 != "" {
			if valid, _ := VerifyChecksum(partialPath, opts.ExpectedSHA256); valid {
				if err := os.Rename(partialPath, opts.DestPath); err != nil {
					return nil, fmt.Errorf("failed to finalize download: %w", err)
				}
				return &DownloadResult{
					TotalBytes:    resumeFrom,
					ResumedFrom:   resumeFrom,
					ChecksumValid: true,
					Path:          opts.DestPath,
				}, nil
			}
		}
		_ = os.Remove(partialPath)
		opts.Resume = false
		resp.Body.Close()
		return DownloadWithProgress(ctx, opts)

	default:
		return nil, &HTTPStatusError{URL: opts.URL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var file *os.File
	if resumeFrom > 0 {
		file, err = os.OpenFile(partialPath, os.O_APPEND|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(partialPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open destination file: %w", err)
	}
	defer file.Close()

	tracker := NewProgressTracker(totalSize)
	tracker.SetDownloaded(resumeFrom)
	if opts.OnProgress != nil {
		opts.OnProgress(tracker.Progress())
	}

	bytesWritten, err := copyChunks(ctx, file, resp.Body, chunkSize, tracker, opts.OnProgress)
	if err != nil {
		return nil, err
	}

	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	if totalSize > 0 && !tracker.IsComplete() {
		return nil, fmt.Errorf("download interrupted: got %d of %d bytes", tracker.Downloaded(), totalSize)
	}

	result := &DownloadResult{
		BytesDownloaded: bytesWritten,
		TotalBytes:      resumeFrom + bytesWritten,
		ResumedFrom:     resumeFrom,
		Path:            opts.DestPath,
	}

	if opts.ExpectedSHA256 != "" {
		valid, verifyErr := VerifyChecksum(partialPath, opts.ExpectedSHA256)
		if verifyErr != nil {
			return nil, fmt.Errorf("checksum verification failed: %w", verifyErr)
		}
		if !valid {
			actual, _ := ComputeSHA256(partialPath)
			_ = os.Remove(partialPath)
			return nil, &ChecksumMismatchError{Path: opts.DestPath, Expected: opts.ExpectedSHA256, Actual: actual}
		}
		result.ChecksumValid = true
	}

	if err := os.Rename(partialPath, opts.DestPath); err != nil {
		return nil, fmt.Errorf("failed to finalize download: %w", err)
	}

	return result, nil
}

// copyChunks copies src to dst, checking ctx before every chunk and reporting
// progress at most every progressInterval bytes and once at the end.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, chunkSize int, tracker *ProgressTracker, onProgress func(ProgressInfo)) (int64, error) {
	buf := make([]byte, chunkSize)
	var written, lastCallback int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("failed to write file: %w", err)
			}
			written += int64(n)
			tracker.Update(int64(n))

			if onProgress != nil && written-lastCallback >= progressInterval {
				onProgress(tracker.Progress())
				lastCallback = written
			}
		}

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return written, ctxErr
			}
			return written, fmt.Errorf("download interrupted: %w", readErr)
		}
	}

	if onProgress != nil && written != lastCallback {
		onProgress(tracker.Progress())
	}
	return written, nil
}
