package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ModelManager makes model and LoRA weights available in a local cache directory,
// downloading missing files from the Hub with resume and retries.
type ModelManager struct {
	// cacheDir is the directory where repositories are stored
	cacheDir string
	// endpoint is the Hub base URL
	endpoint string
	// httpClient is the HTTP client for downloads
	httpClient *http.Client
	// maxRetries is the number of download attempts per file
	maxRetries int
	// baseRetryDelay is the initial delay between retries (doubles each attempt)
	baseRetryDelay time.Duration
	// diskSpaceBuffer is the percentage buffer for disk space checks
	diskSpaceBuffer int
	// chunkSize is the read size between cancellation checks
	chunkSize int
	// onFile receives per-file transfer details (optional)
	onFile func(file string, info ProgressInfo)
}

// ModelManagerOption is a functional option for configuring ModelManager.
type ModelManagerOption func(*ModelManager)

// WithMaxRetries sets the maximum number of download attempts per file.
func WithMaxRetries(n int) ModelManagerOption {
	return func(mm *ModelManager) {
		if n > 0 {
			mm.maxRetries = n
		}
	}
}

// WithBaseRetryDelay sets the base delay between retry attempts.
func WithBaseRetryDelay(d time.Duration) ModelManagerOption {
	return func(mm *ModelManager) {
		if d > 0 {
			mm.baseRetryDelay = d
		}
	}
}

// WithDiskSpaceBuffer sets the disk space buffer percentage.
func WithDiskSpaceBuffer(percent int) ModelManagerOption {
	return func(mm *ModelManager) {
		if percent >= 0 {
			mm.diskSpaceBuffer = percent
		}
	}
}

// WithEndpoint sets the Hub base URL.
func WithEndpoint(endpoint string) ModelManagerOption {
	return func(mm *ModelManager) {
		if endpoint != "" {
			mm.endpoint = endpoint
		}
	}
}

// WithChunkSize sets the read size between cancellation checks.
func WithChunkSize(n int) ModelManagerOption {
	return func(mm *ModelManager) {
		if n > 0 {
			mm.chunkSize = n
		}
	}
}

// WithFileProgress sets a callback receiving byte counts, speed and ETA of the
// file being downloaded. It is called alongside the aggregate fraction.
func WithFileProgress(fn func(file string, info ProgressInfo)) ModelManagerOption {
	return func(mm *ModelManager) {
		mm.onFile = fn
	}
}

// NewModelManager creates a ModelManager storing weights under cacheDir.
// If httpClient is nil a client without timeout is used; ctx handles cancellation.
//
// Default behavior:
//   - endpoint from HF_ENDPOINT, else https://huggingface.co
//   - 3 attempts per file with exponential backoff (2s, 4s)
//   - 10% disk space buffer
func NewModelManager(cacheDir string, httpClient *http.Client, opts ...ModelManagerOption) *ModelManager {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	mm := &ModelManager{
		cacheDir:        cacheDir,
		endpoint:        GetEnvOrDefault("HF_ENDPOINT", DefaultHubEndpoint),
		httpClient:      httpClient,
		maxRetries:      3,
		baseRetryDelay:  2 * time.Second,
		diskSpaceBuffer: DefaultBufferPercent,
		chunkSize:       defaultChunkSize,
	}

	for _, opt := range opts {
		opt(mm)
	}

	return mm
}

// AssetDir returns the local directory of a Hub asset. Does not verify it exists.
func (mm *ModelManager) AssetDir(ref AssetRef) string {
	revision := ref.Revision
	if revision == "" {
		revision = DefaultRevision
	}
	return filepath.Join(mm.cacheDir, RepoDirName(ref.Repo), revision)
}

// LoRAAsset resolves a LoRA reference: an existing local path is used as is,
// anything else is treated as a Hub reference.
func (mm *ModelManager) LoRAAsset(ref string) (AssetRef, error) {
	if _, err := os.Stat(ref); err == nil {
		return AssetRef{Name: ref, LocalPath: ref}, nil
	}
	return RemoteLoRAAsset(ref)
}

// EnsureLocal makes an asset available locally and returns its path: the file
// itself for single-file assets, otherwise the asset directory.
//
// onProgress (optional) receives the aggregate fraction of the asset's bytes
// present locally. Values never decrease and stay within [0,1]. When everything is
// already cached no request is made and onProgress is called once with 1.0. When a
// partial download exists, the first call reports the fraction already present.
//
// Failures are returned as *AssetUnavailableError.
func (mm *ModelManager) EnsureLocal(ctx context.Context, ref AssetRef, credential string, onProgress func(float64)) (string, error) {
	if ref.IsLocal() {
		if _, err := os.Stat(ref.LocalPath); err != nil {
			return "", &AssetUnavailableError{Asset: ref.Name, Cause: err}
		}
		if onProgress != nil {
			onProgress(1)
		}
		return ref.LocalPath, nil
	}
	if ref.Repo == "" {
		return "", &AssetUnavailableError{Asset: ref.Name, Cause: errors.New("no repository or local path")}
	}

	files := ref.Files
	if len(files) == 0 {
		listed, err := mm.listFiles(ctx, ref, credential)
		if err != nil {
			return "", &AssetUnavailableError{Asset: ref.Name, Cause: err}
		}
		files = listed
	}

	dir := mm.AssetDir(ref)
	sizes := make(map[string]int64, len(files))
	present := make(map[string]int64, len(files))
	var missing []AssetFile

	// Step 1: find what is already cached
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		exists, size, err := checkFileExists(path, f.SHA256)
		if err != nil {
			return "", &AssetUnavailableError{Asset: ref.Name, File: f.Name, Cause: err}
		}
		if exists {
			sizes[f.Name] = size
			present[f.Name] = size
			continue
		}
		missing = append(missing, f)
	}

	if len(missing) == 0 {
		if onProgress != nil {
			onProgress(1)
		}
		return assetPath(dir, files), nil
	}

	// Step 2: learn the sizes of missing files
	var remaining int64
	for _, f := range missing {
		size := f.SizeBytes
		if size <= 0 {
			size = mm.headSize(ctx, ResolveHubURL(mm.endpoint, ref.Repo, ref.Revision, f.Name), credential)
		}
		sizes[f.Name] = size

		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		if info, err := os.Stat(path + PartialSuffix); err == nil {
			present[f.Name] = info.Size()
		}
		if size > present[f.Name] {
			remaining += size - present[f.Name]
		}
	}

	// Step 3: check disk space
	if remaining <= 0 {
		remaining = ref.ApproxSizeBytes
	}
	if remaining > 0 {
		if err := CheckDiskSpaceForDownload(mm.cacheDir, remaining, mm.diskSpaceBuffer); err != nil {
			var dsErr *DiskSpaceError
			if errors.As(err, &dsErr) {
				return "", &AssetUnavailableError{Asset: ref.Name, Cause: err}
			}
			// Free space could not be determined; let the download find out.
		}
	}

	// Step 4: download missing files
	agg := NewAggregateProgress(sizes, onProgress)
	for name, n := range present {
		agg.Preset(name, n)
	}

	for _, f := range missing {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := mm.downloadFile(ctx, ref, f, path, credential, agg); err != nil {
			return "", &AssetUnavailableError{Asset: ref.Name, File: f.Name, Cause: err}
		}
	}

	agg.Finish()
	return assetPath(dir, files), nil
}

// assetPath returns the single file of a one-file asset, otherwise dir.
func assetPath(dir string, files []AssetFile) string {
	if len(files) == 1 {
		return filepath.Join(dir, filepath.FromSlash(files[0].Name))
	}
	return dir
}

// listFiles lists repository files when the asset does not name them.
func (mm *ModelManager) listFiles(ctx context.Context, ref AssetRef, credential string) ([]AssetFile, error) {
	names, err := ListRepoFiles(ctx, mm.httpClient, mm.endpoint, ref.Repo, ref.Revision, ref.FileSuffix, credential)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no %q files in %s", ref.FileSuffix, ref.Repo)
	}
	if ref.Single {
		names = names[:1]
	}

	files := make([]AssetFile, len(names))
	for i, name := range names {
		files[i] = AssetFile{Name: name}
	}
	return files, nil
}

// headSize asks the server for a file's size. Returns 0 when unknown.
func (mm *ModelManager) headSize(ctx context.Context, url, credential string) int64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := mm.httpClient.Do(req)
	if err != nil {
		return 0
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0
	}
	// The Hub reports the size of LFS files separately from the redirect body.
	if linked := resp.Header.Get("X-Linked-Size"); linked != "" {
		if n, err := strconv.ParseInt(linked, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	if resp.ContentLength > 0 {
		return resp.ContentLength
	}
	return 0
}

// checkFileExists reports whether a complete file is present, verifying the
// checksum when one is given. It also returns the file size.
func checkFileExists(path string, expectedChecksum string) (bool, int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return false, 0, fmt.Errorf("path is a directory: %s", path)
	}

	if expectedChecksum == "" {
		return true, info.Size(), nil
	}

	valid, err := VerifyChecksum(path, expectedChecksum)
	if err != nil {
		return false, 0, fmt.Errorf("verify checksum: %w", err)
	}
	if !valid {
		// Corrupt file; download again
		if err := os.Remove(path); err != nil {
			return false, 0, fmt.Errorf("remove corrupt file: %w", err)
		}
		return false, 0, nil
	}
	return true, info.Size(), nil
}

// downloadFile downloads one file with retries and exponential backoff.
func (mm *ModelManager) downloadFile(ctx context.Context, ref AssetRef, f AssetFile, destPath, credential string, agg *AggregateProgress) error {
	url := ResolveHubURL(mm.endpoint, ref.Repo, ref.Revision, f.Name)

	var lastErr error
	for attempt := 1; attempt <= mm.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if attempt > 1 {
			delay := mm.baseRetryDelay * time.Duration(1<<(attempt-2))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := DownloadWithProgress(ctx, DownloadOptions{
			URL:            url,
			DestPath:       destPath,
			ExpectedSHA256: f.SHA256,
			Credential:     credential,
			HTTPClient:     mm.httpClient,
			Resume:         true,
			ChunkSize:      mm.chunkSize,
			OnProgress: func(p ProgressInfo) {
				agg.SetSize(f.Name, p.Total)
				if mm.onFile != nil {
					mm.onFile(f.Name, p)
				}
				agg.Update(f.Name, p.Downloaded)
			},
		})
		if err == nil {
			agg.Complete(f.Name, result.TotalBytes)
			return nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("download failed after %d attempts: %w", mm.maxRetries, lastErr)
}

// isRetryableError determines if a download error is worth retrying.
// Network errors and server errors are retryable; cancellation, checksum
// mismatches and client errors are not.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var checksumErr *ChecksumMismatchError
	if errors.As(err, &checksumErr) {
		return false
	}
	var diskErr *DiskSpaceError
	if errors.As(err, &diskErr) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	return true
}
