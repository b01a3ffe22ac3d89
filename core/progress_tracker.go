package core

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ProgressInfo contains the current download progress of one file.
type ProgressInfo struct {
	// Total bytes to download (0 if unknown)
	Total int64
	// Downloaded bytes so far, including any resumed prefix
	Downloaded int64
	// Percentage complete (0-100, or -1 if total is unknown)
	Percent float64
	// Fraction complete in [0,1] (0 if total is unknown)
	Fraction float64
	// Download speed in bytes per second
	SpeedBytesPerSec float64
	// Speed formatted as human-readable string (e.g., "5.2 MB/s")
	SpeedFormatted string
	// Estimated time remaining (0 if unknown or complete)
	ETA time.Duration
	// Elapsed time since download started
	Elapsed time.Duration
	// Human-readable downloaded size
	DownloadedFormatted string
	// Human-readable total size (or "unknown" if 0)
	TotalFormatted string
}

// ProgressTracker tracks download progress with thread-safe updates.
// Speed is an exponential moving average over updates at least 100ms apart.
type ProgressTracker struct {
	mu sync.RWMutex

	total          int64
	downloaded     int64
	startTime      time.Time
	lastUpdateTime time.Time
	lastDownloaded int64
	speedAvg       float64
	speedAlpha     float64
}

// NewProgressTracker creates a new progress tracker.
// total is the total bytes to download (use 0 if unknown).
func NewProgressTracker(total int64) *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		total:          total,
		startTime:      now,
		lastUpdateTime: now,
		speedAlpha:     0.3,
	}
}

// Update adds n bytes to the downloaded count.
func (p *ProgressTracker) Update(n int64) {
	if n <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.downloaded += n
	p.updateSpeed()
}

// SetDownloaded sets the absolute downloaded byte count, e.g. the size of a resumed
// partial file. It does not count towards speed.
func (p *ProgressTracker) SetDownloaded(downloaded int64) {
	if downloaded < 0 {
		downloaded = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.downloaded = downloaded
	p.lastDownloaded = downloaded
}

// updateSpeed recalculates the download speed.
// Must be called with mu held.
func (p *ProgressTracker) updateSpeed() {
	now := time.Now()
	elapsed := now.Sub(p.lastUpdateTime).Seconds()
	if elapsed < 0.1 {
		return
	}

	instantSpeed := float64(p.downloaded-p.lastDownloaded) / elapsed
	if p.speedAvg == 0 {
		p.speedAvg = instantSpeed
	} else {
		p.speedAvg = p.speedAlpha*instantSpeed + (1-p.speedAlpha)*p.speedAvg
	}

	p.lastUpdateTime = now
	p.lastDownloaded = p.downloaded
}

// Progress returns the current progress information.
func (p *ProgressTracker) Progress() ProgressInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info := ProgressInfo{
		Total:               p.total,
		Downloaded:          p.downloaded,
		Percent:             -1,
		SpeedBytesPerSec:    p.speedAvg,
		SpeedFormatted:      humanize.Bytes(uint64(p.speedAvg)) + "/s",
		Elapsed:             time.Since(p.startTime),
		DownloadedFormatted: humanize.Bytes(uint64(p.downloaded)),
		TotalFormatted:      "unknown",
	}

	if p.total > 0 {
		info.Fraction = float64(p.downloaded) / float64(p.total)
		if info.Fraction > 1 {
			info.Fraction = 1
		}
		info.Percent = info.Fraction * 100
		info.TotalFormatted = humanize.Bytes(uint64(p.total))

		if p.speedAvg > 0 && p.downloaded < p.total {
			remaining := float64(p.total - p.downloaded)
			info.ETA = time.Duration(remaining / p.speedAvg * float64(time.Second))
		}
	}

	return info
}

// Downloaded returns the current downloaded byte count.
func (p *ProgressTracker) Downloaded() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.downloaded
}

// Total returns the total bytes to download.
func (p *ProgressTracker) Total() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}

// IsComplete returns true if download is complete (downloaded >= total).
// Returns false if total is unknown (0).
func (p *ProgressTracker) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total > 0 && p.downloaded >= p.total
}

// AggregateProgress combines per-file progress into one fraction weighted by byte size.
// Reported values never decrease and stay within [0,1].
//
// A file whose size is not known yet weighs as much as the average known file
// and counts as zero until it completes, so the fraction stays below 1 while any
// file is unfinished.
type AggregateProgress struct {
	mu       sync.Mutex
	sizes    map[string]int64
	known    map[string]bool
	done     map[string]int64
	complete map[string]bool
	last     float64
	onUpdate func(float64)
}

// NewAggregateProgress creates an aggregate over the given files. A size of 0 means
// unknown; it is filled in by SetSize once the server reports it.
func NewAggregateProgress(sizes map[string]int64, onUpdate func(float64)) *AggregateProgress {
	a := &AggregateProgress{
		sizes:    make(map[string]int64, len(sizes)),
		known:    make(map[string]bool, len(sizes)),
		done:     make(map[string]int64, len(sizes)),
		complete: make(map[string]bool, len(sizes)),
		onUpdate: onUpdate,
	}
	for name, size := range sizes {
		a.sizes[name] = size
		a.known[name] = size > 0
	}
	return a
}

// SetSize records the byte size of a file.
func (a *AggregateProgress) SetSize(name string, size int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if size > 0 {
		a.sizes[name] = size
		a.known[name] = true
	}
}

// Update records the downloaded byte count of a file and reports the aggregate.
func (a *AggregateProgress) Update(name string, downloaded int64) {
	a.mu.Lock()
	a.recordLocked(name, downloaded)
	fraction := a.fractionLocked()
	a.mu.Unlock()

	a.report(fraction)
}

// Preset records bytes already present for a file without reporting.
func (a *AggregateProgress) Preset(name string, downloaded int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recordLocked(name, downloaded)
}

func (a *AggregateProgress) recordLocked(name string, downloaded int64) {
	if _, ok := a.sizes[name]; !ok {
		a.sizes[name] = 0
	}
	a.done[name] = downloaded
	if a.known[name] && a.sizes[name] < downloaded {
		a.sizes[name] = downloaded
	}
}

// Complete marks a file as fully present and reports the aggregate.
func (a *AggregateProgress) Complete(name string, size int64) {
	a.mu.Lock()
	if size > 0 {
		a.sizes[name] = size
	}
	if a.sizes[name] <= 0 {
		// Empty files still count
		a.sizes[name] = 1
	}
	a.known[name] = true
	a.complete[name] = true
	a.done[name] = a.sizes[name]
	fraction := a.fractionLocked()
	a.mu.Unlock()

	a.report(fraction)
}

// Finish reports 1.0.
func (a *AggregateProgress) Finish() {
	a.report(1)
}

// Last returns the most recently reported fraction.
func (a *AggregateProgress) Last() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *AggregateProgress) fractionLocked() float64 {
	var knownTotal, knownCount int64
	for name, size := range a.sizes {
		if a.known[name] {
			knownTotal += size
			knownCount++
		}
	}
	placeholder := int64(1)
	if knownCount > 0 && knownTotal > 0 {
		placeholder = max(knownTotal/knownCount, 1)
	}

	var total, done int64
	for name, size := range a.sizes {
		switch {
		case a.complete[name]:
			total += size
			done += size
		case a.known[name]:
			total += size
			done += min(a.done[name], size)
		default:
			total += placeholder
		}
	}
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total)
}

func (a *AggregateProgress) report(fraction float64) {
	a.mu.Lock()
	fraction = max(min(fraction, 1), 0, a.last)
	a.last = fraction
	a.mu.Unlock()

	if a.onUpdate != nil {
		a.onUpdate(fraction)
	}
}
