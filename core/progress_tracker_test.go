package core

import (
	"math"
	"sync"
	"testing"
	"time"
)

func TestProgressTracker_Update(t *testing.T) {
	tracker := NewProgressTracker(1024)

	tracker.Update(100)
	tracker.Update(200)
	if tracker.Downloaded() != 300 {
		t.Errorf("Downloaded() = %d, want 300", tracker.Downloaded())
	}

	// Zero and negative updates are ignored
	tracker.Update(0)
	tracker.Update(-50)
	if tracker.Downloaded() != 300 {
		t.Errorf("Downloaded() = %d, want 300", tracker.Downloaded())
	}
}

func TestProgressTracker_SetDownloaded(t *testing.T) {
	tracker := NewProgressTracker(1024)

	tracker.SetDownloaded(500)
	if tracker.Downloaded() != 500 {
		t.Errorf("SetDownloaded(500) => Downloaded() = %d, want 500", tracker.Downloaded())
	}

	tracker.SetDownloaded(-100)
	if tracker.Downloaded() != 0 {
		t.Errorf("SetDownloaded(-100) => Downloaded() = %d, want 0", tracker.Downloaded())
	}
}

func TestProgressTracker_Progress(t *testing.T) {
	tests := []struct {
		name         string
		total        int64
		downloaded   int64
		wantPercent  float64
		wantFraction float64
	}{
		{"0%", 1000, 0, 0, 0},
		{"50%", 1000, 500, 50, 0.5},
		{"100%", 1000, 1000, 100, 1},
		{"over 100% is capped", 1000, 1500, 100, 1},
		{"unknown total", 0, 500, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewProgressTracker(tt.total)
			tracker.SetDownloaded(tt.downloaded)

			info := tracker.Progress()
			if math.Abs(info.Percent-tt.wantPercent) > 0.01 {
				t.Errorf("Percent = %.2f, want %.2f", info.Percent, tt.wantPercent)
			}
			if math.Abs(info.Fraction-tt.wantFraction) > 1e-9 {
				t.Errorf("Fraction = %v, want %v", info.Fraction, tt.wantFraction)
			}
		})
	}
}

func TestProgressTracker_Progress_FormattedValues(t *testing.T) {
	tracker := NewProgressTracker(2 * 1000 * 1000)
	tracker.SetDownloaded(1000 * 1000)

	info := tracker.Progress()
	if info.DownloadedFormatted != "1.0 MB" {
		t.Errorf("DownloadedFormatted = %q, want %q", info.DownloadedFormatted, "1.0 MB")
	}
	if info.TotalFormatted != "2.0 MB" {
		t.Errorf("TotalFormatted = %q, want %q", info.TotalFormatted, "2.0 MB")
	}

	unknown := NewProgressTracker(0).Progress()
	if unknown.TotalFormatted != "unknown" {
		t.Errorf("TotalFormatted = %q, want %q", unknown.TotalFormatted, "unknown")
	}
}

func TestProgressTracker_IsComplete(t *testing.T) {
	tracker := NewProgressTracker(100)
	if tracker.IsComplete() {
		t.Error("IsComplete() = true before any download")
	}
	tracker.Update(100)
	if !tracker.IsComplete() {
		t.Error("IsComplete() = false after full download")
	}
	if NewProgressTracker(0).IsComplete() {
		t.Error("IsComplete() = true for unknown total")
	}
}

func TestProgressTracker_ThreadSafety(t *testing.T) {
	tracker := NewProgressTracker(10000)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Update(10)
				_ = tracker.Progress()
			}
		}()
	}
	wg.Wait()

	if tracker.Downloaded() != 10000 {
		t.Errorf("Downloaded() = %d, want 10000", tracker.Downloaded())
	}
}

func TestProgressTracker_SpeedCalculation(t *testing.T) {
	tracker := NewProgressTracker(10000)

	for i := 0; i < 5; i++ {
		tracker.Update(1000)
		time.Sleep(100 * time.Millisecond)
	}
	tracker.Update(1)

	info := tracker.Progress()
	if info.SpeedBytesPerSec <= 0 {
		t.Errorf("SpeedBytesPerSec = %v, want > 0", info.SpeedBytesPerSec)
	}
}

func TestAggregateProgress_WeightedByBytes(t *testing.T) {
	var got []float64
	agg := NewAggregateProgress(map[string]int64{"small": 100, "large": 300}, func(f float64) {
		got = append(got, f)
	})

	agg.Update("small", 100)
	agg.Update("large", 150)
	agg.Complete("large", 300)

	want := []float64{0.25, 0.625, 1}
	if len(got) != len(want) {
		t.Fatalf("reports = %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("report[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAggregateProgress_NeverDecreases(t *testing.T) {
	var got []float64
	agg := NewAggregateProgress(map[string]int64{"a": 100}, func(f float64) {
		got = append(got, f)
	})

	agg.Update("a", 60)
	// Learning about a second file lowers the raw fraction
	agg.SetSize("b", 100)
	agg.Update("b", 10)
	// A server restarting the body lowers it further
	agg.Update("a", 0)
	agg.Update("a", 100)
	agg.Update("b", 100)

	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Errorf("report[%d] = %v decreased from %v", i, got[i], got[i-1])
		}
	}
	for _, f := range got {
		if f < 0 || f > 1 {
			t.Errorf("report %v outside [0,1]", f)
		}
	}
	if got[len(got)-1] != 1 {
		t.Errorf("last report = %v, want 1", got[len(got)-1])
	}
}

func TestAggregateProgress_PresetDoesNotReport(t *testing.T) {
	calls := 0
	agg := NewAggregateProgress(map[string]int64{"a": 100, "b": 100}, func(float64) { calls++ })

	agg.Preset("a", 100)
	agg.Preset("b", 50)
	if calls != 0 {
		t.Errorf("calls = %d after Preset, want 0", calls)
	}

	agg.Update("b", 50)
	if math.Abs(agg.Last()-0.75) > 1e-9 {
		t.Errorf("Last() = %v, want 0.75", agg.Last())
	}
}

func TestAggregateProgress_UnknownSizeIsNotComplete(t *testing.T) {
	var got []float64
	agg := NewAggregateProgress(map[string]int64{"a": 0, "b": 100}, func(f float64) {
		got = append(got, f)
	})

	// A resumed partial file with no reported total
	agg.Preset("a", 500)
	agg.Update("b", 100)
	if agg.Last() >= 1 {
		t.Fatalf("Last() = %v with a.bin size unknown, want < 1", agg.Last())
	}

	agg.SetSize("a", 1000)
	agg.Update("a", 900)
	if agg.Last() >= 1 {
		t.Fatalf("Last() = %v with a.bin incomplete, want < 1", agg.Last())
	}

	agg.Complete("a", 1000)
	if agg.Last() != 1 {
		t.Errorf("Last() = %v after all files complete, want 1", agg.Last())
	}
}

func TestAggregateProgress_UnknownFileFinishedEarly(t *testing.T) {
	agg := NewAggregateProgress(map[string]int64{"a": 0, "b": 0}, nil)

	agg.Complete("a", 100)
	if math.Abs(agg.Last()-0.5) > 1e-9 {
		t.Errorf("Last() = %v after one of two files, want 0.5", agg.Last())
	}
}
