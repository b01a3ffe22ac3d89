package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GenerationMetrics summarizes one generation run for structured logging.
//
// Example:
//
//	logger.Info("generation complete", logging.GenerationFields(metrics))
type GenerationMetrics struct {
	Variant  string
	Mode     string
	Width    int
	Height   int
	Steps    int
	Seed     uint64
	Duration time.Duration

	// StepsPerSecond is Steps / Duration.Seconds()
	StepsPerSecond float64
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m GenerationMetrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("variant", m.Variant)
	if m.Mode != "" {
		enc.AddString("mode", m.Mode)
	}
	enc.AddInt("width", m.Width)
	enc.AddInt("height", m.Height)
	enc.AddInt("steps", m.Steps)
	enc.AddUint64("seed", m.Seed)
	enc.AddInt64("duration_ms", m.Duration.Milliseconds())
	enc.AddFloat64("steps_per_second", m.StepsPerSecond)
	return nil
}

// GenerationFields wraps metrics as a nested "generation" field.
func GenerationFields(m GenerationMetrics) zap.Field {
	return zap.Object("generation", m)
}

// StepTimer measures denoising steps.
type StepTimer struct {
	start    time.Time
	lastStep time.Time
	steps    int
	now      func() time.Time
}

// StartStepTimer starts timing a denoising loop.
func StartStepTimer() *StepTimer {
	return newStepTimer(time.Now)
}

func newStepTimer(now func() time.Time) *StepTimer {
	t := now()
	return &StepTimer{start: t, lastStep: t, now: now}
}

// Step records a completed step and returns its duration.
func (t *StepTimer) Step() time.Duration {
	now := t.now()
	d := now.Sub(t.lastStep)
	t.lastStep = now
	t.steps++
	return d
}

// Elapsed returns the time since the timer started.
func (t *StepTimer) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// Metrics fills Steps, Duration and StepsPerSecond of base from the timer.
func (t *StepTimer) Metrics(base GenerationMetrics) GenerationMetrics {
	base.Steps = t.steps
	base.Duration = t.Elapsed()
	base.StepsPerSecond = CalculateStepsPerSecond(t.steps, base.Duration)
	return base
}

// CalculateStepsPerSecond returns steps / d, or 0 for a non-positive duration.
func CalculateStepsPerSecond(steps int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(steps) / d.Seconds()
}

// DownloadFields returns fields describing a finished asset download.
func DownloadFields(asset string, bytes int64, d time.Duration) []zap.Field {
	return []zap.Field{
		zap.String("asset", asset),
		zap.Int64("bytes", bytes),
		zap.Duration("duration", d),
	}
}
