package fluxruntime

import "fmt"

// GenerationParameters holds parameters for one generation run.
type GenerationParameters struct {
	Prompt   string  // Required: text description of the image to generate
	Width    int     // Image width in pixels (multiple of 16)
	Height   int     // Image height in pixels (multiple of 16)
	Steps    int     // Number of denoising steps (1-1000)
	Guidance float64 // Guidance scale; ignored by the base variant
	Seed     *uint64 // Random seed for reproducibility (nil for random)

	// ShiftSigmas enables resolution-dependent sigma shifting
	ShiftSigmas bool

	// Conditioning is the normalized input image (1, Height, Width, 3) for
	// image-conditioned generation; zero Tensor when unused.
	Conditioning Tensor
}

// HasConditioning reports whether an input image was supplied.
func (p GenerationParameters) HasConditioning() bool {
	return !p.Conditioning.IsZero()
}

// Parameter validation constants
const (
	MinImageSize      = 16
	MaxImageSize      = 4096
	ImageSizeMultiple = 16 // Image dimensions must be divisible by this

	MinSteps = 1
	MaxSteps = 1000

	MinGuidance = 0.0
	MaxGuidance = 100.0

	MaxPromptLength = 4096
)

// ValidateParams validates generation parameters and returns an error if invalid.
// This is a pure function with no side effects.
func ValidateParams(p GenerationParameters) error {
	if err := ValidatePrompt(p.Prompt); err != nil {
		return err
	}

	if err := validateDimension("width", p.Width); err != nil {
		return err
	}
	if err := validateDimension("height", p.Height); err != nil {
		return err
	}

	if p.Steps < MinSteps || p.Steps > MaxSteps {
		return fmt.Errorf("%w: steps %d must be between %d and %d",
			ErrInvalidParams, p.Steps, MinSteps, MaxSteps)
	}

	if p.Guidance < MinGuidance || p.Guidance > MaxGuidance {
		return fmt.Errorf("%w: guidance %.2f must be between %.1f and %.1f",
			ErrInvalidParams, p.Guidance, MinGuidance, MaxGuidance)
	}

	if p.HasConditioning() {
		want := []int{1, p.Height, p.Width, 3}
		if !equalShape(p.Conditioning.shape, want) {
			return &ShapeMismatchError{Op: "conditioning", Expected: want, Actual: p.Conditioning.Shape()}
		}
	}

	return nil
}

func validateDimension(name string, v int) error {
	if v < MinImageSize || v > MaxImageSize {
		return fmt.Errorf("%w: %s %d must be between %d and %d",
			ErrInvalidParams, name, v, MinImageSize, MaxImageSize)
	}
	if v%ImageSizeMultiple != 0 {
		return fmt.Errorf("%w: %s %d must be divisible by %d",
			ErrInvalidParams, name, v, ImageSizeMultiple)
	}
	return nil
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
