package fluxruntime

import (
	"errors"
	"fmt"
)

// Sentinel errors for flux runtime operations.
var (
	// Generation errors
	ErrGenerationFailed     = errors.New("fluxruntime: image generation failed")
	ErrGenerationIncomplete = errors.New("fluxruntime: denoiser produced no steps")
	ErrGeneratorClosed      = errors.New("fluxruntime: generator is closed")
	ErrGeneratorNotLoaded   = errors.New("fluxruntime: generator weights are not loaded")

	// Tensor errors
	ErrShapeMismatch      = errors.New("fluxruntime: tensor shape mismatch")
	ErrInvalidPermutation = errors.New("fluxruntime: invalid transpose permutation")

	// Input validation errors
	ErrInvalidPrompt = errors.New("fluxruntime: invalid prompt")
	ErrInvalidParams = errors.New("fluxruntime: invalid generation parameters")

	// Weights errors
	ErrWeightsNotFound = errors.New("fluxruntime: weights not found")
)

// Generation stages reported by GenerationFailedError.
const (
	StageLoad    = "load"
	StageDenoise = "denoise"
	StageDecode  = "decode"
)

// GenerationFailedError reports an engine failure while generating.
// Step is the 1-based denoising step being computed, or 0 outside the loop.
type GenerationFailedError struct {
	Stage string
	Step  int
	Cause error
}

func (e *GenerationFailedError) Error() string {
	if e.Stage == StageDenoise {
		return fmt.Sprintf("fluxruntime: image generation failed at step %d: %v", e.Step, e.Cause)
	}
	return fmt.Sprintf("fluxruntime: image generation failed during %s: %v", e.Stage, e.Cause)
}

func (e *GenerationFailedError) Unwrap() error {
	return e.Cause
}

// Is matches ErrGenerationFailed.
func (e *GenerationFailedError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// ShapeMismatchError reports a tensor whose element count or shape does not fit
// the requested view.
type ShapeMismatchError struct {
	Op       string
	Expected []int
	Actual   []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("fluxruntime: shape mismatch in %s: have %v (%d elements), want %v (%d elements)",
		e.Op, e.Actual, product(e.Actual), e.Expected, product(e.Expected))
}

// Is matches ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
