package fluxruntime

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGenerationFailedError(t *testing.T) {
	tests := []struct {
		name     string
		err      *GenerationFailedError
		contains string
	}{
		{"denoise", &GenerationFailedError{Stage: StageDenoise, Step: 3, Cause: errors.New("nan")}, "at step 3: nan"},
		{"load", &GenerationFailedError{Stage: StageLoad, Cause: ErrWeightsNotFound}, "during load"},
		{"decode", &GenerationFailedError{Stage: StageDecode, Cause: context.Canceled}, "during decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("Error() = %q, want it to contain %q", tt.err.Error(), tt.contains)
			}
			if !errors.Is(tt.err, ErrGenerationFailed) {
				t.Error("should match ErrGenerationFailed")
			}
			if !errors.Is(tt.err, tt.err.Cause) {
				t.Error("should unwrap to its cause")
			}
		})
	}
}

func TestShapeMismatchError(t *testing.T) {
	err := &ShapeMismatchError{Op: "reshape", Expected: []int{2, 4}, Actual: []int{3, 3}}

	if !errors.Is(err, ErrShapeMismatch) {
		t.Error("should match ErrShapeMismatch")
	}
	msg := err.Error()
	for _, want := range []string{"reshape", "[3 3] (9 elements)", "[2 4] (8 elements)"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want it to contain %q", msg, want)
		}
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrGenerationFailed, ErrGenerationIncomplete, ErrGeneratorClosed, ErrGeneratorNotLoaded,
		ErrShapeMismatch, ErrInvalidPermutation, ErrInvalidPrompt, ErrInvalidParams, ErrWeightsNotFound,
	}
	for i, a := range sentinels {
		if !strings.HasPrefix(a.Error(), "fluxruntime: ") {
			t.Errorf("%q should carry the package prefix", a)
		}
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}
