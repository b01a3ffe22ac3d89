package fluxruntime

import (
	"errors"
	"testing"
)

func seqTensor(t *testing.T, shape ...int) Tensor {
	t.Helper()
	data := make([]float32, product(shape))
	for i := range data {
		data[i] = float32(i)
	}
	tensor, err := NewTensor(data, shape...)
	if err != nil {
		t.Fatalf("NewTensor(%v) failed: %v", shape, err)
	}
	return tensor
}

func TestNewTensor_ElementCount(t *testing.T) {
	_, err := NewTensor(make([]float32, 5), 2, 3)
	if err == nil {
		t.Fatal("expected error for 5 elements in shape [2 3]")
	}
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got: %v", err)
	}

	_, err = NewTensor(nil, 2, -1)
	if !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams for negative dimension, got: %v", err)
	}
}

func TestTensor_Reshape(t *testing.T) {
	src := seqTensor(t, 2, 3, 4)

	view, err := src.Reshape(6, 4)
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if got := view.Shape(); !equalShape(got, []int{6, 4}) {
		t.Errorf("shape = %v, want [6 4]", got)
	}
	if view.At(5, 3) != 23 {
		t.Errorf("At(5,3) = %v, want 23", view.At(5, 3))
	}

	// Views share data
	view.Set(-1, 0, 0)
	if src.At(0, 0, 0) != -1 {
		t.Error("reshape should return a view sharing data")
	}
}

func TestTensor_ReshapeMismatch(t *testing.T) {
	src := seqTensor(t, 2, 3)

	_, err := src.Reshape(4, 2)
	var shapeErr *ShapeMismatchError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected *ShapeMismatchError, got: %v", err)
	}
	if !equalShape(shapeErr.Expected, []int{4, 2}) || !equalShape(shapeErr.Actual, []int{2, 3}) {
		t.Errorf("error shapes = %v / %v, want [4 2] / [2 3]", shapeErr.Expected, shapeErr.Actual)
	}
}

func TestTensor_Transpose2D(t *testing.T) {
	src := seqTensor(t, 2, 3)

	tr, err := src.Transpose(1, 0)
	if err != nil {
		t.Fatalf("Transpose failed: %v", err)
	}
	if got := tr.Shape(); !equalShape(got, []int{3, 2}) {
		t.Fatalf("shape = %v, want [3 2]", got)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if tr.At(j, i) != src.At(i, j) {
				t.Errorf("tr[%d,%d] = %v, want %v", j, i, tr.At(j, i), src.At(i, j))
			}
		}
	}
}

func TestTensor_Transpose3D(t *testing.T) {
	src := seqTensor(t, 2, 3, 4)

	tr, err := src.Transpose(2, 0, 1)
	if err != nil {
		t.Fatalf("Transpose failed: %v", err)
	}
	if got := tr.Shape(); !equalShape(got, []int{4, 2, 3}) {
		t.Fatalf("shape = %v, want [4 2 3]", got)
	}
	for a := 0; a < 2; a++ {
		for b := 0; b < 3; b++ {
			for c := 0; c < 4; c++ {
				if tr.At(c, a, b) != src.At(a, b, c) {
					t.Errorf("tr[%d,%d,%d] = %v, want %v", c, a, b, tr.At(c, a, b), src.At(a, b, c))
				}
			}
		}
	}

	// Transpose copies
	tr.Set(-1, 0, 0, 0)
	if src.At(0, 0, 0) == -1 {
		t.Error("transpose should not share data with its source")
	}
}

func TestTensor_TransposeInvalidPermutation(t *testing.T) {
	src := seqTensor(t, 2, 3)

	tests := []struct {
		name string
		perm []int
	}{
		{"wrong rank", []int{0}},
		{"duplicate axis", []int{0, 0}},
		{"out of range", []int{0, 2}},
		{"negative", []int{-1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := src.Transpose(tt.perm...)
			if !errors.Is(err, ErrInvalidPermutation) {
				t.Errorf("expected ErrInvalidPermutation, got: %v", err)
			}
		})
	}
}

func TestTensor_Squeeze(t *testing.T) {
	src := seqTensor(t, 1, 2, 3)

	sq, err := src.Squeeze(0)
	if err != nil {
		t.Fatalf("Squeeze failed: %v", err)
	}
	if got := sq.Shape(); !equalShape(got, []int{2, 3}) {
		t.Errorf("shape = %v, want [2 3]", got)
	}

	if _, err := src.Squeeze(1); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("squeezing axis of size 2 should fail with ErrShapeMismatch, got: %v", err)
	}
}

func TestTensor_ZeroValue(t *testing.T) {
	var zero Tensor
	if !zero.IsZero() {
		t.Error("zero Tensor should report IsZero")
	}
	if Zeros(2).IsZero() {
		t.Error("Zeros(2) should not report IsZero")
	}
}

func TestTensor_Clone(t *testing.T) {
	src := seqTensor(t, 2, 2)
	clone := src.Clone()
	clone.Set(100, 1, 1)
	if src.At(1, 1) != 3 {
		t.Errorf("clone should not share data, src[1,1] = %v", src.At(1, 1))
	}
}
