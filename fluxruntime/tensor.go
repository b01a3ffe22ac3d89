package fluxruntime

import "fmt"

// Tensor is a dense row-major float32 array.
// Reshape returns a view sharing the backing data; Transpose copies.
type Tensor struct {
	shape []int
	data  []float32
}

// NewTensor wraps data with the given shape. The data slice is not copied.
func NewTensor(data []float32, shape ...int) (Tensor, error) {
	if err := validateShape(shape); err != nil {
		return Tensor{}, err
	}
	if len(data) != product(shape) {
		return Tensor{}, &ShapeMismatchError{Op: "new", Expected: cloneInts(shape), Actual: []int{len(data)}}
	}
	return Tensor{shape: cloneInts(shape), data: data}, nil
}

// Zeros returns a zero-filled tensor. It panics on a negative dimension.
func Zeros(shape ...int) Tensor {
	if err := validateShape(shape); err != nil {
		panic(err)
	}
	return Tensor{shape: cloneInts(shape), data: make([]float32, product(shape))}
}

// Shape returns a copy of the tensor's shape.
func (t Tensor) Shape() []int {
	return cloneInts(t.shape)
}

// Data returns the backing data in row-major order. It is not copied.
func (t Tensor) Data() []float32 {
	return t.data
}

// Rank returns the number of dimensions.
func (t Tensor) Rank() int {
	return len(t.shape)
}

// Len returns the number of elements.
func (t Tensor) Len() int {
	return len(t.data)
}

// IsZero reports whether t is the zero Tensor value.
func (t Tensor) IsZero() bool {
	return t.shape == nil && t.data == nil
}

// Clone returns a deep copy.
func (t Tensor) Clone() Tensor {
	data := make([]float32, len(t.data))
	copy(data, t.data)
	return Tensor{shape: cloneInts(t.shape), data: data}
}

// At returns the element at the given index.
func (t Tensor) At(idx ...int) float32 {
	return t.data[t.offset(idx)]
}

// Set assigns the element at the given index.
func (t Tensor) Set(v float32, idx ...int) {
	t.data[t.offset(idx)] = v
}

func (t Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("fluxruntime: index %v has rank %d, tensor has rank %d", idx, len(idx), len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("fluxruntime: index %v out of range for shape %v", idx, t.shape))
		}
		off = off*t.shape[i] + v
	}
	return off
}

// Reshape returns a view of t with a new shape of the same element count.
func (t Tensor) Reshape(shape ...int) (Tensor, error) {
	if err := validateShape(shape); err != nil {
		return Tensor{}, err
	}
	if product(shape) != len(t.data) {
		return Tensor{}, &ShapeMismatchError{Op: "reshape", Expected: cloneInts(shape), Actual: cloneInts(t.shape)}
	}
	return Tensor{shape: cloneInts(shape), data: t.data}, nil
}

// Transpose returns a copy of t with its axes permuted: output axis i is input
// axis perm[i].
func (t Tensor) Transpose(perm ...int) (Tensor, error) {
	rank := len(t.shape)
	if len(perm) != rank {
		return Tensor{}, fmt.Errorf("%w: %v for rank %d", ErrInvalidPermutation, perm, rank)
	}
	seen := make([]bool, rank)
	for _, p := range perm {
		if p < 0 || p >= rank || seen[p] {
			return Tensor{}, fmt.Errorf("%w: %v for rank %d", ErrInvalidPermutation, perm, rank)
		}
		seen[p] = true
	}

	// Row-major strides of the input
	strides := make([]int, rank)
	stride := 1
	for i := rank - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= t.shape[i]
	}

	outShape := make([]int, rank)
	srcStrides := make([]int, rank)
	for i, p := range perm {
		outShape[i] = t.shape[p]
		srcStrides[i] = strides[p]
	}

	out := make([]float32, len(t.data))
	idx := make([]int, rank)
	src := 0
	for i := range out {
		out[i] = t.data[src]
		// Advance the output index like an odometer, tracking the source offset
		for d := rank - 1; d >= 0; d-- {
			idx[d]++
			src += srcStrides[d]
			if idx[d] < outShape[d] {
				break
			}
			src -= srcStrides[d] * outShape[d]
			idx[d] = 0
		}
	}

	return Tensor{shape: outShape, data: out}, nil
}

// Squeeze returns a view of t without axis, which must have size 1.
func (t Tensor) Squeeze(axis int) (Tensor, error) {
	if axis < 0 || axis >= len(t.shape) || t.shape[axis] != 1 {
		return Tensor{}, fmt.Errorf("%w: cannot squeeze axis %d of %v", ErrShapeMismatch, axis, t.shape)
	}
	shape := make([]int, 0, len(t.shape)-1)
	shape = append(shape, t.shape[:axis]...)
	shape = append(shape, t.shape[axis+1:]...)
	return Tensor{shape: shape, data: t.data}, nil
}

func validateShape(shape []int) error {
	for _, d := range shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension in %v", ErrInvalidParams, shape)
		}
	}
	return nil
}

func cloneInts(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}
