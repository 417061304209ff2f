package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// NormalizeDim resolves a possibly negative dimension against a rank.
// Returns an error when the dimension is out of range.
func NormalizeDim(dim, rank int) (int, error) {
	d := dim
	if d < 0 {
		d += rank
	}
	if d < 0 || d >= rank {
		return 0, fmt.Errorf("dimension out of range (expected to be in range of [%d, %d], but got %d)",
			-rank, rank-1, dim)
	}
	return d, nil
}

// ReducedShape returns the shape left after reducing dim.
// With keepDim the reduced dimension stays with size 1.
func ReducedShape(s Shape, dim int, keepDim bool) Shape {
	if keepDim {
		out := s.Clone()
		out[dim] = 1
		return out
	}
	out := make(Shape, 0, len(s)-1)
	for i, d := range s {
		if i != dim {
			out = append(out, d)
		}
	}
	return out
}

// SplitAt describes a reduction over dim as outer x dim x inner blocks:
// element (o, k, i) lives at o*size*inner + k*inner + i.
func (s Shape) SplitAt(dim int) (outer, size, inner int) {
	outer, inner = 1, 1
	for i := 0; i < dim; i++ {
		outer *= s[i]
	}
	for i := dim + 1; i < len(s); i++ {
		inner *= s[i]
	}
	return outer, s[dim], inner
}
