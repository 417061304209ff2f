package tensor

// Add performs element-wise addition.
func (t *Tensor[T, B]) Add(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub performs element-wise subtraction.
func (t *Tensor[T, B]) Sub(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mod computes the element-wise remainder with the sign of the divisor.
func (t *Tensor[T, B]) Mod(divisor float64) *Tensor[T, B] {
	return New[T, B](t.backend.RemainderScalar(t.raw, divisor), t.backend)
}

// All reports whether every element is non-zero, as a 0-D tensor.
// The element type is preserved for uint8 and bool inputs.
//
// Example:
//
//	ok := bits.All().Item() != 0
func (t *Tensor[T, B]) All() *Tensor[T, B] {
	return New[T, B](t.backend.All(t.raw), t.backend)
}

// AllDim reduces along dim (negative values count from the end).
func (t *Tensor[T, B]) AllDim(dim int, keepDim bool) *Tensor[T, B] {
	return New[T, B](t.backend.AllDim(t.raw, dim, keepDim), t.backend)
}

// Interpolate resamples the trailing spatial dimensions.
//
// Example:
//
//	cfg := tensor.InterpolateConfig{Mode: tensor.Bilinear, Scales: []float64{6, 8}}
//	y := x.Interpolate(cfg) // [2,3,5,5] -> [2,3,30,40]
func (t *Tensor[T, B]) Interpolate(cfg InterpolateConfig) *Tensor[T, B] {
	return New[T, B](t.backend.Interpolate(t.raw, cfg), t.backend)
}

// ELU applies the exponential linear unit.
func (t *Tensor[T, B]) ELU(p ELUParams) *Tensor[T, B] {
	return New[T, B](t.backend.ELU(t.raw, p), t.backend)
}

// Cast converts a tensor to element type U.
func Cast[U DType, T DType, B Backend](t *Tensor[T, B]) *Tensor[U, B] {
	var dummy U
	return New[U, B](t.backend.Cast(t.raw, inferDataType(dummy)), t.backend)
}
