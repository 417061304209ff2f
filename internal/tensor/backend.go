package tensor

// Backend defines the operators every parity device must implement.
// Backends panic with an "op: message" string when an operator cannot run
// (bad arguments, unsupported dtype on this device); callers that need an
// error recover it.
//
// Implementations:
//   - cpu: serial reference kernels
//   - multicore: worker fan-out kernels
//   - webgpu: WGSL compute shaders
type Backend interface {
	// Element-wise binary operations (shapes must match)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor

	// MulScalar multiplies every element by scalar.
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// Matrix multiplication: (M, K) @ (K, N) and (B, M, K) @ (B, K, N).
	MatMul(a, b *RawTensor) *RawTensor
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Layout operations. Transpose with no axes reverses the dimensions;
	// Expand broadcasts size-1 and missing leading dimensions.
	Transpose(x *RawTensor, axes ...int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor

	// SumDim sums along dim (negative values count from the end).
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// RepeatInterleave returns the int64 indices 0..n-1 of a 1-D int64
	// repeats tensor, index i repeated repeats[i] times.
	RepeatInterleave(repeats *RawTensor) *RawTensor

	// Equal compares element-wise and returns a bool tensor.
	Equal(a, b *RawTensor) *RawTensor
	// Where selects x where condition is non-zero, y elsewhere.
	Where(condition, x, y *RawTensor) *RawTensor

	// RemainderScalar computes x mod divisor with the sign of the divisor.
	RemainderScalar(x *RawTensor, divisor float64) *RawTensor

	// Cast converts to another dtype. Float to integer truncates toward
	// zero and wraps to the target width.
	Cast(x *RawTensor, dtype DataType) *RawTensor

	// Boolean reductions. The result is uint8 for uint8 input, bool otherwise.
	All(x *RawTensor) *RawTensor
	AllDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// ELU activation and its gradient computed from the forward output.
	ELU(x *RawTensor, p ELUParams) *RawTensor
	ELUBackward(grad, output *RawTensor, p ELUParams) *RawTensor

	// Linear interpolation over the trailing 1-3 spatial dimensions.
	Interpolate(x *RawTensor, cfg InterpolateConfig) *RawTensor
	InterpolateBackward(grad *RawTensor, inputShape Shape, cfg InterpolateConfig) *RawTensor

	// Transfer copies x into memory owned by this backend's device.
	Transfer(x *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}

// ELUParams holds the ELU coefficients:
//
//	elu(x) = x > 0 ? scale*x : alpha*scale*(exp(inputScale*x) - 1)
type ELUParams struct {
	Alpha      float64
	Scale      float64
	InputScale float64
}

// DefaultELU returns alpha=1, scale=1, inputScale=1.
func DefaultELU() ELUParams {
	return ELUParams{Alpha: 1, Scale: 1, InputScale: 1}
}
