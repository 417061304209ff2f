package ops

import "github.com/born-ml/devparity/internal/tensor"

// InterpolateOp represents linear resampling of the trailing spatial
// dimensions: output = interpolate(x, cfg).
//
// The operation is linear in x, so the input gradient is the adjoint
// resampling of the output gradient computed by the backend.
type InterpolateOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	cfg    tensor.InterpolateConfig
}

// NewInterpolateOp creates a new InterpolateOp.
func NewInterpolateOp(input, output *tensor.RawTensor, cfg tensor.InterpolateConfig) *InterpolateOp {
	return &InterpolateOp{input: input, output: output, cfg: cfg}
}

// Backward computes the input gradient.
func (op *InterpolateOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.InterpolateBackward(outputGrad, op.input.Shape(), op.cfg)}
}

// Inputs returns [x].
func (op *InterpolateOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the resampled tensor.
func (op *InterpolateOp) Output() *tensor.RawTensor {
	return op.output
}

// Config returns the geometry used in the forward pass.
func (op *InterpolateOp) Config() tensor.InterpolateConfig {
	return op.cfg
}
