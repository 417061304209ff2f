package ops

import "github.com/born-ml/devparity/internal/tensor"

// ExpandOp represents broadcasting x to a larger shape.
//
// Every input element is read by several output elements, so the input
// gradient sums the output gradient over the broadcast dimensions:
// leading dimensions the input lacks are summed away, and size-1 input
// dimensions are summed with keepDim.
type ExpandOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewExpandOp creates a new ExpandOp.
func NewExpandOp(input, output *tensor.RawTensor) *ExpandOp {
	return &ExpandOp{input: input, output: output}
}

// Backward reduces outputGrad back to the input shape.
func (op *ExpandOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{ReduceTo(outputGrad, op.input.Shape(), backend)}
}

// Inputs returns [x].
func (op *ExpandOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the broadcast tensor.
func (op *ExpandOp) Output() *tensor.RawTensor {
	return op.output
}

// ReduceTo sums grad down to shape, the inverse of broadcasting shape to
// grad's shape.
func ReduceTo(grad *tensor.RawTensor, shape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	for len(grad.Shape()) > len(shape) {
		grad = backend.SumDim(grad, 0, false)
	}
	for d, size := range shape {
		if size == 1 && grad.Shape()[d] > 1 {
			grad = backend.SumDim(grad, d, true)
		}
	}
	return grad
}
