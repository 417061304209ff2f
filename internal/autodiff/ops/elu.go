package ops

import "github.com/born-ml/devparity/internal/tensor"

// ELUOp represents the exponential linear unit: output = elu(x).
//
// Backward uses the forward output rather than the input:
//
//	output > 0:  grad * scale
//	output <= 0: grad * inputScale * (output + alpha*scale)
type ELUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	params tensor.ELUParams
}

// NewELUOp creates a new ELUOp.
func NewELUOp(input, output *tensor.RawTensor, p tensor.ELUParams) *ELUOp {
	return &ELUOp{input: input, output: output, params: p}
}

// Backward computes the input gradient from the stored output.
func (op *ELUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.ELUBackward(outputGrad, op.output, op.params)}
}

// Inputs returns [x].
func (op *ELUOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns elu(x).
func (op *ELUOp) Output() *tensor.RawTensor {
	return op.output
}
