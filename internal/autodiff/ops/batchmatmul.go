package ops

import "github.com/born-ml/devparity/internal/tensor"

// BatchMatMulOp represents batched matrix multiplication:
// output[b] = a[b] @ other[b] for a [B, M, K] and other [B, K, N].
//
// Backward swaps the last two axes instead of a full transpose:
//   - grad_a = outputGrad @ other^T
//   - grad_other = a^T @ outputGrad
type BatchMatMulOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewBatchMatMulOp creates a new BatchMatMulOp.
func NewBatchMatMulOp(a, other, output *tensor.RawTensor) *BatchMatMulOp {
	return &BatchMatMulOp{
		inputs: []*tensor.RawTensor{a, other},
		output: output,
	}
}

// Backward computes gradients for both batches.
func (op *BatchMatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, other := op.inputs[0], op.inputs[1]
	swap := tensor.SwapLast(3)

	gradA := backend.BatchMatMul(outputGrad, backend.Transpose(other, swap...))
	gradOther := backend.BatchMatMul(backend.Transpose(a, swap...), outputGrad)

	return []*tensor.RawTensor{gradA, gradOther}
}

// Inputs returns [a, other].
func (op *BatchMatMulOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the batched product.
func (op *BatchMatMulOp) Output() *tensor.RawTensor {
	return op.output
}
