package ops

import (
	"github.com/born-ml/devparity/internal/tensor"
)

// WhereOp represents a conditional selection: output = where(cond, x, y).
//
// Forward: output[i] = x[i] if cond[i] else y[i]
//
// Backward:
//
//	grad_x = where(cond, grad_out, 0)
//	grad_y = where(cond, 0, grad_out)
//
// The condition tensor has no gradient.
type WhereOp struct {
	condition *tensor.RawTensor // bool or uint8 tensor
	x         *tensor.RawTensor // "true" branch values
	y         *tensor.RawTensor // "false" branch values
	output    *tensor.RawTensor // result tensor
}

// NewWhereOp creates a new where operation.
func NewWhereOp(condition, x, y, output *tensor.RawTensor) *WhereOp {
	return &WhereOp{
		condition: condition,
		x:         x,
		y:         y,
		output:    output,
	}
}

// Inputs returns the input tensors (x and y).
// The condition is not included as it has no gradient.
func (op *WhereOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.x, op.y}
}

// Output returns the output tensor.
func (op *WhereOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward routes the output gradient to the branch each element came from.
func (op *WhereOp) Backward(gradOutput *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	zeros := zerosLike(gradOutput, backend, "WhereOp.Backward")

	gradX := backend.Where(op.condition, gradOutput, zeros)
	gradY := backend.Where(op.condition, zeros, gradOutput)

	return []*tensor.RawTensor{gradX, gradY}
}
