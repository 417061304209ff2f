// Package ops defines the differentiable operations recorded by the
// gradient tape.
//
// Supported operations:
//   - AddOp: element-wise addition (d(a+b)/da = 1, d(a+b)/db = 1)
//   - SubOp: element-wise subtraction
//   - WhereOp: conditional selection (no gradient for the condition)
//   - InterpolateOp: linear, bilinear and trilinear upsampling
//   - ELUOp: exponential linear unit, differentiated through its output
//   - MatMulOp, BatchMatMulOp: matrix products
//   - MulScalarOp: scaling by a constant
//   - ExpandOp: broadcasting, reduced back by summation
package ops

import "github.com/born-ml/devparity/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
// Each operation records its inputs and output during the forward pass,
// and computes input gradients during the backward pass.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns a slice of gradients corresponding to each input tensor.
	//
	// Example for AddOp:
	//   inputs: [a, b]
	//   outputGrad: dL/d(a+b)
	//   returns: [dL/d(a+b), dL/d(a+b)] (gradient flows equally to both inputs)
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}

// zerosLike allocates a zero tensor shaped like ref on the backend's device.
func zerosLike(ref *tensor.RawTensor, backend tensor.Backend, op string) *tensor.RawTensor {
	zeros, err := tensor.NewRaw(ref.Shape(), ref.DType(), backend.Device())
	if err != nil {
		panic(op + ": failed to create zeros tensor: " + err.Error())
	}
	return zeros
}
