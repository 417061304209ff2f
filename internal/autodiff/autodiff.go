// Package autodiff implements automatic differentiation using the decorator pattern.
//
// AutodiffBackend wraps any Backend implementation (CPU, multicore, WebGPU)
// and records the differentiable operators on a GradientTape:
//   - Add, Sub, Where, MulScalar
//   - Interpolate
//   - ELU
//   - MatMul, BatchMatMul, Expand
//
// Every other operator passes through to the wrapped backend untracked.
//
// Usage:
//
//	b := autodiff.New(cpu.New())
//	b.Tape().StartRecording()
//	y := b.Interpolate(x, cfg)
//	grads := autodiff.BackwardWith(tensor.New[float32](y, b), gradOut, b)
//	gx := grads[x]
package autodiff

import (
	"github.com/born-ml/devparity/internal/autodiff/ops"
	"github.com/born-ml/devparity/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface and records operations in a GradientTape.
//
// Type parameter B must satisfy the tensor.Backend interface.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	// Inputs stay referenced by the tape, so the wrapped backend must not
	// write the result into them.
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	result := b.inner.Add(a, c)
	b.tape.Record(ops.NewAddOp(a, c, result))
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(a, c *tensor.RawTensor) *tensor.RawTensor {
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	result := b.inner.Sub(a, c)
	b.tape.Record(ops.NewSubOp(a, c, result))
	return result
}

// Where performs conditional selection and records the operation.
func (b *AutodiffBackend[B]) Where(condition, x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Where(condition, x, y)
	b.tape.Record(ops.NewWhereOp(condition, x, y, result))
	return result
}

// Interpolate resamples x and records the operation.
func (b *AutodiffBackend[B]) Interpolate(x *tensor.RawTensor, cfg tensor.InterpolateConfig) *tensor.RawTensor {
	result := b.inner.Interpolate(x, cfg)
	b.tape.Record(ops.NewInterpolateOp(x, result, cfg))
	return result
}

// ELU applies the activation and records the operation.
func (b *AutodiffBackend[B]) ELU(x *tensor.RawTensor, p tensor.ELUParams) *tensor.RawTensor {
	result := b.inner.ELU(x, p)
	b.tape.Record(ops.NewELUOp(x, result, p))
	return result
}

// MulScalar scales x and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := b.inner.MulScalar(x, scalar)
	b.tape.Record(ops.NewMulScalarOp(x, result, scalar))
	return result
}

// MatMul multiplies two matrices and records the operation.
func (b *AutodiffBackend[B]) MatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(a, c)
	b.tape.Record(ops.NewMatMulOp(a, c, result))
	return result
}

// BatchMatMul multiplies two batches of matrices and records the operation.
func (b *AutodiffBackend[B]) BatchMatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.BatchMatMul(a, c)
	b.tape.Record(ops.NewBatchMatMulOp(a, c, result))
	return result
}

// Expand broadcasts x and records the operation.
func (b *AutodiffBackend[B]) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Expand(x, shape)
	b.tape.Record(ops.NewExpandOp(x, result))
	return result
}

// Transpose is not tracked.
func (b *AutodiffBackend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	return b.inner.Transpose(x, axes...)
}

// SumDim is not tracked.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.inner.SumDim(x, dim, keepDim)
}

// RepeatInterleave is not differentiable.
func (b *AutodiffBackend[B]) RepeatInterleave(repeats *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.RepeatInterleave(repeats)
}

// Equal is not differentiable.
func (b *AutodiffBackend[B]) Equal(a, c *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Equal(a, c)
}

// RemainderScalar is not tracked.
func (b *AutodiffBackend[B]) RemainderScalar(x *tensor.RawTensor, divisor float64) *tensor.RawTensor {
	return b.inner.RemainderScalar(x, divisor)
}

// Cast is not tracked.
func (b *AutodiffBackend[B]) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	return b.inner.Cast(x, dtype)
}

// All is not differentiable.
func (b *AutodiffBackend[B]) All(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.All(x)
}

// AllDim is not differentiable.
func (b *AutodiffBackend[B]) AllDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.inner.AllDim(x, dim, keepDim)
}

// ELUBackward delegates to the wrapped backend.
func (b *AutodiffBackend[B]) ELUBackward(grad, output *tensor.RawTensor, p tensor.ELUParams) *tensor.RawTensor {
	return b.inner.ELUBackward(grad, output, p)
}

// InterpolateBackward delegates to the wrapped backend.
func (b *AutodiffBackend[B]) InterpolateBackward(grad *tensor.RawTensor, inputShape tensor.Shape,
	cfg tensor.InterpolateConfig,
) *tensor.RawTensor {
	return b.inner.InterpolateBackward(grad, inputShape, cfg)
}

// Transfer delegates to the wrapped backend.
func (b *AutodiffBackend[B]) Transfer(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Transfer(x)
}
