//go:build windows

package webgpu

import (
	"fmt"

	"github.com/born-ml/devparity/internal/tensor"
)

func must(op string, result *tensor.RawTensor, err error) *tensor.RawTensor {
	if err != nil {
		panic("webgpu: " + op + ": " + err.Error())
	}
	return result
}

// Transfer uploads x to device memory and reads it back into a tensor
// tagged WebGPU. Any dtype is accepted; bytes are moved verbatim.
func (b *Backend) Transfer(x *tensor.RawTensor) *tensor.RawTensor {
	data := padBytes(x.Data())
	buf := b.createBuffer(data, storageIn)
	defer buf.Release()

	back, err := b.readBuffer(buf, uint64(len(data)))
	if err != nil {
		panic("webgpu: Transfer: " + err.Error())
	}
	out := tensor.MustRaw(x.Shape(), x.DType(), tensor.WebGPU)
	copy(out.Data(), back)
	return out
}

// Add performs element-wise addition on GPU.
func (b *Backend) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runBinaryOp(a, other, "add", "+")
	return must("Add", result, err)
}

// Sub performs element-wise subtraction on GPU.
func (b *Backend) Sub(a, other *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runBinaryOp(a, other, "sub", "-")
	return must("Sub", result, err)
}

func (b *Backend) runBinaryOp(a, other *tensor.RawTensor, name, op string) (*tensor.RawTensor, error) {
	if err := sameLayout(a, other); err != nil {
		return nil, err
	}
	if a.DType() == tensor.Bool {
		return nil, fmt.Errorf("%s does not support bool", name)
	}
	ty, err := wordType(a.DType())
	if err != nil {
		return nil, err
	}
	mask8 := a.DType() == tensor.Uint8
	return b.run(kernel{
		name:     fmt.Sprintf("%s_%s_%v", name, ty, mask8),
		code:     binaryShader(op, ty, mask8),
		inputs:   []*tensor.RawTensor{a, other},
		outShape: a.Shape(),
		outDType: a.DType(),
		params:   uniform(a.NumElements()),
	})
}

// Equal compares element-wise on GPU and returns a bool tensor.
func (b *Backend) Equal(a, other *tensor.RawTensor) *tensor.RawTensor {
	if err := sameLayout(a, other); err != nil {
		panic("webgpu: Equal: " + err.Error())
	}
	ty, err := wordType(a.DType())
	if err != nil {
		panic("webgpu: Equal: " + err.Error())
	}
	result, err := b.run(kernel{
		name:     "equal_" + ty,
		code:     equalShader(ty),
		inputs:   []*tensor.RawTensor{a, other},
		outShape: a.Shape(),
		outDType: tensor.Bool,
		params:   uniform(a.NumElements()),
	})
	return must("Equal", result, err)
}

// Where performs conditional element selection on GPU.
// result[i] = condition[i] != 0 ? x[i] : y[i].
func (b *Backend) Where(condition, x, y *tensor.RawTensor) *tensor.RawTensor {
	if condition.DType() != tensor.Bool && condition.DType() != tensor.Uint8 {
		panic(fmt.Sprintf("webgpu: Where: condition must be bool or uint8, got %s", condition.DType()))
	}
	if !condition.Shape().Equal(x.Shape()) {
		panic(fmt.Sprintf("webgpu: Where: condition shape %v does not match %v", condition.Shape(), x.Shape()))
	}
	if err := sameLayout(x, y); err != nil {
		panic("webgpu: Where: " + err.Error())
	}
	result, err := b.run(kernel{
		name:     "where",
		code:     whereShader,
		inputs:   []*tensor.RawTensor{condition, x, y},
		outShape: x.Shape(),
		outDType: x.DType(),
		params:   uniform(x.NumElements()),
	})
	return must("Where", result, err)
}

// RemainderScalar computes x mod divisor with the sign of the divisor.
func (b *Backend) RemainderScalar(x *tensor.RawTensor, divisor float64) *tensor.RawTensor {
	code, err := remainderShader(x.DType())
	if err != nil {
		panic("webgpu: RemainderScalar: " + err.Error())
	}
	var params []byte
	if x.DType() == tensor.Float32 {
		params = uniformF32([]int{x.NumElements()}, float32(divisor))
	} else {
		d, err := intDivisor(divisor)
		if err != nil {
			panic("webgpu: RemainderScalar: " + err.Error())
		}
		params = uniform(x.NumElements(), d)
	}
	result, err := b.run(kernel{
		name:     "remainder_" + x.DType().String(),
		code:     code,
		inputs:   []*tensor.RawTensor{x},
		outShape: x.Shape(),
		outDType: x.DType(),
		params:   params,
	})
	return must("RemainderScalar", result, err)
}

// Cast converts x to dtype on GPU.
func (b *Backend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	code, err := castShader(x.DType(), dtype)
	if err != nil {
		panic("webgpu: Cast: " + err.Error())
	}
	result, err := b.run(kernel{
		name:     fmt.Sprintf("cast_%s_%s", x.DType(), dtype),
		code:     code,
		inputs:   []*tensor.RawTensor{x},
		outShape: x.Shape(),
		outDType: dtype,
		params:   uniform(x.NumElements()),
	})
	return must("Cast", result, err)
}

// All reports whether every element is non-zero. Every invocation tests one
// element and clears a shared flag on zero.
func (b *Backend) All(x *tensor.RawTensor) *tensor.RawTensor {
	ty, err := wordType(x.DType())
	if err != nil {
		panic("webgpu: All: " + err.Error())
	}
	result, err := b.run(kernel{
		name:     "all_" + ty,
		code:     allShader(ty),
		inputs:   []*tensor.RawTensor{x},
		outShape: tensor.Shape{},
		outDType: allResultType(x.DType()),
		outInit:  []byte{1, 0, 0, 0},
		threads:  x.NumElements(),
		params:   uniform(x.NumElements()),
	})
	return must("All", result, err)
}

// AllDim reduces along dim with logical AND.
func (b *Backend) AllDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) == 0 {
		if _, err := tensor.NormalizeDim(dim, 1); err != nil {
			panic("webgpu: AllDim: " + err.Error())
		}
		return b.All(x)
	}
	d, err := tensor.NormalizeDim(dim, len(shape))
	if err != nil {
		panic("webgpu: AllDim: " + err.Error())
	}
	ty, err := wordType(x.DType())
	if err != nil {
		panic("webgpu: AllDim: " + err.Error())
	}

	outShape := tensor.ReducedShape(shape, d, keepDim)
	_, size, inner := shape.SplitAt(d)
	result, err := b.run(kernel{
		name:     "all_dim_" + ty,
		code:     allDimShader(ty),
		inputs:   []*tensor.RawTensor{x},
		outShape: outShape,
		outDType: allResultType(x.DType()),
		params:   uniform(outShape.NumElements(), size, inner),
	})
	return must("AllDim", result, err)
}

// ELU applies the exponential linear unit on GPU (float32 only).
func (b *Backend) ELU(x *tensor.RawTensor, p tensor.ELUParams) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("webgpu: ELU: only float32 is supported, got %s", x.DType()))
	}
	result, err := b.run(kernel{
		name:     "elu",
		code:     eluShader,
		inputs:   []*tensor.RawTensor{x},
		outShape: x.Shape(),
		outDType: tensor.Float32,
		params:   eluParams(x.NumElements(), p),
	})
	return must("ELU", result, err)
}

// ELUBackward computes the ELU gradient on GPU from the forward output.
func (b *Backend) ELUBackward(grad, output *tensor.RawTensor, p tensor.ELUParams) *tensor.RawTensor {
	if err := sameLayout(grad, output); err != nil {
		panic("webgpu: ELUBackward: " + err.Error())
	}
	if grad.DType() != tensor.Float32 {
		panic(fmt.Sprintf("webgpu: ELUBackward: only float32 is supported, got %s", grad.DType()))
	}
	result, err := b.run(kernel{
		name:     "elu_backward",
		code:     eluBackwardShader,
		inputs:   []*tensor.RawTensor{grad, output},
		outShape: grad.Shape(),
		outDType: tensor.Float32,
		params:   eluParams(grad.NumElements(), p),
	})
	return must("ELUBackward", result, err)
}

// Interpolate resamples the trailing spatial dimensions on GPU (float32 only).
func (b *Backend) Interpolate(x *tensor.RawTensor, cfg tensor.InterpolateConfig) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("webgpu: Interpolate: only float32 is supported, got %s", x.DType()))
	}
	outShape, err := cfg.OutputShape(x.Shape())
	if err != nil {
		panic("webgpu: Interpolate: " + err.Error())
	}
	axes, err := paddedAxes(cfg, x.Shape())
	if err != nil {
		panic("webgpu: Interpolate: " + err.Error())
	}
	taps, off := tapTable(axes)

	result, err := b.run(kernel{
		name:     "interpolate",
		code:     interpolateShader,
		inputs:   []*tensor.RawTensor{x},
		extras:   [][]byte{taps},
		outShape: outShape,
		outDType: tensor.Float32,
		params: uniform(outShape.NumElements(),
			axes[0].In, axes[1].In, axes[2].In,
			axes[0].Out, axes[1].Out, axes[2].Out,
			off[0], off[1], off[2]),
	})
	return must("Interpolate", result, err)
}

// InterpolateBackward computes the input gradient on GPU by gathering the
// output gradients that read each input element.
func (b *Backend) InterpolateBackward(grad *tensor.RawTensor, inputShape tensor.Shape,
	cfg tensor.InterpolateConfig,
) *tensor.RawTensor {
	if grad.DType() != tensor.Float32 {
		panic(fmt.Sprintf("webgpu: InterpolateBackward: only float32 is supported, got %s", grad.DType()))
	}
	outShape, err := cfg.OutputShape(inputShape)
	if err != nil {
		panic("webgpu: InterpolateBackward: " + err.Error())
	}
	if !grad.Shape().Equal(outShape) {
		panic(fmt.Sprintf("webgpu: InterpolateBackward: grad shape %v, expected %v", grad.Shape(), outShape))
	}
	axes, err := paddedAxes(cfg, inputShape)
	if err != nil {
		panic("webgpu: InterpolateBackward: " + err.Error())
	}
	taps, off := tapTable(axes)
	ranges, roff := rangeTable(axes)

	result, err := b.run(kernel{
		name:     "interpolate_backward",
		code:     interpolateBackwardShader,
		inputs:   []*tensor.RawTensor{grad},
		extras:   [][]byte{taps, ranges},
		outShape: inputShape,
		outDType: tensor.Float32,
		params: uniform(inputShape.NumElements(),
			axes[0].In, axes[1].In, axes[2].In,
			axes[0].Out, axes[1].Out, axes[2].Out,
			off[0], off[1], off[2],
			roff[0], roff[1], roff[2]),
	})
	return must("InterpolateBackward", result, err)
}

func eluParams(n int, p tensor.ELUParams) []byte {
	return uniformF32([]int{n}, float32(p.Alpha), float32(p.Scale), float32(p.InputScale))
}

// MatMul multiplies (M, K) @ (K, N) on GPU as a single batch.
func (b *Backend) MatMul(a, other *tensor.RawTensor) *tensor.RawTensor {
	outShape, err := tensor.MatMulShape(a.Shape(), other.Shape())
	if err != nil {
		panic("webgpu: MatMul: " + err.Error())
	}
	result, err := b.runBatchMatMul(a, other, outShape, 1, a.Shape()[0], a.Shape()[1], other.Shape()[1])
	return must("MatMul", result, err)
}

// BatchMatMul multiplies (B, M, K) @ (B, K, N) on GPU.
func (b *Backend) BatchMatMul(a, other *tensor.RawTensor) *tensor.RawTensor {
	outShape, err := tensor.BatchMatMulShape(a.Shape(), other.Shape())
	if err != nil {
		panic("webgpu: BatchMatMul: " + err.Error())
	}
	s := a.Shape()
	result, err := b.runBatchMatMul(a, other, outShape, s[0], s[1], s[2], other.Shape()[2])
	return must("BatchMatMul", result, err)
}

func (b *Backend) runBatchMatMul(a, other *tensor.RawTensor, outShape tensor.Shape, batch, m, k, n int) (*tensor.RawTensor, error) {
	if a.DType() != other.DType() {
		return nil, fmt.Errorf("dtype mismatch: %s vs %s", a.DType(), other.DType())
	}
	if a.DType() != tensor.Float32 && a.DType() != tensor.Int32 {
		return nil, fmt.Errorf("only float32 and int32 are supported, got %s", a.DType())
	}
	ty, _ := wordType(a.DType())
	return b.run(kernel{
		name:     "bmm_" + ty,
		code:     batchMatMulShader(ty),
		inputs:   []*tensor.RawTensor{a, other},
		outShape: outShape,
		outDType: a.DType(),
		params:   uniform(batch*m*n, m, k, n),
	})
}

// Transpose permutes dimensions on GPU. No axes reverses them.
func (b *Backend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	outShape, src, err := tensor.TransposeLayout(x.Shape(), axes)
	if err != nil {
		panic("webgpu: Transpose: " + err.Error())
	}
	result, err := b.runGather(x, outShape, src)
	return must("Transpose", result, err)
}

// Expand broadcasts x to shape on GPU.
func (b *Backend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	src, err := tensor.ExpandStrides(x.Shape(), shape)
	if err != nil {
		panic("webgpu: Expand: " + err.Error())
	}
	result, err := b.runGather(x, shape, src)
	return must("Expand", result, err)
}

func (b *Backend) runGather(x *tensor.RawTensor, outShape tensor.Shape, src []int) (*tensor.RawTensor, error) {
	return b.run(kernel{
		name:     "gather",
		code:     gatherShader,
		inputs:   []*tensor.RawTensor{x},
		extras:   [][]byte{stridesTable(outShape.ComputeStrides(), src)},
		outShape: outShape,
		outDType: x.DType(),
		params:   uniform(outShape.NumElements()),
	})
}

// SumDim sums along dim on GPU (float32 and int32). float32 accumulates
// in f32.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	if x.DType() != tensor.Float32 && x.DType() != tensor.Int32 {
		panic(fmt.Sprintf("webgpu: SumDim: only float32 and int32 are supported, got %s", x.DType()))
	}
	shape := x.Shape()
	if len(shape) == 0 {
		if _, err := tensor.NormalizeDim(dim, 1); err != nil {
			panic("webgpu: SumDim: " + err.Error())
		}
		return b.Transfer(x)
	}
	d, err := tensor.NormalizeDim(dim, len(shape))
	if err != nil {
		panic("webgpu: SumDim: " + err.Error())
	}
	ty, _ := wordType(x.DType())
	outShape := tensor.ReducedShape(shape, d, keepDim)
	_, size, inner := shape.SplitAt(d)
	result, err := b.run(kernel{
		name:     "sum_dim_" + ty,
		code:     sumDimShader(ty),
		inputs:   []*tensor.RawTensor{x},
		outShape: outShape,
		outDType: x.DType(),
		params:   uniform(outShape.NumElements(), size, inner),
	})
	return must("SumDim", result, err)
}

// MulScalar scales a float32 tensor on GPU.
func (b *Backend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("webgpu: MulScalar: only float32 is supported, got %s", x.DType()))
	}
	result, err := b.run(kernel{
		name:     "mul_scalar",
		code:     mulScalarShader,
		inputs:   []*tensor.RawTensor{x},
		outShape: x.Shape(),
		outDType: tensor.Float32,
		params:   uniformF32([]int{x.NumElements()}, float32(scalar)),
	})
	return must("MulScalar", result, err)
}

// RepeatInterleave expands repeats into int64 indices. The running sum is
// computed on the host; every output position binary-searches it on GPU.
func (b *Backend) RepeatInterleave(repeats *tensor.RawTensor) *tensor.RawTensor {
	ends, err := tensor.RepeatOffsets(repeats)
	if err != nil {
		panic("webgpu: RepeatInterleave: " + err.Error())
	}
	table, err := endsTable(ends)
	if err != nil {
		panic("webgpu: RepeatInterleave: " + err.Error())
	}
	total := int(ends[len(ends)-1])
	result, err := b.run(kernel{
		name:     "repeat_interleave",
		code:     repeatInterleaveShader,
		extras:   [][]byte{table},
		outShape: tensor.Shape{total},
		outDType: tensor.Int32,
		params:   uniform(total, len(ends)),
	})
	return widenInt32(must("RepeatInterleave", result, err))
}
