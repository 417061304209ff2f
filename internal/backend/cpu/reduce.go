package cpu

import (
	"fmt"

	"github.com/born-ml/devparity/internal/tensor"
)

// All reports whether every element of x is non-zero. The result is a 0-D
// tensor: uint8 for uint8 input, bool for everything else.
func (cpu *CPUBackend) All(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, AllResultType(x.DType()), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("all: %v", err))
	}

	ok := true
	for i, n := 0, x.NumElements(); i < n; i++ {
		if !Truthy(x, i) {
			ok = false
			break
		}
	}
	SetTruth(result, 0, ok)
	return result
}

// AllDim reduces x along dim with logical AND.
func (cpu *CPUBackend) AllDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) == 0 {
		// A 0-D tensor accepts dim 0 and -1 like a 1-element vector.
		if _, err := tensor.NormalizeDim(dim, 1); err != nil {
			panic(fmt.Sprintf("all: %v", err))
		}
		return cpu.All(x)
	}

	d, err := tensor.NormalizeDim(dim, len(shape))
	if err != nil {
		panic(fmt.Sprintf("all: %v", err))
	}

	result, err := tensor.NewRaw(tensor.ReducedShape(shape, d, keepDim), AllResultType(x.DType()), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("all: %v", err))
	}

	outer, size, inner := shape.SplitAt(d)
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			ok := true
			base := o*size*inner + i
			for k := 0; k < size; k++ {
				if !Truthy(x, base+k*inner) {
					ok = false
					break
				}
			}
			SetTruth(result, o*inner+i, ok)
		}
	}
	return result
}

// AllResultType is the dtype produced by a logical reduction of dt.
func AllResultType(dt tensor.DataType) tensor.DataType {
	if dt == tensor.Uint8 {
		return tensor.Uint8
	}
	return tensor.Bool
}

// SetTruth stores v at element i of a bool or uint8 tensor.
func SetTruth(r *tensor.RawTensor, i int, v bool) {
	if r.DType() == tensor.Uint8 {
		var b uint8
		if v {
			b = 1
		}
		r.AsUint8()[i] = b
		return
	}
	r.AsBool()[i] = v
}

// SumDim sums x along dim. Floats accumulate in float64 and integers in
// int64 before narrowing to the input dtype.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) == 0 {
		if _, err := tensor.NormalizeDim(dim, 1); err != nil {
			panic(fmt.Sprintf("sum: %v", err))
		}
		return x.Copy(cpu.device)
	}
	d, err := tensor.NormalizeDim(dim, len(shape))
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}
	result, err := tensor.NewRaw(tensor.ReducedShape(shape, d, keepDim), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	outer, size, inner := shape.SplitAt(d)
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			base := o*size*inner + i
			j := o*inner + i
			switch x.DType() {
			case tensor.Float32, tensor.Float64:
				var sum float64
				for k := 0; k < size; k++ {
					sum += x.Float64At(base + k*inner)
				}
				if x.DType() == tensor.Float32 {
					result.AsFloat32()[j] = float32(sum)
				} else {
					result.AsFloat64()[j] = sum
				}
			case tensor.Int32, tensor.Int64:
				var sum int64
				for k := 0; k < size; k++ {
					sum += Int64At(x, base+k*inner)
				}
				if x.DType() == tensor.Int32 {
					result.AsInt32()[j] = int32(sum) //nolint:gosec // G115: wraps like an int32 sum
				} else {
					result.AsInt64()[j] = sum
				}
			default:
				panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
			}
		}
	}
	return result
}
