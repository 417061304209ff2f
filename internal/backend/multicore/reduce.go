package multicore

import (
	"fmt"
	"sync/atomic"

	"github.com/born-ml/devparity/internal/parallel"
	"github.com/born-ml/devparity/internal/tensor"
)

// All reports whether every element of x is non-zero. Workers stop early
// once any of them has found a zero.
func (b *Backend) All(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.alloc("all", tensor.Shape{}, resultType(x.DType()))
	truth := truthReader(x)

	var failed atomic.Bool
	parallel.ForRange(x.NumElements(), func(s, e int) {
		for i := s; i < e; i++ {
			if failed.Load() {
				return
			}
			if !truth(i) {
				failed.Store(true)
				return
			}
		}
	}, b.cfg)

	setTruth(out, 0, !failed.Load())
	return out
}

// AllDim reduces x along dim with logical AND. Each output element is
// owned by exactly one worker.
func (b *Backend) AllDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) == 0 {
		if _, err := tensor.NormalizeDim(dim, 1); err != nil {
			panic(fmt.Sprintf("all: %v", err))
		}
		return b.All(x)
	}
	d, err := tensor.NormalizeDim(dim, len(shape))
	if err != nil {
		panic(fmt.Sprintf("all: %v", err))
	}

	out := b.alloc("all", tensor.ReducedShape(shape, d, keepDim), resultType(x.DType()))
	truth := truthReader(x)
	_, size, inner := shape.SplitAt(d)

	parallel.ForRange(out.NumElements(), func(s, e int) {
		for j := s; j < e; j++ {
			o, i := j/inner, j%inner
			base := o*size*inner + i
			ok := true
			for k := 0; k < size && ok; k++ {
				ok = truth(base + k*inner)
			}
			setTruth(out, j, ok)
		}
	}, b.cfg)
	return out
}

func resultType(dt tensor.DataType) tensor.DataType {
	if dt == tensor.Uint8 {
		return tensor.Uint8
	}
	return tensor.Bool
}

func setTruth(r *tensor.RawTensor, i int, v bool) {
	if r.DType() == tensor.Bool {
		r.AsBool()[i] = v
		return
	}
	if v {
		r.AsUint8()[i] = 1
	} else {
		r.AsUint8()[i] = 0
	}
}

// SumDim sums x along dim. Each output element is accumulated by one
// worker in float64 (floats) or int64 (integers).
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) == 0 {
		if _, err := tensor.NormalizeDim(dim, 1); err != nil {
			panic(fmt.Sprintf("sum: %v", err))
		}
		return b.Transfer(x)
	}
	d, err := tensor.NormalizeDim(dim, len(shape))
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}
	out := b.alloc("sum", tensor.ReducedShape(shape, d, keepDim), x.DType())
	_, size, inner := shape.SplitAt(d)

	var store func(j, base int)
	switch x.DType() {
	case tensor.Float32, tensor.Float64:
		f := floatReader(x)
		store = func(j, base int) {
			var sum float64
			for k := 0; k < size; k++ {
				sum += f(base + k*inner)
			}
			if x.DType() == tensor.Float32 {
				out.AsFloat32()[j] = float32(sum)
			} else {
				out.AsFloat64()[j] = sum
			}
		}
	case tensor.Int32, tensor.Int64:
		f := intReader(x)
		store = func(j, base int) {
			var sum int64
			for k := 0; k < size; k++ {
				sum += f(base + k*inner)
			}
			if x.DType() == tensor.Int32 {
				out.AsInt32()[j] = int32(sum) //nolint:gosec // G115: wraps like an int32 sum
			} else {
				out.AsInt64()[j] = sum
			}
		}
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	parallel.ForRange(out.NumElements(), func(s, e int) {
		for j := s; j < e; j++ {
			o, i := j/inner, j%inner
			store(j, o*size*inner+i)
		}
	}, b.cfg)
	return out
}
