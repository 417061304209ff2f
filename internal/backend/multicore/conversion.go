package multicore

import (
	"fmt"

	"github.com/born-ml/devparity/internal/parallel"
	"github.com/born-ml/devparity/internal/tensor"
)

// Cast converts x to dtype. Float to integer truncates toward zero and the
// narrowing wraps; any non-zero value becomes true.
func (b *Backend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	out := b.alloc("cast", x.Shape(), dtype)
	n := x.NumElements()

	switch dtype {
	case tensor.Float32:
		f, dst := floatReader(x), out.AsFloat32()
		fill(b.cfg, n, func(i int) { dst[i] = float32(f(i)) })
	case tensor.Float64:
		f, dst := floatReader(x), out.AsFloat64()
		fill(b.cfg, n, func(i int) { dst[i] = f(i) })
	case tensor.Int32:
		f, dst := intReader(x), out.AsInt32()
		fill(b.cfg, n, func(i int) { dst[i] = int32(f(i)) }) //nolint:gosec // G115: wrapping is the cast contract
	case tensor.Int64:
		f, dst := intReader(x), out.AsInt64()
		fill(b.cfg, n, func(i int) { dst[i] = f(i) })
	case tensor.Uint8:
		f, dst := intReader(x), out.AsUint8()
		fill(b.cfg, n, func(i int) { dst[i] = uint8(f(i)) }) //nolint:gosec // G115: wrapping is the cast contract
	case tensor.Bool:
		f, dst := truthReader(x), out.AsBool()
		fill(b.cfg, n, func(i int) { dst[i] = f(i) })
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %s", dtype))
	}
	return out
}

func fill(cfg parallel.Config, n int, f func(i int)) {
	parallel.ForRange(n, func(s, e int) {
		for i := s; i < e; i++ {
			f(i)
		}
	}, cfg)
}

func floatReader(x *tensor.RawTensor) func(int) float64 {
	switch x.DType() {
	case tensor.Float32:
		d := x.AsFloat32()
		return func(i int) float64 { return float64(d[i]) }
	case tensor.Float64:
		d := x.AsFloat64()
		return func(i int) float64 { return d[i] }
	default:
		n := intReader(x)
		return func(i int) float64 { return float64(n(i)) }
	}
}

func intReader(x *tensor.RawTensor) func(int) int64 {
	switch x.DType() {
	case tensor.Float32:
		d := x.AsFloat32()
		return func(i int) int64 { return int64(d[i]) }
	case tensor.Float64:
		d := x.AsFloat64()
		return func(i int) int64 { return int64(d[i]) }
	case tensor.Int32:
		d := x.AsInt32()
		return func(i int) int64 { return int64(d[i]) }
	case tensor.Int64:
		d := x.AsInt64()
		return func(i int) int64 { return d[i] }
	case tensor.Uint8:
		d := x.AsUint8()
		return func(i int) int64 { return int64(d[i]) }
	case tensor.Bool:
		d := x.AsBool()
		return func(i int) int64 {
			if d[i] {
				return 1
			}
			return 0
		}
	default:
		panic(fmt.Sprintf("unsupported dtype %s", x.DType()))
	}
}

// truthReader reports element truthiness. NaN is true.
func truthReader(x *tensor.RawTensor) func(int) bool {
	switch x.DType() {
	case tensor.Float32:
		d := x.AsFloat32()
		return func(i int) bool { return d[i] != 0 }
	case tensor.Float64:
		d := x.AsFloat64()
		return func(i int) bool { return d[i] != 0 }
	case tensor.Bool:
		d := x.AsBool()
		return func(i int) bool { return d[i] }
	default:
		n := intReader(x)
		return func(i int) bool { return n(i) != 0 }
	}
}
