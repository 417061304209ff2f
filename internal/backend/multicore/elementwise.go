package multicore

import (
	"fmt"
	"math"

	"github.com/born-ml/devparity/internal/parallel"
	"github.com/born-ml/devparity/internal/tensor"
)

type number interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8
}

// Add performs element-wise addition. Shapes and dtypes must match.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	checkSameLayout("add", x, y)
	out := b.alloc("add", x.Shape(), x.DType())
	switch x.DType() {
	case tensor.Float32:
		zip(b.cfg, out.AsFloat32(), x.AsFloat32(), y.AsFloat32(), add[float32])
	case tensor.Float64:
		zip(b.cfg, out.AsFloat64(), x.AsFloat64(), y.AsFloat64(), add[float64])
	case tensor.Int32:
		zip(b.cfg, out.AsInt32(), x.AsInt32(), y.AsInt32(), add[int32])
	case tensor.Int64:
		zip(b.cfg, out.AsInt64(), x.AsInt64(), y.AsInt64(), add[int64])
	case tensor.Uint8:
		zip(b.cfg, out.AsUint8(), x.AsUint8(), y.AsUint8(), add[uint8])
	default:
		panic(fmt.Sprintf("add: unsupported dtype %s", x.DType()))
	}
	return out
}

// Sub performs element-wise subtraction. Shapes and dtypes must match.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	checkSameLayout("sub", x, y)
	out := b.alloc("sub", x.Shape(), x.DType())
	switch x.DType() {
	case tensor.Float32:
		zip(b.cfg, out.AsFloat32(), x.AsFloat32(), y.AsFloat32(), sub[float32])
	case tensor.Float64:
		zip(b.cfg, out.AsFloat64(), x.AsFloat64(), y.AsFloat64(), sub[float64])
	case tensor.Int32:
		zip(b.cfg, out.AsInt32(), x.AsInt32(), y.AsInt32(), sub[int32])
	case tensor.Int64:
		zip(b.cfg, out.AsInt64(), x.AsInt64(), y.AsInt64(), sub[int64])
	case tensor.Uint8:
		zip(b.cfg, out.AsUint8(), x.AsUint8(), y.AsUint8(), sub[uint8])
	default:
		panic(fmt.Sprintf("sub: unsupported dtype %s", x.DType()))
	}
	return out
}

func add[T number](x, y T) T { return x + y }
func sub[T number](x, y T) T { return x - y }

func zip[T, U any](cfg parallel.Config, dst []U, x, y []T, f func(T, T) U) {
	parallel.ForRange(len(dst), func(s, e int) {
		for i := s; i < e; i++ {
			dst[i] = f(x[i], y[i])
		}
	}, cfg)
}

// Equal returns x == y element-wise as a bool tensor.
func (b *Backend) Equal(x, y *tensor.RawTensor) *tensor.RawTensor {
	checkSameLayout("equal", x, y)
	out := b.alloc("equal", x.Shape(), tensor.Bool)
	dst := out.AsBool()
	switch x.DType() {
	case tensor.Float32:
		zip(b.cfg, dst, x.AsFloat32(), y.AsFloat32(), eq[float32])
	case tensor.Float64:
		zip(b.cfg, dst, x.AsFloat64(), y.AsFloat64(), eq[float64])
	case tensor.Int32:
		zip(b.cfg, dst, x.AsInt32(), y.AsInt32(), eq[int32])
	case tensor.Int64:
		zip(b.cfg, dst, x.AsInt64(), y.AsInt64(), eq[int64])
	case tensor.Uint8:
		zip(b.cfg, dst, x.AsUint8(), y.AsUint8(), eq[uint8])
	case tensor.Bool:
		zip(b.cfg, dst, x.AsBool(), y.AsBool(), eq[bool])
	default:
		panic(fmt.Sprintf("equal: unsupported dtype %s", x.DType()))
	}
	return out
}

func eq[T comparable](x, y T) bool { return x == y }

// Where picks x[i] where condition[i] is non-zero and y[i] otherwise.
func (b *Backend) Where(condition, x, y *tensor.RawTensor) *tensor.RawTensor {
	if condition.DType() != tensor.Bool && condition.DType() != tensor.Uint8 {
		panic(fmt.Sprintf("where: condition must be bool or uint8, got %s", condition.DType()))
	}
	if !condition.Shape().Equal(x.Shape()) {
		panic(fmt.Sprintf("where: condition shape %v does not match %v", condition.Shape(), x.Shape()))
	}
	checkSameLayout("where", x, y)

	out := b.alloc("where", x.Shape(), x.DType())
	truth := truthReader(condition)
	src, other, dst := x.Data(), y.Data(), out.Data()
	size := x.DType().Size()

	// Select whole elements byte-wise; the layout is identical for x, y and out.
	parallel.ForRange(x.NumElements(), func(s, e int) {
		for i := s; i < e; i++ {
			from := other
			if truth(i) {
				from = src
			}
			copy(dst[i*size:(i+1)*size], from[i*size:(i+1)*size])
		}
	}, b.cfg)
	return out
}

// RemainderScalar computes x mod divisor with the sign of the divisor.
func (b *Backend) RemainderScalar(x *tensor.RawTensor, divisor float64) *tensor.RawTensor {
	out := b.alloc("remainder", x.Shape(), x.DType())
	switch x.DType() {
	case tensor.Float32:
		apply(b.cfg, out.AsFloat32(), x.AsFloat32(), func(v float32) float32 {
			return float32(floorMod(float64(v), divisor))
		})
	case tensor.Float64:
		apply(b.cfg, out.AsFloat64(), x.AsFloat64(), func(v float64) float64 {
			return floorMod(v, divisor)
		})
	case tensor.Int32:
		d := intDivisor(divisor)
		apply(b.cfg, out.AsInt32(), x.AsInt32(), func(v int32) int32 {
			return int32(floorModInt(int64(v), d)) //nolint:gosec // G115: |result| < |divisor|
		})
	case tensor.Int64:
		d := intDivisor(divisor)
		apply(b.cfg, out.AsInt64(), x.AsInt64(), func(v int64) int64 {
			return floorModInt(v, d)
		})
	case tensor.Uint8:
		d := intDivisor(divisor)
		apply(b.cfg, out.AsUint8(), x.AsUint8(), func(v uint8) uint8 {
			return uint8(floorModInt(int64(v), d)) //nolint:gosec // G115: wraps like a uint8 store
		})
	default:
		panic(fmt.Sprintf("remainder: unsupported dtype %s", x.DType()))
	}
	return out
}

func apply[T, U any](cfg parallel.Config, dst []U, src []T, f func(T) U) {
	parallel.ForRange(len(dst), func(s, e int) {
		for i := s; i < e; i++ {
			dst[i] = f(src[i])
		}
	}, cfg)
}

// floorMod computes x - d*floor(x/d) through math.Mod to stay exact.
func floorMod(x, d float64) float64 {
	r := math.Mod(x, d)
	if r != 0 && (r < 0) != (d < 0) {
		r += d
	}
	return r
}

func floorModInt(x, d int64) int64 {
	r := x % d
	if r != 0 && (r < 0) != (d < 0) {
		r += d
	}
	return r
}

func intDivisor(divisor float64) int64 {
	if divisor != math.Trunc(divisor) || math.IsInf(divisor, 0) {
		panic(fmt.Sprintf("remainder: integer tensor needs an integral divisor, got %v", divisor))
	}
	if divisor == 0 {
		panic("remainder: integer division by zero")
	}
	return int64(divisor)
}

// MulScalar multiplies every element of a float tensor by scalar.
func (b *Backend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	out := b.alloc("mul_scalar", x.Shape(), x.DType())
	switch x.DType() {
	case tensor.Float32:
		apply(b.cfg, out.AsFloat32(), x.AsFloat32(), func(v float32) float32 {
			return float32(float64(v) * scalar)
		})
	case tensor.Float64:
		apply(b.cfg, out.AsFloat64(), x.AsFloat64(), func(v float64) float64 { return v * scalar })
	default:
		panic(fmt.Sprintf("mul_scalar: unsupported dtype %s", x.DType()))
	}
	return out
}
