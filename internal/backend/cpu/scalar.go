package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/devparity/internal/tensor"
)

// RemainderScalar computes x mod divisor. The result takes the sign of
// the divisor, so -3 mod 2 is 1. Integer tensors require an integral,
// non-zero divisor.
func (cpu *CPUBackend) RemainderScalar(x *tensor.RawTensor, divisor float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("remainder: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(FloorMod(float64(v), divisor))
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			dst[i] = FloorMod(v, divisor)
		}
	case tensor.Int32:
		d := IntDivisor("remainder", divisor)
		src, dst := x.AsInt32(), result.AsInt32()
		for i, v := range src {
			dst[i] = int32(FloorModInt(int64(v), d)) //nolint:gosec // G115: |result| < |divisor|
		}
	case tensor.Int64:
		d := IntDivisor("remainder", divisor)
		src, dst := x.AsInt64(), result.AsInt64()
		for i, v := range src {
			dst[i] = FloorModInt(v, d)
		}
	case tensor.Uint8:
		d := IntDivisor("remainder", divisor)
		src, dst := x.AsUint8(), result.AsUint8()
		for i, v := range src {
			dst[i] = uint8(FloorModInt(int64(v), d)) //nolint:gosec // G115: wraps like a uint8 store
		}
	default:
		panic(fmt.Sprintf("remainder: unsupported dtype %s", x.DType()))
	}
	return result
}

// FloorMod is the floating remainder with the sign of the divisor.
func FloorMod(x, d float64) float64 {
	r := math.Mod(x, d)
	if r != 0 && (r < 0) != (d < 0) {
		r += d
	}
	return r
}

// FloorModInt is the integer remainder with the sign of the divisor.
func FloorModInt(x, d int64) int64 {
	r := x % d
	if r != 0 && (r < 0) != (d < 0) {
		r += d
	}
	return r
}

// IntDivisor validates a divisor for integer tensors.
func IntDivisor(op string, divisor float64) int64 {
	if divisor != math.Trunc(divisor) || math.IsInf(divisor, 0) {
		panic(fmt.Sprintf("%s: integer tensor needs an integral divisor, got %v", op, divisor))
	}
	if divisor == 0 {
		panic(fmt.Sprintf("%s: integer division by zero", op))
	}
	return int64(divisor)
}

// MulScalar multiplies every element of a float tensor by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mul_scalar: %v", err))
	}
	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(float64(v) * scalar)
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			dst[i] = v * scalar
		}
	default:
		panic(fmt.Sprintf("mul_scalar: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}
	return result
}
