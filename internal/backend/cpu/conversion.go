package cpu

import (
	"fmt"

	"github.com/born-ml/devparity/internal/tensor"
)

// Cast converts x to dtype.
//
// Float sources truncate toward zero before narrowing to an integer type,
// and the narrowing wraps modulo 2^width (300.7 -> uint8 44,
// 3e9 -> int32 -1294967296). Float magnitudes must stay below 2^63; NaN and
// infinities have no defined integer value. Any non-zero value becomes true
// when casting to bool.
func (cpu *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cast: %v", err))
	}

	n := x.NumElements()
	switch dtype {
	case tensor.Float32:
		dst := result.AsFloat32()
		for i := 0; i < n; i++ {
			dst[i] = float32(x.Float64At(i))
		}
	case tensor.Float64:
		dst := result.AsFloat64()
		for i := 0; i < n; i++ {
			dst[i] = x.Float64At(i)
		}
	case tensor.Int32:
		dst := result.AsInt32()
		for i := 0; i < n; i++ {
			dst[i] = int32(Int64At(x, i)) //nolint:gosec // G115: wrapping is the cast contract
		}
	case tensor.Int64:
		dst := result.AsInt64()
		for i := 0; i < n; i++ {
			dst[i] = Int64At(x, i)
		}
	case tensor.Uint8:
		dst := result.AsUint8()
		for i := 0; i < n; i++ {
			dst[i] = uint8(Int64At(x, i)) //nolint:gosec // G115: wrapping is the cast contract
		}
	case tensor.Bool:
		dst := result.AsBool()
		for i := 0; i < n; i++ {
			dst[i] = Truthy(x, i)
		}
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %s", dtype))
	}
	return result
}

// Int64At returns element i of x as an int64. Floats truncate toward zero.
func Int64At(x *tensor.RawTensor, i int) int64 {
	switch x.DType() {
	case tensor.Float32:
		return int64(x.AsFloat32()[i])
	case tensor.Float64:
		return int64(x.AsFloat64()[i])
	case tensor.Int32:
		return int64(x.AsInt32()[i])
	case tensor.Int64:
		return x.AsInt64()[i]
	case tensor.Uint8:
		return int64(x.AsUint8()[i])
	case tensor.Bool:
		if x.AsBool()[i] {
			return 1
		}
		return 0
	default:
		panic(fmt.Sprintf("unsupported dtype %s", x.DType()))
	}
}

// Truthy reports whether element i of x is non-zero. NaN counts as true.
func Truthy(x *tensor.RawTensor, i int) bool {
	switch x.DType() {
	case tensor.Float32:
		return x.AsFloat32()[i] != 0
	case tensor.Float64:
		return x.AsFloat64()[i] != 0
	case tensor.Int32:
		return x.AsInt32()[i] != 0
	case tensor.Int64:
		return x.AsInt64()[i] != 0
	case tensor.Uint8:
		return x.AsUint8()[i] != 0
	case tensor.Bool:
		return x.AsBool()[i]
	default:
		panic(fmt.Sprintf("unsupported dtype %s", x.DType()))
	}
}
