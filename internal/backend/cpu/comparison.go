package cpu

import (
	"fmt"

	"github.com/born-ml/devparity/internal/tensor"
)

// Equal returns a == b element-wise as a bool tensor.
func (cpu *CPUBackend) Equal(a, b *tensor.RawTensor) *tensor.RawTensor {
	checkSameLayout("equal", a, b)

	result, err := tensor.NewRaw(a.Shape(), tensor.Bool, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("equal: %v", err))
	}
	dst := result.AsBool()

	switch a.DType() {
	case tensor.Float32:
		equalInto(dst, a.AsFloat32(), b.AsFloat32())
	case tensor.Float64:
		equalInto(dst, a.AsFloat64(), b.AsFloat64())
	case tensor.Int32:
		equalInto(dst, a.AsInt32(), b.AsInt32())
	case tensor.Int64:
		equalInto(dst, a.AsInt64(), b.AsInt64())
	case tensor.Uint8:
		equalInto(dst, a.AsUint8(), b.AsUint8())
	case tensor.Bool:
		equalInto(dst, a.AsBool(), b.AsBool())
	default:
		panic(fmt.Sprintf("equal: unsupported dtype %s", a.DType()))
	}
	return result
}

func equalInto[T comparable](dst []bool, a, b []T) {
	for i := range dst {
		dst[i] = a[i] == b[i]
	}
}

// Where picks x[i] where condition[i] is non-zero and y[i] otherwise.
// The condition must be bool or uint8; all three shapes must match.
func (cpu *CPUBackend) Where(condition, x, y *tensor.RawTensor) *tensor.RawTensor {
	if condition.DType() != tensor.Bool && condition.DType() != tensor.Uint8 {
		panic(fmt.Sprintf("where: condition must be bool or uint8, got %s", condition.DType()))
	}
	if !condition.Shape().Equal(x.Shape()) {
		panic(fmt.Sprintf("where: condition shape %v does not match %v", condition.Shape(), x.Shape()))
	}
	checkSameLayout("where", x, y)

	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}

	n := x.NumElements()
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = Truthy(condition, i)
	}

	switch x.DType() {
	case tensor.Float32:
		whereInto(result.AsFloat32(), mask, x.AsFloat32(), y.AsFloat32())
	case tensor.Float64:
		whereInto(result.AsFloat64(), mask, x.AsFloat64(), y.AsFloat64())
	case tensor.Int32:
		whereInto(result.AsInt32(), mask, x.AsInt32(), y.AsInt32())
	case tensor.Int64:
		whereInto(result.AsInt64(), mask, x.AsInt64(), y.AsInt64())
	case tensor.Uint8:
		whereInto(result.AsUint8(), mask, x.AsUint8(), y.AsUint8())
	case tensor.Bool:
		whereInto(result.AsBool(), mask, x.AsBool(), y.AsBool())
	default:
		panic(fmt.Sprintf("where: unsupported dtype %s", x.DType()))
	}
	return result
}

func whereInto[T any](dst []T, mask []bool, x, y []T) {
	for i, m := range mask {
		if m {
			dst[i] = x[i]
		} else {
			dst[i] = y[i]
		}
	}
}
