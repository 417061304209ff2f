package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/devparity/internal/tensor"
)

// ELU applies the exponential linear unit element-wise.
//
//	x > 0:  scale * x
//	x <= 0: alpha * scale * (exp(inputScale * x) - 1)
func (cpu *CPUBackend) ELU(x *tensor.RawTensor, p tensor.ELUParams) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("elu: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(ELUValue(float64(v), p))
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			dst[i] = ELUValue(v, p)
		}
	default:
		panic(fmt.Sprintf("elu: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}
	return result
}

// ELUBackward computes the input gradient from the forward output:
//
//	output > 0:  grad * scale
//	output <= 0: grad * inputScale * (output + alpha * scale)
func (cpu *CPUBackend) ELUBackward(grad, output *tensor.RawTensor, p tensor.ELUParams) *tensor.RawTensor {
	checkSameLayout("elu_backward", grad, output)

	result, err := tensor.NewRaw(grad.Shape(), grad.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("elu_backward: %v", err))
	}

	switch grad.DType() {
	case tensor.Float32:
		g, out, dst := grad.AsFloat32(), output.AsFloat32(), result.AsFloat32()
		for i := range dst {
			dst[i] = float32(ELUGrad(float64(g[i]), float64(out[i]), p))
		}
	case tensor.Float64:
		g, out, dst := grad.AsFloat64(), output.AsFloat64(), result.AsFloat64()
		for i := range dst {
			dst[i] = ELUGrad(g[i], out[i], p)
		}
	default:
		panic(fmt.Sprintf("elu_backward: unsupported dtype %s (only float32/float64 supported)", grad.DType()))
	}
	return result
}

// ELUValue is the scalar ELU.
func ELUValue(x float64, p tensor.ELUParams) float64 {
	if x <= 0 {
		return (math.Exp(x*p.InputScale) - 1) * p.Alpha * p.Scale
	}
	return x * p.Scale
}

// ELUGrad is the scalar ELU gradient given the forward output.
func ELUGrad(grad, output float64, p tensor.ELUParams) float64 {
	if output <= 0 {
		return grad * p.InputScale * (output + p.Alpha*p.Scale)
	}
	return grad * p.Scale
}
