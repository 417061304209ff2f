package multicore

import (
	"fmt"
	"math"

	"github.com/born-ml/devparity/internal/tensor"
)

// ELU applies the exponential linear unit element-wise.
func (b *Backend) ELU(x *tensor.RawTensor, p tensor.ELUParams) *tensor.RawTensor {
	out := b.alloc("elu", x.Shape(), x.DType())
	negCoef := p.Alpha * p.Scale
	switch x.DType() {
	case tensor.Float32:
		apply(b.cfg, out.AsFloat32(), x.AsFloat32(), func(v float32) float32 {
			if v > 0 {
				return v * float32(p.Scale)
			}
			return float32(math.Expm1(float64(v)*p.InputScale) * negCoef)
		})
	case tensor.Float64:
		apply(b.cfg, out.AsFloat64(), x.AsFloat64(), func(v float64) float64 {
			if v > 0 {
				return v * p.Scale
			}
			return math.Expm1(v*p.InputScale) * negCoef
		})
	default:
		panic(fmt.Sprintf("elu: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}
	return out
}

// ELUBackward computes the input gradient from the forward output.
func (b *Backend) ELUBackward(grad, output *tensor.RawTensor, p tensor.ELUParams) *tensor.RawTensor {
	checkSameLayout("elu_backward", grad, output)
	out := b.alloc("elu_backward", grad.Shape(), grad.DType())
	negCoef := p.Alpha * p.Scale
	switch grad.DType() {
	case tensor.Float32:
		g, y, dst := grad.AsFloat32(), output.AsFloat32(), out.AsFloat32()
		fill(b.cfg, len(dst), func(i int) {
			if y[i] > 0 {
				dst[i] = g[i] * float32(p.Scale)
				return
			}
			dst[i] = float32(float64(g[i]) * p.InputScale * (float64(y[i]) + negCoef))
		})
	case tensor.Float64:
		g, y, dst := grad.AsFloat64(), output.AsFloat64(), out.AsFloat64()
		fill(b.cfg, len(dst), func(i int) {
			if y[i] > 0 {
				dst[i] = g[i] * p.Scale
				return
			}
			dst[i] = g[i] * p.InputScale * (y[i] + negCoef)
		})
	default:
		panic(fmt.Sprintf("elu_backward: unsupported dtype %s (only float32/float64 supported)", grad.DType()))
	}
	return out
}
