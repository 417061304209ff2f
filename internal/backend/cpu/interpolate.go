package cpu

import (
	"fmt"

	"github.com/born-ml/devparity/internal/tensor"
)

// Interpolate resamples the trailing spatial dimensions of x with linear,
// bilinear or trilinear weights. Source coordinates are computed in float64
// for every output element.
func (cpu *CPUBackend) Interpolate(x *tensor.RawTensor, cfg tensor.InterpolateConfig) *tensor.RawTensor {
	outShape, err := cfg.OutputShape(x.Shape())
	if err != nil {
		panic(fmt.Sprintf("interpolate: %v", err))
	}
	if !x.DType().IsFloat() {
		panic(fmt.Sprintf("interpolate: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("interpolate: %v", err))
	}

	g := newGeometry(cfg, x.Shape(), outShape)
	src := toFloat64(x)
	dst := make([]float64, result.NumElements())

	inPlane, outPlane := g.in[0]*g.in[1]*g.in[2], g.out[0]*g.out[1]*g.out[2]
	for p := 0; p < g.planes; p++ {
		in := src[p*inPlane : (p+1)*inPlane]
		out := dst[p*outPlane : (p+1)*outPlane]
		for od := 0; od < g.out[0]; od++ {
			td := g.tap(0, od)
			for oh := 0; oh < g.out[1]; oh++ {
				th := g.tap(1, oh)
				for ow := 0; ow < g.out[2]; ow++ {
					tw := g.tap(2, ow)
					var v float64
					for _, d := range td.pairs() {
						for _, h := range th.pairs() {
							for _, w := range tw.pairs() {
								v += d.w * h.w * w.w * in[(d.i*g.in[1]+h.i)*g.in[2]+w.i]
							}
						}
					}
					out[(od*g.out[1]+oh)*g.out[2]+ow] = v
				}
			}
		}
	}

	fromFloat64(result, dst)
	return result
}

// InterpolateBackward scatters every output gradient onto the input
// elements it was drawn from.
func (cpu *CPUBackend) InterpolateBackward(grad *tensor.RawTensor, inputShape tensor.Shape,
	cfg tensor.InterpolateConfig,
) *tensor.RawTensor {
	outShape, err := cfg.OutputShape(inputShape)
	if err != nil {
		panic(fmt.Sprintf("interpolate_backward: %v", err))
	}
	if !grad.Shape().Equal(outShape) {
		panic(fmt.Sprintf("interpolate_backward: grad shape %v, expected %v", grad.Shape(), outShape))
	}
	if !grad.DType().IsFloat() {
		panic(fmt.Sprintf("interpolate_backward: unsupported dtype %s (only float32/float64 supported)", grad.DType()))
	}

	result, err := tensor.NewRaw(inputShape, grad.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("interpolate_backward: %v", err))
	}

	g := newGeometry(cfg, inputShape, outShape)
	gy := toFloat64(grad)
	gx := make([]float64, result.NumElements())

	inPlane, outPlane := g.in[0]*g.in[1]*g.in[2], g.out[0]*g.out[1]*g.out[2]
	for p := 0; p < g.planes; p++ {
		in := gx[p*inPlane : (p+1)*inPlane]
		out := gy[p*outPlane : (p+1)*outPlane]
		for od := 0; od < g.out[0]; od++ {
			td := g.tap(0, od)
			for oh := 0; oh < g.out[1]; oh++ {
				th := g.tap(1, oh)
				for ow := 0; ow < g.out[2]; ow++ {
					tw := g.tap(2, ow)
					gv := out[(od*g.out[1]+oh)*g.out[2]+ow]
					for _, d := range td.pairs() {
						for _, h := range th.pairs() {
							for _, w := range tw.pairs() {
								in[(d.i*g.in[1]+h.i)*g.in[2]+w.i] += d.w * h.w * w.w * gv
							}
						}
					}
				}
			}
		}
	}

	fromFloat64(result, gx)
	return result
}

// geometry views any interpolation as [planes, D, H, W]. Missing leading
// spatial axes have size 1 and a single unit tap.
type geometry struct {
	cfg     tensor.InterpolateConfig
	planes  int
	in, out [3]int
	axis    [3]int // spatial axis index in cfg, -1 for padding
	scale   [3]float64
}

func newGeometry(cfg tensor.InterpolateConfig, in, out tensor.Shape) geometry {
	spatial := cfg.Mode.SpatialDims()
	g := geometry{cfg: cfg, planes: in[0] * in[1]}
	pad := 3 - spatial
	for k := 0; k < 3; k++ {
		if k < pad {
			g.in[k], g.out[k], g.axis[k] = 1, 1, -1
			continue
		}
		a := k - pad
		g.in[k], g.out[k], g.axis[k] = in[2+a], out[2+a], a
		g.scale[k] = cfg.AxisScale(a, g.in[k], g.out[k])
	}
	return g
}

type weighted struct {
	i int
	w float64
}

type tap struct {
	i0, i1 int
	l0, l1 float64
}

func (t tap) pairs() [2]weighted {
	return [2]weighted{{t.i0, t.l0}, {t.i1, t.l1}}
}

func (g *geometry) tap(k, o int) tap {
	if g.axis[k] < 0 {
		return tap{l0: 1}
	}
	in := g.in[k]
	src := tensor.SourceIndex(g.scale[k], o, g.cfg.AlignCorners)
	i0 := int(src)
	if i0 > in-1 {
		i0 = in - 1
	}
	i1 := i0
	if i0 < in-1 {
		i1 = i0 + 1
	}
	l1 := src - float64(i0)
	return tap{i0: i0, i1: i1, l0: 1 - l1, l1: l1}
}

func toFloat64(x *tensor.RawTensor) []float64 {
	if x.DType() == tensor.Float64 {
		return append([]float64(nil), x.AsFloat64()...)
	}
	src := x.AsFloat32()
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}
	return out
}

func fromFloat64(r *tensor.RawTensor, vals []float64) {
	if r.DType() == tensor.Float64 {
		copy(r.AsFloat64(), vals)
		return
	}
	dst := r.AsFloat32()
	for i, v := range vals {
		dst[i] = float32(v)
	}
}
