package multicore

import (
	"fmt"

	"github.com/born-ml/devparity/internal/parallel"
	"github.com/born-ml/devparity/internal/tensor"
)

// Interpolate resamples the trailing spatial dimensions using precomputed
// tap tables. Work is split by output rows.
func (b *Backend) Interpolate(x *tensor.RawTensor, cfg tensor.InterpolateConfig) *tensor.RawTensor {
	outShape, err := cfg.OutputShape(x.Shape())
	if err != nil {
		panic(fmt.Sprintf("interpolate: %v", err))
	}
	axes := paddedTables("interpolate", cfg, x.Shape())
	out := b.alloc("interpolate", outShape, x.DType())
	planes := x.Shape()[0] * x.Shape()[1]

	switch x.DType() {
	case tensor.Float32:
		forward(b.cfg, out.AsFloat32(), x.AsFloat32(), planes, axes)
	case tensor.Float64:
		forward(b.cfg, out.AsFloat64(), x.AsFloat64(), planes, axes)
	default:
		panic(fmt.Sprintf("interpolate: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}
	return out
}

// InterpolateBackward computes each input gradient as the weighted sum of
// the output gradients that read it.
func (b *Backend) InterpolateBackward(grad *tensor.RawTensor, inputShape tensor.Shape,
	cfg tensor.InterpolateConfig,
) *tensor.RawTensor {
	outShape, err := cfg.OutputShape(inputShape)
	if err != nil {
		panic(fmt.Sprintf("interpolate_backward: %v", err))
	}
	if !grad.Shape().Equal(outShape) {
		panic(fmt.Sprintf("interpolate_backward: grad shape %v, expected %v", grad.Shape(), outShape))
	}
	axes := paddedTables("interpolate_backward", cfg, inputShape)
	out := b.alloc("interpolate_backward", inputShape, grad.DType())
	planes := inputShape[0] * inputShape[1]

	switch grad.DType() {
	case tensor.Float32:
		backward(b.cfg, out.AsFloat32(), grad.AsFloat32(), planes, axes)
	case tensor.Float64:
		backward(b.cfg, out.AsFloat64(), grad.AsFloat64(), planes, axes)
	default:
		panic(fmt.Sprintf("interpolate_backward: unsupported dtype %s (only float32/float64 supported)", grad.DType()))
	}
	return out
}

// paddedTables returns exactly three axes (D, H, W). Leading axes the mode
// does not resample are identity taps of size 1.
func paddedTables(op string, cfg tensor.InterpolateConfig, input tensor.Shape) [3]tensor.LinearAxis {
	tables, err := cfg.LinearTables(input)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	var axes [3]tensor.LinearAxis
	pad := 3 - len(tables)
	for k := 0; k < pad; k++ {
		axes[k] = identityAxis()
	}
	copy(axes[pad:], tables)
	return axes
}

func identityAxis() tensor.LinearAxis {
	return tensor.LinearAxis{
		In: 1, Out: 1,
		I0: []int{0}, I1: []int{0},
		L0: []float32{1}, L1: []float32{0},
		Start: []int{0}, End: []int{1},
	}
}

type float interface {
	~float32 | ~float64
}

func forward[T float](cfg parallel.Config, dst, src []T, planes int, axes [3]tensor.LinearAxis) {
	ad, ah, aw := &axes[0], &axes[1], &axes[2]
	inH, inW := ah.In, aw.In
	inPlane := ad.In * inH * inW
	outW := aw.Out
	rows := planes * ad.Out * ah.Out

	parallel.ForRange(rows, func(s, e int) {
		for r := s; r < e; r++ {
			p, rest := r/(ad.Out*ah.Out), r%(ad.Out*ah.Out)
			od, oh := rest/ah.Out, rest%ah.Out
			in := src[p*inPlane : (p+1)*inPlane]

			d0, d1 := ad.I0[od]*inH*inW, ad.I1[od]*inH*inW
			h0, h1 := ah.I0[oh]*inW, ah.I1[oh]*inW
			ld0, ld1 := T(ad.L0[od]), T(ad.L1[od])
			lh0, lh1 := T(ah.L0[oh]), T(ah.L1[oh])

			row := dst[r*outW : (r+1)*outW]
			for ow := range row {
				w0, w1 := aw.I0[ow], aw.I1[ow]
				lw0, lw1 := T(aw.L0[ow]), T(aw.L1[ow])
				row[ow] = ld0*(lh0*(lw0*in[d0+h0+w0]+lw1*in[d0+h0+w1])+
					lh1*(lw0*in[d0+h1+w0]+lw1*in[d0+h1+w1])) +
					ld1*(lh0*(lw0*in[d1+h0+w0]+lw1*in[d1+h0+w1])+
						lh1*(lw0*in[d1+h1+w0]+lw1*in[d1+h1+w1]))
			}
		}
	}, cfg)
}

func backward[T float](cfg parallel.Config, dst, grad []T, planes int, axes [3]tensor.LinearAxis) {
	ad, ah, aw := &axes[0], &axes[1], &axes[2]
	outH, outW := ah.Out, aw.Out
	outPlane := ad.Out * outH * outW
	inW := aw.In
	rows := planes * ad.In * ah.In

	parallel.ForRange(rows, func(s, e int) {
		for r := s; r < e; r++ {
			p, rest := r/(ad.In*ah.In), r%(ad.In*ah.In)
			id, ih := rest/ah.In, rest%ah.In
			g := grad[p*outPlane : (p+1)*outPlane]

			row := dst[r*inW : (r+1)*inW]
			for iw := range row {
				var acc float64
				for od := ad.Start[id]; od < ad.End[id]; od++ {
					wd := float64(ad.Weight(od, id))
					for oh := ah.Start[ih]; oh < ah.End[ih]; oh++ {
						wh := wd * float64(ah.Weight(oh, ih))
						base := (od*outH + oh) * outW
						for ow := aw.Start[iw]; ow < aw.End[iw]; ow++ {
							acc += wh * float64(aw.Weight(ow, iw)) * float64(g[base+ow])
						}
					}
				}
				row[iw] = T(acc)
			}
		}
	}, cfg)
}
