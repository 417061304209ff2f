package tensor

import (
	"fmt"
	"math"
)

// InterpolateMode selects the linear interpolation flavor. The mode fixes
// the number of spatial dimensions and therefore the input rank.
type InterpolateMode string

// Supported interpolation modes.
const (
	Linear    InterpolateMode = "linear"    // [N, C, W]
	Bilinear  InterpolateMode = "bilinear"  // [N, C, H, W]
	Trilinear InterpolateMode = "trilinear" // [N, C, D, H, W]
)

// SpatialDims returns how many trailing dimensions the mode resamples,
// or 0 for an unknown mode.
func (m InterpolateMode) SpatialDims() int {
	switch m {
	case Linear:
		return 1
	case Bilinear:
		return 2
	case Trilinear:
		return 3
	default:
		return 0
	}
}

// InterpolateConfig describes a resize. Exactly one of Scales and Size is set.
//
// Output sizes are floor(in * scale) per spatial axis. Source coordinates
// follow the half-pixel convention unless AlignCorners is set, in which case
// the corner pixels of input and output are aligned. When scales are given
// and RecomputeScaleFactor is false the coordinate scale is 1/scale;
// otherwise it is recomputed as in/out.
type InterpolateConfig struct {
	Mode                 InterpolateMode
	Scales               []float64
	Size                 []int
	AlignCorners         bool
	RecomputeScaleFactor bool
}

// Validate checks the config against an input shape.
func (c InterpolateConfig) Validate(input Shape) error {
	spatial := c.Mode.SpatialDims()
	if spatial == 0 {
		return fmt.Errorf("interpolate: unsupported mode %q", c.Mode)
	}
	if len(input) != spatial+2 {
		return fmt.Errorf("interpolate: got %dD input, but %s mode needs %dD input",
			len(input), c.Mode, spatial+2)
	}
	if err := input.Validate(); err != nil {
		return fmt.Errorf("interpolate: %w", err)
	}
	switch {
	case c.Scales != nil && c.Size != nil:
		return fmt.Errorf("interpolate: only one of size or scale_factor should be defined")
	case c.Scales == nil && c.Size == nil:
		return fmt.Errorf("interpolate: either size or scale_factor should be defined")
	case c.Scales != nil && len(c.Scales) != spatial:
		return fmt.Errorf("interpolate: scale_factor has %d values, %s mode needs %d",
			len(c.Scales), c.Mode, spatial)
	case c.Size != nil && len(c.Size) != spatial:
		return fmt.Errorf("interpolate: size has %d values, %s mode needs %d",
			len(c.Size), c.Mode, spatial)
	}
	for i, s := range c.Scales {
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("interpolate: scale_factor[%d] must be positive and finite, got %v", i, s)
		}
	}
	for i := 0; i < spatial; i++ {
		in := input[2+i]
		if out := c.outSize(i, in); out <= 0 {
			return fmt.Errorf("interpolate: output size for spatial dim %d is %d (input %d)", i, out, in)
		}
	}
	return nil
}

func (c InterpolateConfig) outSize(axis, in int) int {
	if c.Size != nil {
		return c.Size[axis]
	}
	return int(math.Floor(float64(in) * c.Scales[axis]))
}

// OutputShape returns the resized shape for input.
func (c InterpolateConfig) OutputShape(input Shape) (Shape, error) {
	if err := c.Validate(input); err != nil {
		return nil, err
	}
	out := input.Clone()
	for i := 0; i < c.Mode.SpatialDims(); i++ {
		out[2+i] = c.outSize(i, input[2+i])
	}
	return out, nil
}

// AxisScale returns the factor mapping output coordinates to input
// coordinates along spatial axis.
func (c InterpolateConfig) AxisScale(axis, in, out int) float64 {
	if c.AlignCorners {
		if out > 1 {
			return float64(in-1) / float64(out-1)
		}
		return 0
	}
	if c.Scales != nil && !c.RecomputeScaleFactor && c.Scales[axis] > 0 {
		return 1 / c.Scales[axis]
	}
	return float64(in) / float64(out)
}

// SourceIndex maps an output coordinate to a fractional input coordinate.
// Negative half-pixel coordinates clamp to zero.
func SourceIndex(scale float64, dst int, alignCorners bool) float64 {
	if alignCorners {
		return scale * float64(dst)
	}
	src := scale*(float64(dst)+0.5) - 0.5
	if src < 0 {
		return 0
	}
	return src
}

// LinearAxis holds the two-tap weights for one spatial axis.
//
// Output o reads inputs I0[o] and I1[o] with weights L0[o] and L1[o].
// Input i is read by outputs [Start[i], End[i]); the range is empty when
// no output touches i.
type LinearAxis struct {
	In, Out int
	I0, I1  []int
	L0, L1  []float32
	Start   []int
	End     []int
}

// Weight returns how much output o draws from input i.
func (a *LinearAxis) Weight(o, i int) float32 {
	var w float32
	if a.I0[o] == i {
		w += a.L0[o]
	}
	if a.I1[o] == i {
		w += a.L1[o]
	}
	return w
}

// LinearTables precomputes the per-axis weights for input. The result has
// one entry per spatial dimension, outermost first.
func (c InterpolateConfig) LinearTables(input Shape) ([]LinearAxis, error) {
	outShape, err := c.OutputShape(input)
	if err != nil {
		return nil, err
	}
	spatial := c.Mode.SpatialDims()
	axes := make([]LinearAxis, spatial)
	for d := 0; d < spatial; d++ {
		in, out := input[2+d], outShape[2+d]
		axes[d] = c.linearAxis(d, in, out)
	}
	return axes, nil
}

func (c InterpolateConfig) linearAxis(axis, in, out int) LinearAxis {
	a := LinearAxis{
		In:    in,
		Out:   out,
		I0:    make([]int, out),
		I1:    make([]int, out),
		L0:    make([]float32, out),
		L1:    make([]float32, out),
		Start: make([]int, in),
		End:   make([]int, in),
	}
	scale := c.AxisScale(axis, in, out)
	for o := 0; o < out; o++ {
		src := SourceIndex(scale, o, c.AlignCorners)
		i0 := int(src)
		if i0 > in-1 {
			i0 = in - 1
		}
		i1 := i0
		if i0 < in-1 {
			i1 = i0 + 1
		}
		l1 := src - float64(i0)
		a.I0[o], a.I1[o] = i0, i1
		a.L0[o], a.L1[o] = float32(1-l1), float32(l1)
	}

	// I0 and I1 are non-decreasing, so the readers of each input are contiguous.
	for i := range a.Start {
		a.Start[i] = -1
	}
	for o := 0; o < out; o++ {
		for _, i := range [2]int{a.I0[o], a.I1[o]} {
			if a.Start[i] < 0 {
				a.Start[i] = o
			}
			a.End[i] = o + 1
		}
	}
	for i := range a.Start {
		if a.Start[i] < 0 {
			a.Start[i], a.End[i] = 0, 0
		}
	}
	return a
}
