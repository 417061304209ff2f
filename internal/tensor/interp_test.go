package tensor

import (
	"math"
	"strings"
	"testing"
)

func TestInterpolateOutputShape(t *testing.T) {
	tests := []struct {
		name  string
		cfg   InterpolateConfig
		input Shape
		want  Shape
	}{
		{"linear", InterpolateConfig{Mode: Linear, Scales: []float64{6}}, Shape{2, 3, 5}, Shape{2, 3, 30}},
		{"bilinear", InterpolateConfig{Mode: Bilinear, Scales: []float64{6, 8}}, Shape{2, 3, 5, 5}, Shape{2, 3, 30, 40}},
		{"trilinear", InterpolateConfig{Mode: Trilinear, Scales: []float64{6, 8, 1}}, Shape{2, 3, 2, 5, 5}, Shape{2, 3, 12, 40, 5}},
		{"fractional", InterpolateConfig{Mode: Linear, Scales: []float64{1.5}}, Shape{1, 1, 5}, Shape{1, 1, 7}},
		{"size", InterpolateConfig{Mode: Bilinear, Size: []int{3, 9}}, Shape{1, 2, 4, 4}, Shape{1, 2, 3, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.OutputShape(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			assertEqualShape(t, tt.want, got, "OutputShape")
		})
	}
}

func TestInterpolateValidate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   InterpolateConfig
		input Shape
		msg   string
	}{
		{"rank", InterpolateConfig{Mode: Bilinear, Scales: []float64{2, 2}}, Shape{2, 3, 5}, "needs 4D input"},
		{"mode", InterpolateConfig{Mode: "bicubic", Scales: []float64{2, 2}}, Shape{2, 3, 5, 5}, "unsupported mode"},
		{"both", InterpolateConfig{Mode: Linear, Scales: []float64{2}, Size: []int{4}}, Shape{1, 1, 2}, "only one of"},
		{"neither", InterpolateConfig{Mode: Linear}, Shape{1, 1, 2}, "either size"},
		{"scale count", InterpolateConfig{Mode: Linear, Scales: []float64{2, 2}}, Shape{1, 1, 2}, "scale_factor has 2"},
		{"non-positive", InterpolateConfig{Mode: Linear, Scales: []float64{0}}, Shape{1, 1, 2}, "positive"},
		{"empty output", InterpolateConfig{Mode: Linear, Scales: []float64{0.1}}, Shape{1, 1, 2}, "output size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.input)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestAxisScale(t *testing.T) {
	cfg := InterpolateConfig{Mode: Linear, Scales: []float64{1.5}}
	if got := cfg.AxisScale(0, 5, 7); math.Abs(got-1/1.5) > 1e-12 {
		t.Errorf("explicit scale: got %v, want %v", got, 1/1.5)
	}

	cfg.RecomputeScaleFactor = true
	if got := cfg.AxisScale(0, 5, 7); math.Abs(got-5.0/7.0) > 1e-12 {
		t.Errorf("recomputed scale: got %v, want %v", got, 5.0/7.0)
	}

	cfg.AlignCorners = true
	if got := cfg.AxisScale(0, 5, 7); math.Abs(got-4.0/6.0) > 1e-12 {
		t.Errorf("align corners: got %v, want %v", got, 4.0/6.0)
	}
	if got := cfg.AxisScale(0, 5, 1); got != 0 {
		t.Errorf("align corners with one output: got %v, want 0", got)
	}
}

func TestSourceIndexClampsHalfPixel(t *testing.T) {
	if got := SourceIndex(1.0/6, 0, false); got != 0 {
		t.Errorf("first half-pixel coordinate should clamp to 0, got %v", got)
	}
	want := (1.0/6)*(5+0.5) - 0.5
	if got := SourceIndex(1.0/6, 5, false); math.Abs(got-want) > 1e-12 {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := SourceIndex(0.5, 3, true); got != 1.5 {
		t.Errorf("align corners: got %v, want 1.5", got)
	}
}

func TestLinearTablesWeightsSumToOne(t *testing.T) {
	cfg := InterpolateConfig{Mode: Trilinear, Scales: []float64{6, 8, 1}}
	axes, err := cfg.LinearTables(Shape{2, 3, 2, 5, 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(axes) != 3 {
		t.Fatalf("got %d axes, want 3", len(axes))
	}
	for d, a := range axes {
		for o := 0; o < a.Out; o++ {
			sum := a.L0[o] + a.L1[o]
			if math.Abs(float64(sum)-1) > 1e-6 {
				t.Errorf("axis %d output %d weights sum to %v", d, o, sum)
			}
			if a.I0[o] < 0 || a.I1[o] >= a.In || a.I1[o] < a.I0[o] {
				t.Errorf("axis %d output %d reads %d,%d of %d", d, o, a.I0[o], a.I1[o], a.In)
			}
		}
	}
}

func TestLinearTablesGatherRangesCoverScatter(t *testing.T) {
	for _, cfg := range []InterpolateConfig{
		{Mode: Linear, Scales: []float64{6}},
		{Mode: Linear, Scales: []float64{0.5}},
		{Mode: Linear, Scales: []float64{2.5}, AlignCorners: true},
		{Mode: Linear, Size: []int{3}},
	} {
		axes, err := cfg.LinearTables(Shape{1, 1, 7})
		if err != nil {
			t.Fatal(err)
		}
		a := axes[0]

		// Scatter every output weight and compare with the gather view.
		scatter := make([]float64, a.In)
		for o := 0; o < a.Out; o++ {
			scatter[a.I0[o]] += float64(a.L0[o])
			scatter[a.I1[o]] += float64(a.L1[o])
		}
		for i := 0; i < a.In; i++ {
			var gather float64
			for o := a.Start[i]; o < a.End[i]; o++ {
				gather += float64(a.Weight(o, i))
			}
			if math.Abs(gather-scatter[i]) > 1e-6 {
				t.Errorf("%+v input %d: gather %v, scatter %v", cfg, i, gather, scatter[i])
			}
		}
	}
}
