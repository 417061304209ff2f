package multicore

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"pgregory.net/rapid"

	"github.com/born-ml/devparity/internal/backend/cpu"
	"github.com/born-ml/devparity/internal/parallel"
	"github.com/born-ml/devparity/internal/tensor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestBackend forces fan-out even for small tensors.
func newTestBackend() *Backend {
	return NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1})
}

func randomRaw(rng *rand.Rand, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	r := tensor.MustRaw(shape, dtype, tensor.CPU)
	switch dtype {
	case tensor.Float32:
		for i := range r.AsFloat32() {
			r.AsFloat32()[i] = float32(rng.NormFloat64())
		}
	case tensor.Float64:
		for i := range r.AsFloat64() {
			r.AsFloat64()[i] = rng.NormFloat64()
		}
	case tensor.Int64:
		for i := range r.AsInt64() {
			r.AsInt64()[i] = rng.Int63n(200) - 100
		}
	case tensor.Uint8:
		for i := range r.AsUint8() {
			r.AsUint8()[i] = uint8(rng.Intn(2))
		}
	case tensor.Bool:
		for i := range r.AsBool() {
			r.AsBool()[i] = rng.Intn(4) != 0
		}
	}
	return r
}

func drawShape(t *rapid.T, rank int) tensor.Shape {
	s := make(tensor.Shape, rank)
	for i := range s {
		s[i] = rapid.IntRange(1, 6).Draw(t, "dim")
	}
	return s
}

func requireSameBytes(t require.TestingT, want, got *tensor.RawTensor) {
	require.True(t, want.Shape().Equal(got.Shape()), "shape %v vs %v", want.Shape(), got.Shape())
	require.Equal(t, want.DType(), got.DType())
	require.Equal(t, want.Data(), got.Data())
}

func TestBackendMetadata(t *testing.T) {
	b := newTestBackend()
	assert.Equal(t, "Multicore(4)", b.Name())
	assert.Equal(t, tensor.Multicore, b.Device())
	assert.Equal(t, 4, b.Config().NumWorkers)
}

func TestTransferRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rng := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		dtype := rapid.SampledFrom([]tensor.DataType{tensor.Float32, tensor.Int64, tensor.Uint8, tensor.Bool}).Draw(t, "dtype")
		x := randomRaw(rng, drawShape(t, rapid.IntRange(0, 4).Draw(t, "rank")), dtype)

		b := newTestBackend()
		moved := b.Transfer(x)
		require.Equal(t, tensor.Multicore, moved.Device())
		back := cpu.New().Transfer(moved)
		requireSameBytes(t, x, back)
	})
}

func TestElementwiseMatchesReference(t *testing.T) {
	ref, b := cpu.New(), newTestBackend()
	rapid.Check(t, func(t *rapid.T) {
		rng := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		dtype := rapid.SampledFrom([]tensor.DataType{tensor.Float32, tensor.Float64, tensor.Int64, tensor.Uint8}).Draw(t, "dtype")
		shape := drawShape(t, rapid.IntRange(1, 3).Draw(t, "rank"))
		x, y := randomRaw(rng, shape, dtype), randomRaw(rng, shape, dtype)
		defer x.ForceNonUnique()()

		requireSameBytes(t, ref.Add(x, y), b.Add(x, y))
		requireSameBytes(t, ref.Sub(x, y), b.Sub(x, y))
		requireSameBytes(t, ref.Equal(x, y), b.Equal(x, y))

		cond := randomRaw(rng, shape, tensor.Bool)
		requireSameBytes(t, ref.Where(cond, x, y), b.Where(cond, x, y))

		divisor := float64(rapid.SampledFrom([]int{-3, -2, 2, 5}).Draw(t, "divisor"))
		requireSameBytes(t, ref.RemainderScalar(x, divisor), b.RemainderScalar(x, divisor))

		target := rapid.SampledFrom([]tensor.DataType{tensor.Float32, tensor.Int32, tensor.Uint8, tensor.Bool}).Draw(t, "target")
		requireSameBytes(t, ref.Cast(x, target), b.Cast(x, target))
	})
}

func TestAllMatchesReference(t *testing.T) {
	ref, b := cpu.New(), newTestBackend()
	rapid.Check(t, func(t *rapid.T) {
		rng := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		dtype := rapid.SampledFrom([]tensor.DataType{tensor.Uint8, tensor.Bool, tensor.Float32}).Draw(t, "dtype")
		rank := rapid.IntRange(1, 4).Draw(t, "rank")
		x := randomRaw(rng, drawShape(t, rank), dtype)

		if rapid.Bool().Draw(t, "all-ones") {
			x = ref.Cast(ref.Cast(ref.Equal(x, x), tensor.Uint8), dtype)
		}

		requireSameBytes(t, ref.All(x), b.All(x))

		dim := rapid.IntRange(-rank, rank-1).Draw(t, "dim")
		keepDim := rapid.Bool().Draw(t, "keepdim")
		requireSameBytes(t, ref.AllDim(x, dim, keepDim), b.AllDim(x, dim, keepDim))
	})
}

func TestAllOnLargeTensor(t *testing.T) {
	b := NewWithConfig(parallel.DefaultConfig().WithWorkers(8))
	x := tensor.MustRaw(tensor.Shape{461, 42, 2, 5}, tensor.Uint8, tensor.CPU)
	for i := range x.AsUint8() {
		x.AsUint8()[i] = 1
	}
	assert.Equal(t, uint8(1), b.All(x).AsUint8()[0])

	x.AsUint8()[x.NumElements()-1] = 0
	assert.Equal(t, uint8(0), b.All(x).AsUint8()[0])
}

func TestELUMatchesReference(t *testing.T) {
	ref, b := cpu.New(), newTestBackend()
	rapid.Check(t, func(t *rapid.T) {
		rng := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		p := tensor.ELUParams{
			Alpha:      rapid.Float64Range(0.1, 2).Draw(t, "alpha"),
			Scale:      rapid.Float64Range(0.5, 2).Draw(t, "scale"),
			InputScale: rapid.Float64Range(0.5, 2).Draw(t, "input_scale"),
		}
		x := randomRaw(rng, drawShape(t, 2), tensor.Float64)
		want, got := ref.ELU(x, p), b.ELU(x, p)
		assertClose(t, want, got, 1e-12)

		g := randomRaw(rng, x.Shape(), tensor.Float64)
		assertClose(t, ref.ELUBackward(g, want, p), b.ELUBackward(g, want, p), 1e-12)
	})
}

func TestInterpolateMatchesReference(t *testing.T) {
	ref, b := cpu.New(), newTestBackend()
	modes := []tensor.InterpolateMode{tensor.Linear, tensor.Bilinear, tensor.Trilinear}

	rapid.Check(t, func(t *rapid.T) {
		rng := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		mode := rapid.SampledFrom(modes).Draw(t, "mode")
		shape := drawShape(t, mode.SpatialDims()+2)
		scales := make([]float64, mode.SpatialDims())
		for i := range scales {
			scales[i] = rapid.SampledFrom([]float64{0.5, 1, 1.5, 2, 3}).Draw(t, "scale")
			if math.Floor(float64(shape[2+i])*scales[i]) < 1 {
				scales[i] = 1
			}
		}
		cfg := tensor.InterpolateConfig{
			Mode:         mode,
			Scales:       scales,
			AlignCorners: rapid.Bool().Draw(t, "align"),
		}
		_, err := cfg.OutputShape(shape)
		require.NoError(t, err)

		x := randomRaw(rng, shape, tensor.Float32)
		want, got := ref.Interpolate(x, cfg), b.Interpolate(x, cfg)
		assertClose(t, want, got, 1e-5)

		g := randomRaw(rng, want.Shape(), tensor.Float32)
		assertClose(t, ref.InterpolateBackward(g, shape, cfg), b.InterpolateBackward(g, shape, cfg), 1e-4)
	})
}

func TestInterpolateOriginalShapes(t *testing.T) {
	ref, b := cpu.New(), New()
	rng := rand.New(rand.NewSource(11))

	cases := []struct {
		cfg   tensor.InterpolateConfig
		shape tensor.Shape
		out   tensor.Shape
	}{
		{tensor.InterpolateConfig{Mode: tensor.Linear, Scales: []float64{6}}, tensor.Shape{2, 3, 5}, tensor.Shape{2, 3, 30}},
		{tensor.InterpolateConfig{Mode: tensor.Bilinear, Scales: []float64{6, 8}}, tensor.Shape{2, 3, 5, 5}, tensor.Shape{2, 3, 30, 40}},
		{tensor.InterpolateConfig{Mode: tensor.Trilinear, Scales: []float64{6, 8, 1}}, tensor.Shape{2, 3, 2, 5, 5}, tensor.Shape{2, 3, 12, 40, 5}},
	}
	for _, tc := range cases {
		t.Run(string(tc.cfg.Mode), func(t *testing.T) {
			x := randomRaw(rng, tc.shape, tensor.Float32)
			y := b.Interpolate(x, tc.cfg)
			require.True(t, y.Shape().Equal(tc.out), "got %v", y.Shape())
			assertClose(t, ref.Interpolate(x, tc.cfg), y, 1e-5)

			g := randomRaw(rng, tc.out, tensor.Float32)
			assertClose(t, ref.InterpolateBackward(g, tc.shape, tc.cfg), b.InterpolateBackward(g, tc.shape, tc.cfg), 1e-4)
		})
	}
}

func assertClose(t require.TestingT, want, got *tensor.RawTensor, tol float64) {
	require.True(t, want.Shape().Equal(got.Shape()), "shape %v vs %v", want.Shape(), got.Shape())
	for i := 0; i < want.NumElements(); i++ {
		w, g := want.Float64At(i), got.Float64At(i)
		require.LessOrEqual(t, math.Abs(w-g), tol*(1+math.Abs(w)), "element %d: want %v, got %v", i, w, g)
	}
}
