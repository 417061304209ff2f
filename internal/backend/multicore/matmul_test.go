package multicore

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/born-ml/devparity/internal/backend/cpu"
	"github.com/born-ml/devparity/internal/tensor"
)

func TestMatMulMatchesReference(t *testing.T) {
	ref, b := cpu.New(), newTestBackend()
	rapid.Check(t, func(t *rapid.T) {
		rng := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		m, k, n := rapid.IntRange(1, 7).Draw(t, "m"), rapid.IntRange(1, 7).Draw(t, "k"), rapid.IntRange(1, 7).Draw(t, "n")
		batch := rapid.IntRange(1, 3).Draw(t, "batch")

		x, y := randomRaw(rng, tensor.Shape{m, k}, tensor.Float32), randomRaw(rng, tensor.Shape{k, n}, tensor.Float32)
		assertClose(t, ref.MatMul(x, y), b.MatMul(x, y), 1e-5)

		xi, yi := randomRaw(rng, tensor.Shape{batch, m, k}, tensor.Int64), randomRaw(rng, tensor.Shape{batch, k, n}, tensor.Int64)
		requireSameBytes(t, ref.BatchMatMul(xi, yi), b.BatchMatMul(xi, yi))
	})
}

func TestMatMulKeepsInputsIntact(t *testing.T) {
	b := newTestBackend()
	x := tensor.MustRaw(tensor.Shape{2, 2}, tensor.Float64, tensor.CPU)
	copy(x.AsFloat64(), []float64{1, 2, 3, 4})
	out := b.MatMul(x, x)

	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float64{7, 10, 15, 22}, out.AsFloat64())
	assert.Equal(t, tensor.Shape{2, 2}, x.Shape())
	assert.Equal(t, tensor.Multicore, out.Device())
}

func TestMatMulRejectsMismatch(t *testing.T) {
	b := newTestBackend()
	x := tensor.MustRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	assert.PanicsWithValue(t, "matmul: size mismatch, m1: [2 3], m2: [2 3]", func() { b.MatMul(x, x) })

	y := tensor.MustRaw(tensor.Shape{2, 3, 4}, tensor.Float32, tensor.CPU)
	z := tensor.MustRaw(tensor.Shape{3, 4, 2}, tensor.Float32, tensor.CPU)
	assert.Panics(t, func() { b.BatchMatMul(y, z) })
}

func TestLayoutMatchesReference(t *testing.T) {
	ref, b := cpu.New(), newTestBackend()
	rapid.Check(t, func(t *rapid.T) {
		rng := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		rank := rapid.IntRange(1, 4).Draw(t, "rank")
		dtype := rapid.SampledFrom([]tensor.DataType{tensor.Float32, tensor.Int64, tensor.Uint8, tensor.Bool}).Draw(t, "dtype")
		x := randomRaw(rng, drawShape(t, rank), dtype)

		axes := make([]int, rank)
		for i := range axes {
			axes[i] = i
		}
		perm := rapid.Permutation(axes).Draw(t, "perm")
		requireSameBytes(t, ref.Transpose(x, perm...), b.Transpose(x, perm...))
		requireSameBytes(t, ref.Transpose(x), b.Transpose(x))

		// Broadcast a random subset of dims and add a leading one.
		in := x.Shape().Clone()
		for i := range in {
			if rapid.Bool().Draw(t, "squeeze") {
				in[i] = 1
			}
		}
		small := randomRaw(rng, in, dtype)
		target := append(tensor.Shape{rapid.IntRange(1, 3).Draw(t, "lead")}, x.Shape()...)
		requireSameBytes(t, ref.Expand(small, target), b.Expand(small, target))
	})
}

func TestSumDimMatchesReference(t *testing.T) {
	ref, b := cpu.New(), newTestBackend()
	rapid.Check(t, func(t *rapid.T) {
		rng := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		rank := rapid.IntRange(1, 4).Draw(t, "rank")
		dtype := rapid.SampledFrom([]tensor.DataType{tensor.Float32, tensor.Float64, tensor.Int64}).Draw(t, "dtype")
		x := randomRaw(rng, drawShape(t, rank), dtype)
		dim := rapid.IntRange(-rank, rank-1).Draw(t, "dim")
		keepDim := rapid.Bool().Draw(t, "keepdim")

		requireSameBytes(t, ref.SumDim(x, dim, keepDim), b.SumDim(x, dim, keepDim))
	})
}

func TestMulScalarMatchesReference(t *testing.T) {
	ref, b := cpu.New(), newTestBackend()
	rng := rand.New(rand.NewSource(3))
	for _, dtype := range []tensor.DataType{tensor.Float32, tensor.Float64} {
		x := randomRaw(rng, tensor.Shape{5, 7}, dtype)
		requireSameBytes(t, ref.MulScalar(x, -0.75), b.MulScalar(x, -0.75))
	}
	assert.Panics(t, func() { b.MulScalar(tensor.MustRaw(tensor.Shape{2}, tensor.Int64, tensor.CPU), 2) })
}

func TestRepeatInterleaveMatchesReference(t *testing.T) {
	ref, b := cpu.New(), newTestBackend()
	rapid.Check(t, func(t *rapid.T) {
		reps := rapid.SliceOfN(rapid.Int64Range(0, 5), 1, 20).Draw(t, "repeats")
		reps[0]++
		r := tensor.MustRaw(tensor.Shape{len(reps)}, tensor.Int64, tensor.CPU)
		copy(r.AsInt64(), reps)

		got := b.RepeatInterleave(r)
		require.Equal(t, tensor.Int64, got.DType())
		requireSameBytes(t, ref.RepeatInterleave(r), got)
	})
}

func TestRepeatInterleaveRejectsNegative(t *testing.T) {
	r := tensor.MustRaw(tensor.Shape{2}, tensor.Int64, tensor.CPU)
	copy(r.AsInt64(), []int64{1, -2})
	assert.PanicsWithValue(t, "repeat_interleave: repeats can not be negative (repeats[1] = -2)",
		func() { newTestBackend().RepeatInterleave(r) })
}
