package multicore

import (
	"fmt"

	"github.com/born-ml/devparity/internal/parallel"
	"github.com/born-ml/devparity/internal/tensor"
)

// MatMul runs (M, K) @ (K, N) as a single-batch BatchMatMul.
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	outShape, err := tensor.MatMulShape(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("matmul: %v", err))
	}
	xs, ys := x.Shape(), y.Shape()
	out := b.batchMatMul("matmul", x.Reshaped(tensor.Shape{1, xs[0], xs[1]}),
		y.Reshaped(tensor.Shape{1, ys[0], ys[1]}))
	return out.Reshaped(outShape)
}

// BatchMatMul multiplies (B, M, K) @ (B, K, N). Every (batch, row) pair of
// the output is computed by one worker.
func (b *Backend) BatchMatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.batchMatMul("bmm", x, y)
}

func (b *Backend) batchMatMul(op string, x, y *tensor.RawTensor) *tensor.RawTensor {
	outShape, err := tensor.BatchMatMulShape(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", op, x.DType(), y.DType()))
	}
	out := b.alloc(op, outShape, x.DType())
	dims := [4]int{outShape[0], outShape[1], x.Shape()[2], outShape[2]}

	switch x.DType() {
	case tensor.Float32:
		rows(b.cfg, out.AsFloat32(), x.AsFloat32(), y.AsFloat32(), dims)
	case tensor.Float64:
		rows(b.cfg, out.AsFloat64(), x.AsFloat64(), y.AsFloat64(), dims)
	case tensor.Int32:
		rows(b.cfg, out.AsInt32(), x.AsInt32(), y.AsInt32(), dims)
	case tensor.Int64:
		rows(b.cfg, out.AsInt64(), x.AsInt64(), y.AsInt64(), dims)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, x.DType()))
	}
	return out
}

type summable interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// rows computes one output row per task. dims is (batch, M, K, N). The
// row accumulates over k in ascending order, k-outer so the B row is read
// contiguously.
func rows[T summable](cfg parallel.Config, c, a, bm []T, dims [4]int) {
	m, k, n := dims[1], dims[2], dims[3]
	parallel.ForBatch(dims[0], m, func(bi, i int) {
		row := c[(bi*m+i)*n : (bi*m+i+1)*n]
		for j := range row {
			row[j] = 0
		}
		arow := a[(bi*m+i)*k : (bi*m+i+1)*k]
		bb := bm[bi*k*n:]
		for kk, av := range arow {
			brow := bb[kk*n : (kk+1)*n]
			for j, bv := range brow {
				row[j] += av * bv
			}
		}
	}, cfg)
}
