package cpu

import (
	"fmt"

	"github.com/born-ml/devparity/internal/tensor"
)

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N)
// Uses the naive O(n³) formulation with a running sum in the element type.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape, err := tensor.MatMulShape(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("matmul: %v", err))
	}
	return cpu.batchedMatMul("matmul", a, b, outShape, 1, a.Shape()[0], a.Shape()[1], b.Shape()[1])
}

// BatchMatMul multiplies matching matrices of two batches:
// (B, M, K) @ (B, K, N) -> (B, M, N).
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape, err := tensor.BatchMatMulShape(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("bmm: %v", err))
	}
	s := a.Shape()
	return cpu.batchedMatMul("bmm", a, b, outShape, s[0], s[1], s[2], b.Shape()[2])
}

func (cpu *CPUBackend) batchedMatMul(op string, a, b *tensor.RawTensor, outShape tensor.Shape,
	batch, m, k, n int,
) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", op, a.DType(), b.DType()))
	}
	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}

	// Dispatch to type-specific implementation
	switch a.DType() {
	case tensor.Float32:
		matmulBatches(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), batch, m, k, n)
	case tensor.Float64:
		matmulBatches(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), batch, m, k, n)
	case tensor.Int32:
		matmulBatches(result.AsInt32(), a.AsInt32(), b.AsInt32(), batch, m, k, n)
	case tensor.Int64:
		matmulBatches(result.AsInt64(), a.AsInt64(), b.AsInt64(), batch, m, k, n)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, a.DType()))
	}
	return result
}

type numeric interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// matmulBatches computes C[b,i,j] = sum_k A[b,i,k] * B[b,k,j].
func matmulBatches[T numeric](c, a, b []T, batch, m, k, n int) {
	for bi := 0; bi < batch; bi++ {
		ab, bb, cb := a[bi*m*k:], b[bi*k*n:], c[bi*m*n:]
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				var sum T
				for kIdx := 0; kIdx < k; kIdx++ {
					sum += ab[i*k+kIdx] * bb[kIdx*n+j]
				}
				cb[i*n+j] = sum
			}
		}
	}
}
