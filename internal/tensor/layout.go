package tensor

import "fmt"

// MatMulShape validates (M, K) @ (K, N) and returns (M, N).
func MatMulShape(a, b Shape) (Shape, error) {
	if len(a) != 2 || len(b) != 2 {
		return nil, fmt.Errorf("expected 2D tensors, got %dD and %dD", len(a), len(b))
	}
	if a[1] != b[0] {
		return nil, fmt.Errorf("size mismatch, m1: %v, m2: %v", a, b)
	}
	return Shape{a[0], b[1]}, nil
}

// BatchMatMulShape validates (B, M, K) @ (B, K, N) and returns (B, M, N).
func BatchMatMulShape(a, b Shape) (Shape, error) {
	if len(a) != 3 || len(b) != 3 {
		return nil, fmt.Errorf("expected 3D tensors, got %dD and %dD", len(a), len(b))
	}
	if a[0] != b[0] {
		return nil, fmt.Errorf("batch size mismatch, batch1: %v, batch2: %v", a, b)
	}
	if a[2] != b[1] {
		return nil, fmt.Errorf("size mismatch, batch1: %v, batch2: %v", a, b)
	}
	return Shape{a[0], a[1], b[2]}, nil
}

// NormalizeAxes resolves a permutation of rank axes. No axes reverses the
// dimension order; negative axes count from the end.
func NormalizeAxes(rank int, axes []int) ([]int, error) {
	out := make([]int, rank)
	if len(axes) == 0 {
		for i := range out {
			out[i] = rank - 1 - i
		}
		return out, nil
	}
	if len(axes) != rank {
		return nil, fmt.Errorf("permutation %v does not match rank %d", axes, rank)
	}
	seen := make([]bool, rank)
	for i, a := range axes {
		d, err := NormalizeDim(a, rank)
		if err != nil {
			return nil, err
		}
		if seen[d] {
			return nil, fmt.Errorf("repeated dim %d in permutation %v", d, axes)
		}
		seen[d] = true
		out[i] = d
	}
	return out, nil
}

// SwapLast returns the permutation that exchanges the last two of rank axes.
func SwapLast(rank int) []int {
	axes := make([]int, rank)
	for i := range axes {
		axes[i] = i
	}
	axes[rank-2], axes[rank-1] = axes[rank-1], axes[rank-2]
	return axes
}

// TransposeLayout returns the permuted shape of s and, for every output
// dimension, the stride of the source dimension it reads.
func TransposeLayout(s Shape, axes []int) (Shape, []int, error) {
	perm, err := NormalizeAxes(len(s), axes)
	if err != nil {
		return nil, nil, err
	}
	strides := s.ComputeStrides()
	out := make(Shape, len(s))
	src := make([]int, len(s))
	for i, d := range perm {
		out[i] = s[d]
		src[i] = strides[d]
	}
	return out, src, nil
}

// ExpandStrides checks that in broadcasts to out (dimensions aligned from
// the right, size 1 or equal) and returns, for every output dimension, the
// input stride it reads. Broadcast and new leading dimensions read stride 0.
func ExpandStrides(in, out Shape) ([]int, error) {
	if len(in) > len(out) {
		return nil, fmt.Errorf("cannot expand %v to fewer dimensions %v", in, out)
	}
	strides := in.ComputeStrides()
	src := make([]int, len(out))
	lead := len(out) - len(in)
	for i := lead; i < len(out); i++ {
		d := in[i-lead]
		switch {
		case d == out[i]:
			src[i] = strides[i-lead]
		case d == 1:
			src[i] = 0
		default:
			return nil, fmt.Errorf("the expanded size of the tensor (%d) must match the existing size (%d) at dimension %d",
				out[i], d, i)
		}
	}
	return src, nil
}

// StridedIndex maps the row-major index i of an output with outStrides to
// the source offset given per-dimension source strides.
func StridedIndex(i int, outStrides, srcStrides []int) int {
	off := 0
	for d, s := range outStrides {
		off += (i / s) * srcStrides[d]
		i %= s
	}
	return off
}

// maxRepeatTotal bounds the output of a repeat_interleave.
const maxRepeatTotal = 1 << 31

// RepeatOffsets validates a 1-D int64 repeats tensor and returns the
// inclusive running sum: element i fills output positions
// [ends[i]-repeats[i], ends[i]).
func RepeatOffsets(repeats *RawTensor) ([]int64, error) {
	if len(repeats.Shape()) != 1 {
		return nil, fmt.Errorf("repeats must be 1-D, got shape %v", repeats.Shape())
	}
	if repeats.DType() != Int64 {
		return nil, fmt.Errorf("repeats has to be an int64 tensor, got %s", repeats.DType())
	}
	r := repeats.AsInt64()
	ends := make([]int64, len(r))
	var total int64
	for i, v := range r {
		if v < 0 {
			return nil, fmt.Errorf("repeats can not be negative (repeats[%d] = %d)", i, v)
		}
		if v > maxRepeatTotal-total {
			return nil, fmt.Errorf("repeats sum exceeds %d elements", maxRepeatTotal)
		}
		total += v
		ends[i] = total
	}
	if total == 0 {
		return nil, fmt.Errorf("repeats sum to zero, result would be empty")
	}
	return ends, nil
}
