package multicore

import (
	"fmt"

	"github.com/born-ml/devparity/internal/parallel"
	"github.com/born-ml/devparity/internal/tensor"
)

// RepeatInterleave fills, for every input index i, the output range
// [ends[i]-repeats[i], ends[i]) with i. Ranges are disjoint, so indices
// are handed to workers independently.
func (b *Backend) RepeatInterleave(repeats *tensor.RawTensor) *tensor.RawTensor {
	ends, err := tensor.RepeatOffsets(repeats)
	if err != nil {
		panic(fmt.Sprintf("repeat_interleave: %v", err))
	}
	out := b.alloc("repeat_interleave", tensor.Shape{int(ends[len(ends)-1])}, tensor.Int64)
	dst, reps := out.AsInt64(), repeats.AsInt64()

	parallel.For(len(ends), func(i int) {
		for j := ends[i] - reps[i]; j < ends[i]; j++ {
			dst[j] = int64(i)
		}
	}, b.cfg)
	return out
}
