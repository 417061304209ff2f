package cpu

import (
	"fmt"

	"github.com/born-ml/devparity/internal/tensor"
)

// RepeatInterleave expands a 1-D int64 repeats tensor into indices:
// [2, 0, 1] -> [0, 0, 2].
func (cpu *CPUBackend) RepeatInterleave(repeats *tensor.RawTensor) *tensor.RawTensor {
	ends, err := tensor.RepeatOffsets(repeats)
	if err != nil {
		panic(fmt.Sprintf("repeat_interleave: %v", err))
	}
	result, err := tensor.NewRaw(tensor.Shape{int(ends[len(ends)-1])}, tensor.Int64, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("repeat_interleave: %v", err))
	}

	out := result.AsInt64()
	var start int64
	for i, end := range ends {
		for j := start; j < end; j++ {
			out[j] = int64(i)
		}
		start = end
	}
	return result
}
