package cpu

import (
	"fmt"

	"github.com/born-ml/devparity/internal/tensor"
)

// Transpose permutes the dimensions of x. No axes reverses them.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	outShape, src, err := tensor.TransposeLayout(x.Shape(), axes)
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}
	return cpu.gather("transpose", x, outShape, src)
}

// Expand broadcasts x to shape. Size-1 dimensions repeat and missing
// leading dimensions are added.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	src, err := tensor.ExpandStrides(x.Shape(), shape)
	if err != nil {
		panic(fmt.Sprintf("expand: %v", err))
	}
	return cpu.gather("expand", x, shape, src)
}

// gather copies element StridedIndex(i) of x into element i of a new
// outShape tensor, byte-wise so every dtype is served.
func (cpu *CPUBackend) gather(op string, x *tensor.RawTensor, outShape tensor.Shape, src []int) *tensor.RawTensor {
	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	size := x.DType().Size()
	in, out := x.Data(), result.Data()
	outStrides := outShape.ComputeStrides()
	for i, n := 0, result.NumElements(); i < n; i++ {
		j := tensor.StridedIndex(i, outStrides, src)
		copy(out[i*size:(i+1)*size], in[j*size:(j+1)*size])
	}
	return result
}
