package multicore

import (
	"fmt"

	"github.com/born-ml/devparity/internal/parallel"
	"github.com/born-ml/devparity/internal/tensor"
)

// Transpose permutes the dimensions of x. No axes reverses them.
func (b *Backend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	outShape, src, err := tensor.TransposeLayout(x.Shape(), axes)
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}
	return b.gather("transpose", x, outShape, src)
}

// Expand broadcasts x to shape.
func (b *Backend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	src, err := tensor.ExpandStrides(x.Shape(), shape)
	if err != nil {
		panic(fmt.Sprintf("expand: %v", err))
	}
	return b.gather("expand", x, shape, src)
}

func (b *Backend) gather(op string, x *tensor.RawTensor, outShape tensor.Shape, src []int) *tensor.RawTensor {
	out := b.alloc(op, outShape, x.DType())
	size := x.DType().Size()
	in, dst := x.Data(), out.Data()
	outStrides := outShape.ComputeStrides()
	parallel.ForRange(out.NumElements(), func(s, e int) {
		for i := s; i < e; i++ {
			j := tensor.StridedIndex(i, outStrides, src)
			copy(dst[i*size:(i+1)*size], in[j*size:(j+1)*size])
		}
	}, b.cfg)
	return out
}
