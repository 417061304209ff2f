package autodiff

import (
	"fmt"

	"github.com/born-ml/devparity/internal/tensor"
)

// BackwardCapable is an interface for backends that support backward pass.
// AutodiffBackend implements this interface.
type BackwardCapable interface {
	tensor.Backend
	// GetTape returns the gradient tape for backward computation.
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable interface).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward computes gradients for t seeded with ones.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	y := x.ELU(tensor.DefaultELU())
//	gradients := autodiff.Backward(y, backend)
//	grad := gradients[x.Raw()]
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	outputGrad, err := tensor.NewRaw(t.Shape(), t.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("backward: failed to create output gradient: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		data := outputGrad.AsFloat32()
		for i := range data {
			data[i] = 1.0
		}
	case tensor.Float64:
		data := outputGrad.AsFloat64()
		for i := range data {
			data[i] = 1.0
		}
	default:
		panic(fmt.Sprintf("backward: unsupported dtype %s (only float32/float64 supported)", t.DType()))
	}

	return BackwardWith(t, outputGrad, backend)
}

// BackwardWith computes gradients for t seeded with a caller-supplied
// upstream gradient, which must match t's shape and dtype.
func BackwardWith[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], grad *tensor.RawTensor,
	backend B,
) map[*tensor.RawTensor]*tensor.RawTensor {
	return BackwardRaw(t.Raw(), grad, backend)
}

// BackwardRaw is BackwardWith for callers that hold only the raw output,
// such as code that handles several dtypes at runtime.
func BackwardRaw(output, grad *tensor.RawTensor, backend BackwardCapable) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.GetTape()
	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}
	if !grad.Shape().Equal(output.Shape()) || grad.DType() != output.DType() {
		panic(fmt.Sprintf("backward: gradient %s does not match output %s", grad, output))
	}
	if last := tape.operations[tape.NumOps()-1]; last.Output() != output {
		panic("backward: tensor is not the output of the last recorded operation")
	}

	return tape.Backward(grad, backend)
}
