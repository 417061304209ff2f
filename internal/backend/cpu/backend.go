// Package cpu implements the reference CPU backend.
//
// Kernels are serial and favor the most direct formulation of each
// operator; every other device is checked against them.
package cpu

import (
	"fmt"

	"github.com/born-ml/devparity/internal/tensor"
)

// CPUBackend implements tensor operations on a single CPU thread.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Transfer copies x into host memory owned by this backend.
func (cpu *CPUBackend) Transfer(x *tensor.RawTensor) *tensor.RawTensor {
	return x.Copy(cpu.device)
}

// Add performs element-wise addition. Shapes and dtypes must match.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	checkSameLayout("add", a, b)

	// Reuse a's buffer when nobody else holds it.
	result := a
	if !a.IsUnique() || a.Device() != cpu.device {
		result = tensor.MustRaw(a.Shape(), a.DType(), cpu.device)
	}
	binaryInto("add", result, a, b, addFloat64, addInt64)
	return result
}

// Sub performs element-wise subtraction. Shapes and dtypes must match.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	checkSameLayout("sub", a, b)

	result := a
	if !a.IsUnique() || a.Device() != cpu.device {
		result = tensor.MustRaw(a.Shape(), a.DType(), cpu.device)
	}
	binaryInto("sub", result, a, b, subFloat64, subInt64)
	return result
}

func addFloat64(x, y float64) float64 { return x + y }
func subFloat64(x, y float64) float64 { return x - y }
func addInt64(x, y int64) int64       { return x + y }
func subInt64(x, y int64) int64       { return x - y }

func checkSameLayout(op string, a, b *tensor.RawTensor) {
	if !a.Shape().Equal(b.Shape()) {
		panic(fmt.Sprintf("%s: shape mismatch: %v vs %v", op, a.Shape(), b.Shape()))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", op, a.DType(), b.DType()))
	}
}

// binaryInto writes op(a, b) into dst. Float math runs in float64 and
// integer math in int64, then narrows to the tensor's dtype.
func binaryInto(op string, dst, a, b *tensor.RawTensor,
	fop func(x, y float64) float64, iop func(x, y int64) int64,
) {
	switch a.DType() {
	case tensor.Float32:
		d, x, y := dst.AsFloat32(), a.AsFloat32(), b.AsFloat32()
		for i := range d {
			d[i] = float32(fop(float64(x[i]), float64(y[i])))
		}
	case tensor.Float64:
		d, x, y := dst.AsFloat64(), a.AsFloat64(), b.AsFloat64()
		for i := range d {
			d[i] = fop(x[i], y[i])
		}
	case tensor.Int32:
		d, x, y := dst.AsInt32(), a.AsInt32(), b.AsInt32()
		for i := range d {
			d[i] = int32(iop(int64(x[i]), int64(y[i]))) //nolint:gosec // G115: wraps like the device kernels
		}
	case tensor.Int64:
		d, x, y := dst.AsInt64(), a.AsInt64(), b.AsInt64()
		for i := range d {
			d[i] = iop(x[i], y[i])
		}
	case tensor.Uint8:
		d, x, y := dst.AsUint8(), a.AsUint8(), b.AsUint8()
		for i := range d {
			d[i] = uint8(iop(int64(x[i]), int64(y[i]))) //nolint:gosec // G115: wraps like the device kernels
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, a.DType()))
	}
}
