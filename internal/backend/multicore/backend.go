// Package multicore implements the worker fan-out backend.
//
// Every operator splits its output into disjoint index ranges handled by
// internal/parallel workers. Interpolation uses precomputed float32 tap
// tables and computes its backward pass by gathering from output readers
// instead of scattering, so no two workers write the same element.
package multicore

import (
	"fmt"

	"github.com/born-ml/devparity/internal/parallel"
	"github.com/born-ml/devparity/internal/tensor"
)

// Backend runs operators across a pool of goroutines.
type Backend struct {
	device tensor.Device
	cfg    parallel.Config
}

// New creates a backend using the default worker count.
func New() *Backend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a backend with an explicit parallel configuration.
func NewWithConfig(cfg parallel.Config) *Backend {
	return &Backend{
		device: tensor.Multicore,
		cfg:    cfg,
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return fmt.Sprintf("Multicore(%d)", b.cfg.NumWorkers)
}

// Device returns the compute device.
func (b *Backend) Device() tensor.Device {
	return b.device
}

// Config returns the parallel configuration.
func (b *Backend) Config() parallel.Config {
	return b.cfg
}

// Transfer copies x into a fresh buffer tagged with this device. The copy
// is split across workers.
func (b *Backend) Transfer(x *tensor.RawTensor) *tensor.RawTensor {
	out := tensor.MustRaw(x.Shape(), x.DType(), b.device)
	src, dst := x.Data(), out.Data()
	parallel.ForRange(len(src), func(s, e int) {
		copy(dst[s:e], src[s:e])
	}, b.cfg)
	return out
}

func (b *Backend) alloc(op string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	r, err := tensor.NewRaw(shape, dtype, b.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	return r
}

func checkSameLayout(op string, a, c *tensor.RawTensor) {
	if !a.Shape().Equal(c.Shape()) {
		panic(fmt.Sprintf("%s: shape mismatch: %v vs %v", op, a.Shape(), c.Shape()))
	}
	if a.DType() != c.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", op, a.DType(), c.DType()))
	}
}
