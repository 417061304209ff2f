// Package device opens parity backends by name.
//
// The reference device is always "cpu". Targets are "multicore" and, on
// builds where wgpu-native can be loaded, "webgpu".
package device

import (
	"errors"
	"fmt"

	"github.com/born-ml/devparity/internal/backend/cpu"
	"github.com/born-ml/devparity/internal/backend/multicore"
	"github.com/born-ml/devparity/internal/parallel"
	"github.com/born-ml/devparity/internal/tensor"
)

var (
	// ErrUnknownDevice is returned for names that match no device.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrNotAvailable is returned when a device exists but cannot be
	// opened on this machine.
	ErrNotAvailable = errors.New("device not available")
)

// Reference is the device every target is compared against.
const Reference = "cpu"

// Info describes one device.
type Info struct {
	Name        string
	Device      tensor.Device
	Available   bool
	Description string
}

// Options tunes how devices are opened.
type Options struct {
	// Workers overrides the multicore worker count (0 = GOMAXPROCS).
	Workers int
}

// Open returns the backend for name and a function that releases it.
// The release function is never nil.
func Open(name string, opts Options) (tensor.Backend, func(), error) {
	dev, err := tensor.ParseDevice(name)
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}

	switch dev {
	case tensor.CPU:
		return cpu.New(), func() {}, nil
	case tensor.Multicore:
		cfg := parallel.DefaultConfig()
		if opts.Workers > 0 {
			cfg = cfg.WithWorkers(opts.Workers)
		}
		return multicore.NewWithConfig(cfg), func() {}, nil
	case tensor.WebGPU:
		return openWebGPU()
	default:
		return nil, func() {}, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
}

// List reports every known device and whether it can be opened here.
func List() []Info {
	workers := parallel.DefaultConfig().NumWorkers
	gpu := webgpuInfo()
	return []Info{
		{Name: tensor.CPU.String(), Device: tensor.CPU, Available: true, Description: "serial reference kernels"},
		{
			Name: tensor.Multicore.String(), Device: tensor.Multicore, Available: true,
			Description: fmt.Sprintf("%d workers", workers),
		},
		gpu,
	}
}
