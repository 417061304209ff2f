//go:build windows

package device

import (
	"fmt"

	"github.com/born-ml/devparity/internal/backend/webgpu"
	"github.com/born-ml/devparity/internal/tensor"
)

func openWebGPU() (tensor.Backend, func(), error) {
	if !webgpu.IsAvailable() {
		return nil, func() {}, fmt.Errorf("%w: webgpu: no adapter", ErrNotAvailable)
	}
	gpu, err := webgpu.New()
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: %w", ErrNotAvailable, err)
	}
	return gpu, gpu.Release, nil
}

func webgpuInfo() Info {
	info := Info{Name: tensor.WebGPU.String(), Device: tensor.WebGPU}
	adapters, err := webgpu.ListAdapters()
	if err != nil || len(adapters) == 0 {
		info.Description = "no adapter"
		if err != nil {
			info.Description = err.Error()
		}
		return info
	}
	a := adapters[0]
	info.Available = true
	info.Description = fmt.Sprintf("%s (%s, %s)", a.Name, a.Vendor, a.Backend)
	return info
}
