//go:build !windows

package device

import (
	"fmt"
	"runtime"

	"github.com/born-ml/devparity/internal/tensor"
)

func openWebGPU() (tensor.Backend, func(), error) {
	return nil, func() {}, fmt.Errorf("%w: webgpu is not built for %s", ErrNotAvailable, runtime.GOOS)
}

func webgpuInfo() Info {
	return Info{
		Name:        tensor.WebGPU.String(),
		Device:      tensor.WebGPU,
		Description: "not built for " + runtime.GOOS,
	}
}
