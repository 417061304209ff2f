//go:build windows

package webgpu

import (
	"fmt"
	"unsafe"

	"github.com/born-ml/devparity/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

var (
	storageIn  = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	storageOut = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	staging    = wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
)

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()

	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	// Auto layout (nil) derives bindings from the shader.
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()

	return pipeline
}

// createBuffer creates a GPU buffer holding data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// createUniformBuffer creates a uniform buffer with proper alignment.
// Uniform buffers require 16-byte alignment for struct fields.
func (b *Backend) createUniformBuffer(data []byte) (*wgpu.Buffer, uint64) {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer, alignedSize
}

// readBuffer reads data back from a GPU buffer to CPU memory.
// Uses a staging buffer since storage buffers can't be mapped directly.
func (b *Backend) readBuffer(srcBuffer *wgpu.Buffer, size uint64) ([]byte, error) {
	stagingBuffer := b.bufferPool.Acquire(size, staging)
	defer b.bufferPool.Release(stagingBuffer, size, staging)

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	err := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, size)
	if err != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", err)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	result := make([]byte, size)
	copy(result, mappedSlice)

	stagingBuffer.Unmap()

	return result, nil
}

// binding is a buffer bound at consecutive indices of group 0.
type binding struct {
	buffer *wgpu.Buffer
	size   uint64
}

// dispatch runs one kernel over invocations threads. Buffers bind to
// 0..len(bindings)-1 and params to the next index.
func (b *Backend) dispatch(name, code string, invocations int, params []byte, bindings ...binding) {
	shader := b.compileShader(name, code)
	pipeline := b.getOrCreatePipeline(name, shader)

	paramsBuffer, paramsSize := b.createUniformBuffer(params)
	defer paramsBuffer.Release()

	entries := make([]wgpu.BindGroupEntry, 0, len(bindings)+1)
	for i, bd := range bindings {
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), bd.buffer, 0, bd.size)) //nolint:gosec // G115: a handful of bindings
	}
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(bindings)), paramsBuffer, 0, paramsSize)) //nolint:gosec // G115: a handful of bindings

	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	x, y := dispatchSize(invocations)
	computePass.DispatchWorkgroups(x, y, 1)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)
	b.dispatches.Add(1)
}

// kernel describes one operator launch: word-encoded inputs, an output of
// outShape x outDType and optional extra read-only tables bound after it.
type kernel struct {
	name     string
	code     string
	inputs   []*tensor.RawTensor
	extras   [][]byte
	outShape tensor.Shape
	outDType tensor.DataType
	// outInit seeds the output buffer; nil leaves it uninitialized.
	outInit []byte
	// threads defaults to the output element count.
	threads int
	params  []byte
}

// run uploads the inputs, launches the kernel and returns the decoded output.
func (b *Backend) run(k kernel) (*tensor.RawTensor, error) {
	bindings := make([]binding, 0, len(k.inputs)+len(k.extras)+1)
	for _, in := range k.inputs {
		words, err := encodeWords(in)
		if err != nil {
			return nil, err
		}
		buf := b.createBuffer(words, storageIn)
		defer buf.Release()
		bindings = append(bindings, binding{buf, uint64(len(words))})
	}

	outSize := uint64(4 * k.outShape.NumElements()) //nolint:gosec // G115: element counts are non-negative
	var out *wgpu.Buffer
	if k.outInit != nil {
		out = b.createBuffer(k.outInit, storageOut)
		defer out.Release()
	} else {
		out = b.bufferPool.Acquire(outSize, storageOut)
		defer b.bufferPool.Release(out, outSize, storageOut)
	}
	bindings = append(bindings, binding{out, outSize})

	for _, table := range k.extras {
		buf := b.createBuffer(padBytes(table), storageIn)
		defer buf.Release()
		bindings = append(bindings, binding{buf, uint64(len(padBytes(table)))})
	}

	threads := k.threads
	if threads == 0 {
		threads = k.outShape.NumElements()
	}
	b.dispatch(k.name, k.code, threads, k.params, bindings...)

	words, err := b.readBuffer(out, outSize)
	if err != nil {
		return nil, err
	}
	return decodeWords(words, k.outShape, k.outDType, tensor.WebGPU)
}
