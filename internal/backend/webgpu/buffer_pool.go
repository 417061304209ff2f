//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// Max idle buffers kept per (usage, size class).
const maxPerBucket = 16

type bucketKey struct {
	usage wgpu.BufferUsage
	class int
}

// BufferPool recycles GPU buffers by usage and power-of-two size class.
type BufferPool struct {
	device *wgpu.Device

	idle map[bucketKey][]*wgpu.Buffer
	mu   sync.Mutex

	// Statistics
	totalAllocated uint64
	totalReleased  uint64
	poolHits       uint64
	poolMisses     uint64
}

// NewBufferPool creates a new buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		idle:   make(map[bucketKey][]*wgpu.Buffer),
	}
}

// Acquire returns a buffer of at least size bytes with exactly the given usage.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	class, capacity := sizeClass(size)
	key := bucketKey{usage: usage, class: class}

	p.mu.Lock()
	defer p.mu.Unlock()

	if free := p.idle[key]; len(free) > 0 {
		buf := free[len(free)-1]
		p.idle[key] = free[:len(free)-1]
		p.poolHits++
		return buf
	}

	p.poolMisses++
	p.totalAllocated++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  capacity,
	})
}

// Release returns a buffer obtained from Acquire with the same size and usage.
// The buffer is destroyed when its bucket is full.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	class, _ := sizeClass(size)
	key := bucketKey{usage: usage, class: class}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalReleased++
	if len(p.idle[key]) >= maxPerBucket {
		buffer.Release()
		return
	}
	p.idle[key] = append(p.idle[key], buffer)
}

// Clear releases all pooled buffers.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, free := range p.idle {
		for _, buf := range free {
			buf.Release()
		}
		delete(p.idle, key)
	}
}

// Stats returns statistics about buffer pool usage.
func (p *BufferPool) Stats() (allocated, released, hits, misses uint64, pooledCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, free := range p.idle {
		pooledCount += len(free)
	}
	return p.totalAllocated, p.totalReleased, p.poolHits, p.poolMisses, pooledCount
}
