//go:build windows

package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferPoolAcquireRelease(t *testing.T) {
	backend := newTestBackend(t)
	pool := NewBufferPool(backend.device)
	defer pool.Clear()

	buffer1 := pool.Acquire(1000, storageOut)
	allocated, _, hits, misses, pooled := pool.Stats()
	assert.Equal(t, uint64(1), allocated)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, 0, pooled)

	pool.Release(buffer1, 1000, storageOut)
	_, released, _, _, pooled := pool.Stats()
	assert.Equal(t, uint64(1), released)
	assert.Equal(t, 1, pooled)

	// Same size class, same usage: reused.
	buffer2 := pool.Acquire(600, storageOut)
	_, _, hits, _, _ = pool.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Same(t, buffer1, buffer2)
	pool.Release(buffer2, 600, storageOut)

	// Different usage never shares a buffer.
	buffer3 := pool.Acquire(600, staging)
	assert.NotSame(t, buffer1, buffer3)
	pool.Release(buffer3, 600, staging)
}

func TestBufferPoolClear(t *testing.T) {
	backend := newTestBackend(t)
	pool := NewBufferPool(backend.device)

	for i := 0; i < 3; i++ {
		pool.Release(pool.Acquire(64, storageOut), 64, storageOut)
	}
	pool.Clear()
	_, _, _, _, pooled := pool.Stats()
	assert.Equal(t, 0, pooled)
}
