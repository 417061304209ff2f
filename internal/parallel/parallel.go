// Package parallel splits index ranges across worker goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64, // Typical cache line aware chunk.
	}
}

// WithWorkers returns cfg using n workers. n <= 0 keeps the current count.
// A single worker disables parallelism.
func (cfg Config) WithWorkers(n int) Config {
	if n > 0 {
		cfg.NumWorkers = n
	}
	cfg.Enabled = cfg.NumWorkers > 1
	return cfg
}

// ForRange calls f(start, end) on disjoint chunks covering [0, n).
// Chunks hold at least MinChunkSize items, so small inputs run on the
// calling goroutine as a single chunk.
func ForRange(n int, f func(start, end int), cfg Config) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		// Sequential fallback.
		f(0, n)
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(start, end)
	}
	wg.Wait()
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	ForRange(n, func(s, e int) {
		for i := s; i < e; i++ {
			f(i)
		}
	}, cfg)
}

// ForBatch iterates the outer x inner grid, e.g. batch x channels planes.
func ForBatch(outer, inner int, f func(o, i int), cfg Config) {
	For(outer*inner, func(k int) {
		f(k/inner, k%inner)
	}, cfg)
}
