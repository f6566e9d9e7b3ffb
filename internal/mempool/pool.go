// Package mempool keeps size-classed pools of numeric buffers for the hot
// paths of the preprocessing pipeline (exit normalization and denoising).
package mempool

import (
	"sync"
)

var (
	float32Pools sync.Map // key: size class (int), value: *sync.Pool
	float64Pools sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to the next multiple of 1024, with 1024 as the floor.
func sizeClass(n int) int {
	const step = 1024
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

func poolFor[T any](pools *sync.Map, cls int) *sync.Pool {
	p, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	return p.(*sync.Pool) //nolint:forcetypeassert // only *sync.Pool is ever stored
}

func get[T any](pools *sync.Map, n int) []T {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	buf, ok := poolFor[T](pools, cls).Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	return buf[:n]
}

func put[T any](pools *sync.Map, buf []T) {
	if buf == nil {
		return
	}
	// Only whole classes go back so a later Get never sees a short buffer.
	if cap(buf) != sizeClass(cap(buf)) {
		return
	}
	poolFor[T](pools, cap(buf)).Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetFloat32 returns a []float32 of length n. Contents are not zeroed.
// Return it with PutFloat32 when done.
func GetFloat32(n int) []float32 { return get[float32](&float32Pools, n) }

// PutFloat32 returns a buffer to the pool. It is safe to pass nil.
func PutFloat32(buf []float32) { put(&float32Pools, buf) }

// GetFloat64 returns a zeroed []float64 of length n, for accumulators.
// Return it with PutFloat64 when done.
func GetFloat64(n int) []float64 {
	buf := get[float64](&float64Pools, n)
	clear(buf)
	return buf
}

// PutFloat64 returns a buffer to the pool. It is safe to pass nil.
func PutFloat64(buf []float64) { put(&float64Pools, buf) }
