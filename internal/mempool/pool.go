// Package mempool keeps size-classed buffers for the float64 fields and
// boolean masks allocated per segmentation pass.
package mempool

import (
	"sync"
)

const step = 1 << 12

var (
	float64Pools sync.Map // size class -> *sync.Pool of []float64
	boolPools    sync.Map // size class -> *sync.Pool of []bool
)

// sizeClass rounds n up to a multiple of step, with step as the minimum.
func sizeClass(n int) int {
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

func poolFor[T any](pools *sync.Map, cls int) *sync.Pool {
	if p, ok := pools.Load(cls); ok {
		return p.(*sync.Pool)
	}
	p, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	return p.(*sync.Pool)
}

func get[T any](pools *sync.Map, n int) []T {
	cls := sizeClass(n)
	buf, _ := poolFor[T](pools, cls).Get().([]T)
	if cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

func put[T any](pools *sync.Map, buf []T) {
	if cap(buf) < step {
		return
	}
	// Only full classes go back; a capacity between classes files under the
	// class below so Get never sees a short buffer.
	cls := cap(buf) / step * step
	poolFor[T](pools, cls).Put(buf[:cls]) //nolint:staticcheck
}

// GetFloat64 returns a zeroed buffer of length n. Return it with PutFloat64.
func GetFloat64(n int) []float64 { return get[float64](&float64Pools, n) }

// PutFloat64 hands a buffer back. Nil and small slices are dropped.
func PutFloat64(buf []float64) { put(&float64Pools, buf) }

// GetBool returns a cleared mask of length n. Return it with PutBool.
func GetBool(n int) []bool { return get[bool](&boolPools, n) }

// PutBool hands a mask back. Nil and small slices are dropped.
func PutBool(buf []bool) { put(&boolPools, buf) }
