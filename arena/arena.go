/*
DESCRIPTION
  arena.go provides a bounded pool of reusable voxel buffers, replacing
  the pointer-graph block ownership the original converter used with
  arena-backed, index-addressed buffers (see the redesign notes). The
  pool is a fixed-capacity channel of pre-sized buffers, the same shape
  as the global staging-buffer channel used for GPU upload buffers in
  this codebase's 3D engine package, adapted here to host voxel blocks
  rather than GPU transfer buffers.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package arena provides a bounded pool of reusable byte buffers sized
// for one block's worth of voxels, used to bound the pipeline's
// allocations to a fixed high-water mark instead of allocating per
// block.
package arena

import "sync"

// Pool is a bounded pool of []byte buffers, all of the same capacity.
// Buffers are borrowed with Get and must be returned with Put; a Pool
// that is exhausted blocks Get until a buffer is returned, providing the
// backpressure the concurrency model relies on to bound memory.
type Pool struct {
	size  int
	slots chan []byte

	mu       sync.Mutex
	inFlight int
	cap      int
}

// New returns a Pool holding n buffers of size bytes each, for a
// high-water mark of n*size bytes. n is typically workerCount*2, per the
// shared-resource policy (pool high-water mark = worker count * block
// bytes * 2).
func New(n, size int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{size: size, slots: make(chan []byte, n), cap: n}
	for i := 0; i < n; i++ {
		p.slots <- make([]byte, size)
	}
	return p
}

// Size returns the byte size of every buffer the pool hands out.
func (p *Pool) Size() int { return p.size }

// Capacity returns the number of buffers the pool was created with.
func (p *Pool) Capacity() int { return p.cap }

// Get blocks until a buffer is available and returns it, zeroed.
func (p *Pool) Get() []byte {
	buf := <-p.slots
	for i := range buf {
		buf[i] = 0
	}
	p.mu.Lock()
	p.inFlight++
	p.mu.Unlock()
	return buf
}

// TryGet returns a buffer without blocking, or (nil, false) if the pool
// is currently exhausted.
func (p *Pool) TryGet() ([]byte, bool) {
	select {
	case buf := <-p.slots:
		for i := range buf {
			buf[i] = 0
		}
		p.mu.Lock()
		p.inFlight++
		p.mu.Unlock()
		return buf, true
	default:
		return nil, false
	}
}

// Put returns buf to the pool. buf must have been obtained from Get or
// TryGet on this Pool and not be retained by the caller afterward.
func (p *Pool) Put(buf []byte) {
	if cap(buf) != p.size {
		panic("arena: returned buffer does not match pool size")
	}
	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
	p.slots <- buf[:p.size]
}

// InFlight returns the number of buffers currently borrowed and not yet
// returned. It is used by tests and diagnostics to assert the pool
// never exceeds its high-water mark.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}
