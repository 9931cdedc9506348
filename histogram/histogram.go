/*
DESCRIPTION
  histogram.go provides Histogram, the per-(channel,level) running voxel
  count used both to drive the auto-range color adjustment and to satisfy
  the "histogram totals match voxel count" invariant.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package histogram implements the per-channel, per-resolution running
// histograms the MultiResolutionEngine maintains, and the auto-range
// analyzer used at finalization to derive display-range hints from them.
package histogram

import (
	"fmt"
	"sync"

	"github.com/ausocean/voxelconvert/reader"
)

// Histogram is a count-per-bin vector for one (channel, level) pair. Its
// domain is determined by the dataset's DataType: 256 bins for u8, 4096
// bins for u16/u32/f32, with adaptive min/max boundaries for the
// floating-domain case.
type Histogram struct {
	mu sync.Mutex

	dtype   reader.DataType
	bins    []uint64
	lo, hi  float64 // Domain bounds; fixed for integer types, adaptive for float.
	total   uint64
	isFloat bool
}

// New creates an empty Histogram for dtype. lo and hi give the initial
// domain bounds; for integer types these should be 0 and the maximum
// representable value, and remain fixed for the histogram's lifetime.
// For float types they seed the adaptive bounds, which may widen as
// out-of-range values arrive.
func New(dtype reader.DataType, lo, hi float64) *Histogram {
	return &Histogram{
		dtype:   dtype,
		bins:    make([]uint64, dtype.HistogramBins()),
		lo:      lo,
		hi:      hi,
		isFloat: dtype == reader.F32,
	}
}

// Bins returns a copy of the current bin counts.
func (h *Histogram) Bins() []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]uint64, len(h.bins))
	copy(out, h.bins)
	return out
}

// Total returns the number of voxels recorded so far. The data model
// invariant is that this equals the number of voxels emitted to this
// (channel, level) so far.
func (h *Histogram) Total() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// Bounds returns the histogram's current domain bounds.
func (h *Histogram) Bounds() (lo, hi float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lo, h.hi
}

// binIndex maps v into [0, len(bins)) under the current bounds. For
// integer types this is a direct clamp; for float types it is a linear
// mapping from [lo,hi] to [0,N).
func (h *Histogram) binIndex(v float64) int {
	n := len(h.bins)
	if !h.isFloat {
		idx := int(v)
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		return idx
	}
	if h.hi <= h.lo {
		return 0
	}
	idx := int((v - h.lo) / (h.hi - h.lo) * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// Add records one voxel value. For float-domain histograms, a value
// outside the current [lo,hi] bounds triggers widenAndRebin before the
// count is recorded, per the adaptive-bound-widening rule.
func (h *Histogram) Add(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.isFloat && (v < h.lo || v > h.hi) {
		h.widenAndRebinLocked(v)
	}
	h.bins[h.binIndex(v)]++
	h.total++
}

// AddBatch records n voxels all equal to v, a convenience used when a
// coarser pyramid level's downsample produces a run of identical values.
func (h *Histogram) AddBatch(v float64, n uint64) {
	if n == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.isFloat && (v < h.lo || v > h.hi) {
		h.widenAndRebinLocked(v)
	}
	h.bins[h.binIndex(v)] += n
	h.total += n
}

// widenAndRebinLocked extends the domain to include v (values below lo
// extend the low bound, above hi extend the high bound), then
// redistributes existing bin counts proportionally over the new,
// coarser bin width. The caller must hold h.mu.
//
// The data model leaves the exact redistribution rule unspecified beyond
// "redistributed proportionally on rebound"; this is the conservative
// choice noted as an Open Question in the design notes: each old bin's
// count is split across the new bins its old bin-width range overlaps,
// weighted by the fraction of overlap. This preserves Total() exactly.
func (h *Histogram) widenAndRebinLocked(v float64) {
	newLo, newHi := h.lo, h.hi
	if v < newLo {
		newLo = v
	}
	if v > newHi {
		newHi = v
	}
	if newLo == h.lo && newHi == h.hi {
		return
	}

	n := len(h.bins)
	oldLo, oldHi := h.lo, h.hi
	oldWidth := (oldHi - oldLo) / float64(n)
	newWidth := (newHi - newLo) / float64(n)

	newBins := make([]uint64, n)
	if oldWidth > 0 && newWidth > 0 {
		for i, c := range h.bins {
			if c == 0 {
				continue
			}
			binLo := oldLo + float64(i)*oldWidth
			binHi := binLo + oldWidth
			// Distribute c proportionally across every new bin the old
			// bin's range [binLo,binHi) overlaps.
			startJ := int((binLo - newLo) / newWidth)
			endJ := int((binHi - newLo) / newWidth)
			if startJ < 0 {
				startJ = 0
			}
			if endJ >= n {
				endJ = n - 1
			}
			if startJ > endJ {
				startJ = endJ
			}
			span := endJ - startJ + 1
			// Proportional split by overlap width; when span==1 this
			// degenerates to "all of c goes to that bin", which is the
			// common case for a mild bound widening.
			remaining := c
			for j := startJ; j <= endJ; j++ {
				jLo := newLo + float64(j)*newWidth
				jHi := jLo + newWidth
				ol := overlap(binLo, binHi, jLo, jHi)
				frac := 1.0
				if oldWidth > 0 {
					frac = ol / oldWidth
				}
				share := uint64(float64(c) * frac)
				if j == endJ {
					share = remaining // Assign remainder to last bin to preserve total exactly.
				}
				if share > remaining {
					share = remaining
				}
				newBins[j] += share
				remaining -= share
			}
			_ = span
		}
	} else if newWidth > 0 {
		// A zero-width old domain (a float histogram's seeded [v,v]
		// range) holds every count at the single value oldLo; all of
		// them move to the new bin containing it.
		j := int((oldLo - newLo) / newWidth)
		if j >= n {
			j = n - 1
		}
		for _, c := range h.bins {
			newBins[j] += c
		}
	}

	h.bins = newBins
	h.lo, h.hi = newLo, newHi
}

func overlap(aLo, aHi, bLo, bHi float64) float64 {
	lo := aLo
	if bLo > lo {
		lo = bLo
	}
	hi := aHi
	if bHi < hi {
		hi = bHi
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Set is the full collection of histograms an engine maintains, keyed by
// (channel, level). Cross-channel updates are independent and parallel;
// per-channel updates are serialized by the Histogram's own mutex.
type Set struct {
	mu   sync.RWMutex
	data map[key]*Histogram
}

type key struct {
	channel int
	level   int
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{data: make(map[key]*Histogram)}
}

// Get returns the histogram for (channel, level), creating it via New(dtype, lo, hi)
// if it does not yet exist.
func (s *Set) Get(channel, level int, dtype reader.DataType, lo, hi float64) *Histogram {
	k := key{channel, level}

	s.mu.RLock()
	h, ok := s.data[k]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.data[k]; ok {
		return h
	}
	h = New(dtype, lo, hi)
	s.data[k] = h
	return h
}

// Lookup returns the histogram for (channel, level) if it has already
// been created, and false otherwise. Unlike Get, it never creates one.
func (s *Set) Lookup(channel, level int) (*Histogram, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.data[key{channel, level}]
	return h, ok
}

// Channels returns the distinct channel indices with at least one
// histogram recorded at the given level.
func (s *Set) Channels(level int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int
	for k := range s.data {
		if k.level == level {
			out = append(out, k.channel)
		}
	}
	return out
}

// String is used by tests and diagnostic dumps.
func (h *Histogram) String() string {
	return fmt.Sprintf("histogram{dtype=%v total=%d bounds=[%g,%g]}", h.dtype, h.Total(), h.lo, h.hi)
}
