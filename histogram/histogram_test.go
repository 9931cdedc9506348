/*
DESCRIPTION
  histogram_test.go tests Histogram and Set: bin accounting, the
  histogram-sum invariant (Total equals voxels recorded), and adaptive
  bound widening on float-domain histograms.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package histogram

import (
	"testing"

	"github.com/ausocean/voxelconvert/reader"
)

func TestHistogramU8BinsAndTotal(t *testing.T) {
	h := New(reader.U8, 0, 255)
	for v := 0; v < 16; v++ {
		h.Add(float64(v))
	}
	bins := h.Bins()
	for i := 0; i < 16; i++ {
		if bins[i] != 1 {
			t.Errorf("bin %d = %d, want 1", i, bins[i])
		}
	}
	if h.Total() != 16 {
		t.Errorf("Total() = %d, want 16", h.Total())
	}
}

func TestHistogramAddBatch(t *testing.T) {
	h := New(reader.U8, 0, 255)
	h.AddBatch(42, 10)
	if h.Total() != 10 {
		t.Errorf("Total() = %d, want 10", h.Total())
	}
	bins := h.Bins()
	if bins[42] != 10 {
		t.Errorf("bin 42 = %d, want 10", bins[42])
	}
}

func TestHistogramAddBatchZeroIsNoop(t *testing.T) {
	h := New(reader.U8, 0, 255)
	h.AddBatch(5, 0)
	if h.Total() != 0 {
		t.Errorf("Total() = %d, want 0", h.Total())
	}
}

// TestHistogramFloatWideningPreservesTotal covers the adaptive
// float-domain bound widening: an out-of-range value extends the
// domain and rebins existing counts, but the total count recorded must
// never change.
func TestHistogramFloatWideningPreservesTotal(t *testing.T) {
	h := New(reader.F32, 0, 10)
	for i := 0; i < 100; i++ {
		h.Add(float64(i % 10))
	}
	if h.Total() != 100 {
		t.Fatalf("Total() before widening = %d, want 100", h.Total())
	}

	// This value falls outside [0,10] and must trigger widenAndRebin.
	h.Add(50)
	if h.Total() != 101 {
		t.Errorf("Total() after widening = %d, want 101", h.Total())
	}
	lo, hi := h.Bounds()
	if hi < 50 {
		t.Errorf("Bounds() hi = %v, want >= 50 after widening", hi)
	}
	if lo > 0 {
		t.Errorf("Bounds() lo = %v, want <= 0", lo)
	}

	var sum uint64
	for _, c := range h.Bins() {
		sum += c
	}
	if sum != 101 {
		t.Errorf("sum of bins after widening = %d, want 101 (total must be preserved across rebin)", sum)
	}
}

func TestSetGetCreatesOnce(t *testing.T) {
	s := NewSet()
	a := s.Get(0, 0, reader.U8, 0, 255)
	b := s.Get(0, 0, reader.U8, 0, 255)
	if a != b {
		t.Error("Get returned different histograms for the same (channel,level)")
	}
}

func TestSetLookupMissing(t *testing.T) {
	s := NewSet()
	if _, ok := s.Lookup(1, 2); ok {
		t.Error("Lookup found a histogram that was never created")
	}
}

func TestSetChannels(t *testing.T) {
	s := NewSet()
	s.Get(0, 0, reader.U8, 0, 255)
	s.Get(1, 0, reader.U8, 0, 255)
	s.Get(0, 1, reader.U8, 0, 255)

	chs := s.Channels(0)
	if len(chs) != 2 {
		t.Fatalf("Channels(0) = %v, want 2 entries", chs)
	}
}

func TestAutoRangeEmptyHistogram(t *testing.T) {
	h := New(reader.U8, 0, 255)
	lo, hi := h.AutoRange()
	if lo != 0 || hi != 255 {
		t.Errorf("AutoRange() on empty histogram = (%v,%v), want (0,255)", lo, hi)
	}
}

// TestAutoRangeNarrowsAroundPeak checks that AutoRange's range_max
// stays within the histogram's domain and range_min does not exceed it,
// for a histogram concentrated well below the domain maximum.
func TestAutoRangeNarrowsAroundPeak(t *testing.T) {
	h := New(reader.U8, 0, 255)
	for i := 0; i < 1000; i++ {
		h.Add(50)
	}
	rangeMin, rangeMax := h.AutoRange()
	if rangeMin > rangeMax {
		t.Errorf("AutoRange() range_min=%v > range_max=%v", rangeMin, rangeMax)
	}
	if rangeMax > 255 {
		t.Errorf("AutoRange() range_max=%v exceeds domain max 255", rangeMax)
	}
}
