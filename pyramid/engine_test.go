/*
DESCRIPTION
  engine_test.go tests MultiResolutionEngine: level-by-level pyramid
  construction, partial-box averaging at the dataset's high edge, the
  histogram-total invariant and the NeedCopyBlock contract.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pyramid

import (
	"context"
	"testing"

	"github.com/ausocean/voxelconvert/reader"
	"github.com/ausocean/voxelconvert/writer/memwriter"
)

// fixedLayout is a LayoutStrategy that always returns the same factor
// sequence, regardless of size, letting a test pin down an exact level
// count instead of depending on DefaultLayoutStrategy's heuristics.
type fixedLayout struct {
	factors []Factor3
}

func (f fixedLayout) Levels(size reader.Size5D, voxelSize [3]float64) []Factor3 {
	return f.factors
}

// fillBlock writes a constant value into every voxel of a U8 buffer.
func fillBlock(n uint64, v byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

// TestEngineBuildsEveryLevel verifies that a three-level pyramid (level
// 0 plus two coarser levels) gets data blocks and a histogram written
// for every level, not just level 1 — the bug that let levels >= 2 stay
// empty because accumulate never cascaded past level 1.
func TestEngineBuildsEveryLevel(t *testing.T) {
	size := reader.Size5D{X: 8, Y: 8, Z: 1, C: 1, T: 1}
	blockSize := reader.Size5D{X: 8, Y: 8, Z: 1, C: 1, T: 1}
	w := memwriter.New()

	e, err := Construct(reader.U8, size, blockSize, reader.DefaultSequence, w, Options{
		Layout: fixedLayout{factors: []Factor3{{X: 2, Y: 2, Z: 1}, {X: 2, Y: 2, Z: 1}}},
	})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if got := len(e.Levels()); got != 3 {
		t.Fatalf("Levels() = %d levels, want 3", got)
	}

	e.CopyBlock(fillBlock(64, 40), reader.Index5D{}, 0, 0)

	if err := e.Finish(context.Background(), reader.Extent{}, nil, nil, nil, false); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	for level := 0; level < 3; level++ {
		block, ok := w.Block(0, 0, level, reader.Index5D{})
		if !ok {
			t.Errorf("level %d: no data block written", level)
			continue
		}
		if len(block) == 0 {
			t.Errorf("level %d: data block is empty", level)
		}
		if h, ok := e.hists.Lookup(0, level); !ok || h.Total() == 0 {
			t.Errorf("level %d: no histogram recorded", level)
		}
	}

	// Every level was fed a uniform value of 40, so every level's
	// average must also be 40: check level 2's block decodes to 40
	// everywhere.
	block, ok := w.Block(0, 0, 2, reader.Index5D{})
	if !ok {
		t.Fatal("level 2: no data block written")
	}
	for i, v := range block {
		if v != 40 {
			t.Errorf("level 2 voxel %d = %d, want 40", i, v)
		}
	}
}

// TestEnginePartialBoxAverage verifies that a trailing partial box on
// the high edge of a non-evenly-divisible axis averages only its actual
// contributors, not the nominal f.X*f.Y*f.Z box volume.
func TestEnginePartialBoxAverage(t *testing.T) {
	// X=5 with factor 2 gives level 1 three destination voxels along X:
	// the first two cover 2 fine voxels each, the third only 1 (a
	// trailing partial box).
	size := reader.Size5D{X: 5, Y: 1, Z: 1, C: 1, T: 1}
	blockSize := reader.Size5D{X: 5, Y: 1, Z: 1, C: 1, T: 1}
	w := memwriter.New()

	e, err := Construct(reader.U8, size, blockSize, reader.DefaultSequence, w, Options{
		Layout: fixedLayout{factors: []Factor3{{X: 2, Y: 1, Z: 1}}},
	})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}

	data := []byte{10, 10, 20, 20, 100}
	e.CopyBlock(data, reader.Index5D{}, 0, 0)

	if err := e.Finish(context.Background(), reader.Extent{}, nil, nil, nil, false); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	block, ok := w.Block(0, 0, 1, reader.Index5D{})
	if !ok {
		t.Fatal("level 1: no data block written")
	}
	if len(block) != 3 {
		t.Fatalf("level 1 block has %d voxels, want 3", len(block))
	}
	want := []byte{10, 20, 100}
	for i, v := range want {
		if block[i] != v {
			t.Errorf("level 1 voxel %d = %d, want %d", i, block[i], v)
		}
	}
	// Voxel 2's 100 comes from a single trailing contributor; if it were
	// divided by the nominal factor of 2 instead of its actual 1
	// contributor, it would come out as 50.
}

// TestEngineHistogramTotalMatchesVoxelCount checks the invariant that a
// level's histogram total equals the number of voxels written to it.
func TestEngineHistogramTotalMatchesVoxelCount(t *testing.T) {
	size := reader.Size5D{X: 4, Y: 4, Z: 1, C: 1, T: 1}
	blockSize := reader.Size5D{X: 4, Y: 4, Z: 1, C: 1, T: 1}
	w := memwriter.New()

	e, err := Construct(reader.U8, size, blockSize, reader.DefaultSequence, w, Options{
		Layout: fixedLayout{factors: []Factor3{{X: 2, Y: 2, Z: 1}}},
	})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}

	e.CopyBlock(fillBlock(16, 7), reader.Index5D{}, 0, 0)
	if err := e.Finish(context.Background(), reader.Extent{}, nil, nil, nil, false); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if h, ok := e.hists.Lookup(0, 0); !ok || h.Total() != 16 {
		t.Errorf("level 0 histogram total = %v, want 16", h)
	}
	if h, ok := e.hists.Lookup(0, 1); !ok || h.Total() != 4 {
		t.Errorf("level 1 histogram total = %v, want 4", h)
	}
}

// TestEngineNeedCopyBlock verifies the NeedCopyBlock contract: level 0
// always reports true, a coarser level reports true until its store has
// been flushed away by Finish.
func TestEngineNeedCopyBlock(t *testing.T) {
	size := reader.Size5D{X: 4, Y: 4, Z: 1, C: 1, T: 1}
	blockSize := reader.Size5D{X: 4, Y: 4, Z: 1, C: 1, T: 1}
	w := memwriter.New()

	e, err := Construct(reader.U8, size, blockSize, reader.DefaultSequence, w, Options{
		Layout: fixedLayout{factors: []Factor3{{X: 2, Y: 2, Z: 1}}},
	})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}

	if !e.NeedCopyBlock(0, reader.Index5D{}) {
		t.Error("NeedCopyBlock(0, ...) = false, want true")
	}
	if !e.NeedCopyBlock(1, reader.Index5D{}) {
		t.Error("NeedCopyBlock(1, ...) = false before Finish, want true")
	}

	e.CopyBlock(fillBlock(16, 5), reader.Index5D{}, 0, 0)
	if err := e.Finish(context.Background(), reader.Extent{}, nil, nil, nil, false); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if e.NeedCopyBlock(1, reader.Index5D{}) {
		t.Error("NeedCopyBlock(1, ...) = true after Finish, want false (store flushed)")
	}
}
