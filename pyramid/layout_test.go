/*
DESCRIPTION
  layout_test.go tests DefaultLayoutStrategy: level count capping, the
  axis floor, and that Z never downsamples for single-slice data.

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
	"testing"

	"github.com/ausocean/voxelconvert/reader"
)

func TestDefaultLayoutStrategySingleSliceNeverStepsZ(t *testing.T) {
	s := DefaultLayoutStrategy{MinAxisVoxels: 2, MaxLevels: 8}
	factors := s.Levels(reader.Size5D{X: 64, Y: 64, Z: 1, C: 1, T: 1}, [3]float64{1, 1, 1})
	for i, f := range factors {
		if f.Z != 1 {
			t.Errorf("factors[%d].Z = %d, want 1 (single-slice data must never downsample Z)", i, f.Z)
		}
	}
}

func TestDefaultLayoutStrategyRespectsMaxLevels(t *testing.T) {
	s := DefaultLayoutStrategy{MinAxisVoxels: 2, MaxLevels: 3}
	factors := s.Levels(reader.Size5D{X: 256, Y: 256, Z: 256, C: 1, T: 1}, [3]float64{1, 1, 1})
	if got := len(factors) + 1; got != 3 {
		t.Errorf("total levels = %d, want 3 (MaxLevels)", got)
	}
}

func TestDefaultLayoutStrategyStopsAtAxisFloor(t *testing.T) {
	s := DefaultLayoutStrategy{MinAxisVoxels: 16, MaxLevels: 8}
	factors := s.Levels(reader.Size5D{X: 32, Y: 32, Z: 1, C: 1, T: 1}, [3]float64{1, 1, 1})

	cur := uint64(32)
	for _, f := range factors {
		cur /= uint64(f.X)
	}
	if cur < 16 {
		t.Errorf("final axis size %d fell below MinAxisVoxels 16", cur)
	}
	// One more halving would drop below the floor, so exactly one level
	// transition is expected from 32 with a floor of 16.
	if len(factors) != 1 {
		t.Errorf("len(factors) = %d, want 1", len(factors))
	}
}

func TestBuildLevelsSizesCascade(t *testing.T) {
	size := reader.Size5D{X: 16, Y: 16, Z: 1, C: 1, T: 1}
	blockSize := reader.Size5D{X: 8, Y: 8, Z: 1, C: 1, T: 1}
	levels := BuildLevels(size, blockSize, []Factor3{{X: 2, Y: 2, Z: 1}, {X: 2, Y: 2, Z: 1}})

	if len(levels) != 3 {
		t.Fatalf("len(levels) = %d, want 3", len(levels))
	}
	want := []uint64{16, 8, 4}
	for i, lv := range levels {
		if lv.Index != i {
			t.Errorf("levels[%d].Index = %d, want %d", i, lv.Index, i)
		}
		if lv.Size.X != want[i] {
			t.Errorf("levels[%d].Size.X = %d, want %d", i, lv.Size.X, want[i])
		}
	}
}

func TestWriterBlockGridPartialHighEdge(t *testing.T) {
	g := NewWriterBlockGrid(reader.Size5D{X: 10, Y: 1, Z: 1, C: 1, T: 1}, reader.Size5D{X: 4, Y: 1, Z: 1, C: 1, T: 1})
	if g.Counts.X != 3 {
		t.Fatalf("Counts.X = %d, want 3", g.Counts.X)
	}
	_, size := g.Extent(reader.Index5D{X: 2}, reader.Size5D{X: 10, Y: 1, Z: 1, C: 1, T: 1})
	if size.X != 2 {
		t.Errorf("trailing block size.X = %d, want 2 (10 - 2*4)", size.X)
	}
}
