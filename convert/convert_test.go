/*
DESCRIPTION
  convert_test.go drives Converter end to end over memsource.Source and
  memwriter.Writer, covering five concrete scenarios (single-block
  histogram, constant-volume two-level pyramid, two-timepoint histogram
  totals, flipped-X mirror, crop) plus the total-voxel-count, round-trip
  and flip-invariance properties.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package convert

import (
	"context"
	"testing"

	"github.com/ausocean/voxelconvert/config"
	"github.com/ausocean/voxelconvert/reader"
	"github.com/ausocean/voxelconvert/reader/memsource"
	"github.com/ausocean/voxelconvert/writer/memwriter"
)

func u8Descriptor(size, blockSize reader.Size5D) reader.SourceDescriptor {
	return reader.SourceDescriptor{
		DataType:        reader.U8,
		Size:            size,
		NativeBlockSize: blockSize,
		NativeSequence:  reader.DefaultSequence,
		Resolutions:     1,
	}
}

// sumHistograms adds up every bin count recorded across all of a
// memwriter's histograms; callers that write only one (channel,level,t)
// triple can use it to check a dataset-wide total.
func sumHistograms(w *memwriter.Writer) uint64 {
	var total uint64
	for _, bins := range w.Histograms {
		for _, c := range bins {
			total += c
		}
	}
	return total
}

// TestScenario1SingleBlockHistogram covers spec scenario 1: a 4x4x1x1x1
// u8 volume with values 0..15, no crop, one writer block. Every bin 0..15
// must carry exactly one count.
func TestScenario1SingleBlockHistogram(t *testing.T) {
	size := reader.Size5D{X: 4, Y: 4, Z: 1, C: 1, T: 1}
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	src, err := memsource.New(u8Descriptor(size, size), data)
	if err != nil {
		t.Fatalf("memsource.New: %v", err)
	}
	w := memwriter.New()

	c, err := New(config.Config{}, src, w)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	block, ok := w.Block(0, 0, 0, reader.Index5D{})
	if !ok || len(block) != 16 {
		t.Fatalf("level-0 block: got %d bytes, ok=%v, want 16 bytes", len(block), ok)
	}
	for i, v := range block {
		if v != byte(i) {
			t.Errorf("voxel %d = %d, want %d", i, v, i)
		}
	}

	for _, bins := range w.Histograms {
		for i := 0; i < 16; i++ {
			if bins[i] != 1 {
				t.Errorf("bin %d = %d, want 1", i, bins[i])
			}
		}
		for i := 16; i < len(bins); i++ {
			if bins[i] != 0 {
				t.Errorf("bin %d = %d, want 0", i, bins[i])
			}
		}
	}
}

// TestScenario2ConstantVolumeTwoLevels covers spec scenario 2: an 8x8x1
// constant-100 volume, downsampled 2x2 into a 4x4 level 1 whose 16
// voxels are all 100.
func TestScenario2ConstantVolumeTwoLevels(t *testing.T) {
	size := reader.Size5D{X: 8, Y: 8, Z: 1, C: 1, T: 1}
	data := make([]byte, 64)
	for i := range data {
		data[i] = 100
	}
	src, err := memsource.New(u8Descriptor(size, size), data)
	if err != nil {
		t.Fatalf("memsource.New: %v", err)
	}
	w := memwriter.New()

	cfg := config.Config{LayoutMinAxisVoxels: 2, LayoutMaxLevels: 2}
	c, err := New(cfg, src, w)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	block, ok := w.Block(0, 0, 1, reader.Index5D{})
	if !ok {
		t.Fatal("level 1: no data block written")
	}
	if len(block) != 16 {
		t.Fatalf("level 1 block has %d voxels, want 16 (4x4)", len(block))
	}
	for i, v := range block {
		if v != 100 {
			t.Errorf("level 1 voxel %d = %d, want 100", i, v)
		}
	}
}

// TestScenario3TwoTimepoints covers spec scenario 3: two timepoints, one
// all-0 and one all-255, producing two level-0 blocks and histogram
// totals of 8 counts in bin 0 and 8 in bin 255.
func TestScenario3TwoTimepoints(t *testing.T) {
	size := reader.Size5D{X: 2, Y: 2, Z: 2, C: 1, T: 2}
	blockSize := reader.Size5D{X: 2, Y: 2, Z: 2, C: 1, T: 1}
	data := make([]byte, 16)
	for i := 8; i < 16; i++ {
		data[i] = 255
	}
	src, err := memsource.New(u8Descriptor(size, blockSize), data)
	if err != nil {
		t.Fatalf("memsource.New: %v", err)
	}
	w := memwriter.New()

	c, err := New(config.Config{}, src, w)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok := w.Block(0, 0, 0, reader.Index5D{}); !ok {
		t.Error("t=0 block not written")
	}
	if _, ok := w.Block(1, 0, 0, reader.Index5D{}); !ok {
		t.Error("t=1 block not written")
	}

	var zeros, maxes uint64
	for _, bins := range w.Histograms {
		zeros += bins[0]
		maxes += bins[255]
	}
	if zeros != 8 {
		t.Errorf("bin 0 total = %d, want 8", zeros)
	}
	if maxes != 8 {
		t.Errorf("bin 255 total = %d, want 8", maxes)
	}
}

// TestScenario4FlippedX covers spec scenario 4: a source that reports
// flipped_x mirrors each row on X before it reaches the writer, and the
// stored extent normalizes to min<max.
func TestScenario4FlippedX(t *testing.T) {
	size := reader.Size5D{X: 2, Y: 2, Z: 1, C: 1, T: 1}
	// Row-major X-fast: [[1,2],[3,4]] -> bytes 1,2,3,4.
	data := []byte{1, 2, 3, 4}
	desc := u8Descriptor(size, size)
	desc.FlippedX = true
	desc.Extent = reader.NewExtent(
		reader.AxisExtent{Min: 2, Max: 0}, // flipped: min>max in source terms
		reader.AxisExtent{Min: 0, Max: 2},
		reader.AxisExtent{Min: 0, Max: 1},
	)
	src, err := memsource.New(desc, data)
	if err != nil {
		t.Fatalf("memsource.New: %v", err)
	}
	w := memwriter.New()

	c, err := New(config.Config{}, src, w)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	block, ok := w.Block(0, 0, 0, reader.Index5D{})
	if !ok || len(block) != 4 {
		t.Fatalf("block: got %d bytes, ok=%v", len(block), ok)
	}
	want := []byte{2, 1, 4, 3}
	for i, v := range want {
		if block[i] != v {
			t.Errorf("voxel %d = %d, want %d (mirrored on X)", i, block[i], v)
		}
	}

	if w.Metadata == nil {
		t.Fatal("no metadata written")
	}
	ext := w.Metadata.Extent.Get(reader.DimX)
	if ext.Min >= ext.Max {
		t.Errorf("stored X extent = [%v,%v], want min<max", ext.Min, ext.Max)
	}
}

// TestScenario5Crop covers spec scenario 5: cropping a 4x4x1x1x1 volume
// to [1,3)x[1,3) leaves exactly voxels 5,6,9,10 reaching the writer.
func TestScenario5Crop(t *testing.T) {
	size := reader.Size5D{X: 4, Y: 4, Z: 1, C: 1, T: 1}
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	src, err := memsource.New(u8Descriptor(size, size), data)
	if err != nil {
		t.Fatalf("memsource.New: %v", err)
	}
	w := memwriter.New()

	cfg := config.Config{
		CropMinX: 1, CropMaxX: 3,
		CropMinY: 1, CropMaxY: 3,
	}
	c, err := New(cfg, src, w)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	block, ok := w.Block(0, 0, 0, reader.Index5D{})
	if !ok {
		t.Fatal("no block written")
	}
	want := []byte{5, 6, 9, 10}
	if len(block) != len(want) {
		t.Fatalf("block has %d voxels, want %d", len(block), len(want))
	}
	for i, v := range want {
		if block[i] != v {
			t.Errorf("voxel %d = %d, want %d", i, block[i], v)
		}
	}
}

// TestRoundTripNoTransform covers the round-trip invariant: with no
// crop, subsample or flip, the written level-0 voxels equal the input
// exactly.
func TestRoundTripNoTransform(t *testing.T) {
	size := reader.Size5D{X: 5, Y: 3, Z: 2, C: 1, T: 1}
	n := size.Volume()
	data := make([]byte, n)
	for i := range data {
		data[i] = byte((i*37 + 11) % 256)
	}
	src, err := memsource.New(u8Descriptor(size, size), data)
	if err != nil {
		t.Fatalf("memsource.New: %v", err)
	}
	w := memwriter.New()

	c, err := New(config.Config{}, src, w)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	block, ok := w.Block(0, 0, 0, reader.Index5D{})
	if !ok || uint64(len(block)) != n {
		t.Fatalf("block: got %d bytes, ok=%v, want %d", len(block), ok, n)
	}
	for i, v := range block {
		if v != data[i] {
			t.Errorf("voxel %d = %d, want %d", i, v, data[i])
		}
	}
}

// TestTotalVoxelCountInvariant covers the quantified invariant that the
// total voxels copied into level 0 equals the source's full volume,
// regardless of native dimension order.
func TestTotalVoxelCountInvariant(t *testing.T) {
	tests := []struct {
		name string
		seq  reader.DimensionSequence
	}{
		{"x-fast", reader.DefaultSequence},
		{"z-fast", reader.DimensionSequence{reader.DimZ, reader.DimX, reader.DimY, reader.DimC, reader.DimT}},
	}
	size := reader.Size5D{X: 3, Y: 2, Z: 2, C: 1, T: 1}
	n := size.Volume()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, n)
			for i := range data {
				data[i] = byte(i + 1)
			}
			desc := u8Descriptor(size, size)
			desc.NativeSequence = tt.seq
			src, err := memsource.New(desc, data)
			if err != nil {
				t.Fatalf("memsource.New: %v", err)
			}
			w := memwriter.New()

			c, err := New(config.Config{}, src, w)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := c.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}

			block, ok := w.Block(0, 0, 0, reader.Index5D{})
			if !ok || uint64(len(block)) != n {
				t.Fatalf("block has %d voxels, want %d", len(block), n)
			}
		})
	}
}

// TestFlipInvarianceYAxis covers the flip-invariance property: a source
// reporting flipped_y must produce the same output as one whose voxels
// are pre-mirrored on Y with flipped_y left false.
func TestFlipInvarianceYAxis(t *testing.T) {
	size := reader.Size5D{X: 2, Y: 3, Z: 1, C: 1, T: 1}
	// Row-major X-fast, Y next: rows (by Y) are [1,2],[3,4],[5,6].
	plain := []byte{1, 2, 3, 4, 5, 6}
	mirrored := []byte{5, 6, 3, 4, 1, 2}

	runFlipped := func(data []byte, flippedY bool) []byte {
		desc := u8Descriptor(size, size)
		desc.FlippedY = flippedY
		src, err := memsource.New(desc, data)
		if err != nil {
			t.Fatalf("memsource.New: %v", err)
		}
		w := memwriter.New()
		c, err := New(config.Config{}, src, w)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		block, ok := w.Block(0, 0, 0, reader.Index5D{})
		if !ok {
			t.Fatal("no block written")
		}
		return block
	}

	got := runFlipped(plain, true)
	want := runFlipped(mirrored, false)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: %d vs %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("voxel %d: flipped_y output=%d, pre-mirrored output=%d", i, got[i], want[i])
		}
	}
}
