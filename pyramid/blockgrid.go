/*
DESCRIPTION
  blockgrid.go provides WriterBlockGrid and the PyramidLevel descriptors
  the MultiResolutionEngine builds at construction time, before any block
  is copied.

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

import "github.com/ausocean/voxelconvert/reader"

// WriterBlockGrid is the per-level tiling the writer uses: a block size
// in voxels and the number of blocks along each axis, computed as
// ceil(size/blocksize). Blocks on the high edge of each axis may be
// partial.
type WriterBlockGrid struct {
	BlockSize reader.Size5D
	Counts    reader.Size5D
}

// NewWriterBlockGrid builds the grid for a level of the given size and
// block size.
func NewWriterBlockGrid(size, blockSize reader.Size5D) WriterBlockGrid {
	return WriterBlockGrid{BlockSize: blockSize, Counts: size.CeilDiv(blockSize)}
}

// Extent returns the voxel extent of the block at idx: its origin and
// its size, the latter clipped to the level's overall size on the high
// edge (a "partial" block).
func (g WriterBlockGrid) Extent(idx reader.Index5D, levelSize reader.Size5D) (origin, size reader.Size5D) {
	origin = idx.Mul(g.BlockSize)
	size = g.BlockSize
	clamp := func(o, e, lim uint64) uint64 {
		if o >= lim {
			return 0
		}
		if o+e > lim {
			return lim - o
		}
		return e
	}
	size.X = clamp(origin.X, size.X, levelSize.X)
	size.Y = clamp(origin.Y, size.Y, levelSize.Y)
	size.Z = clamp(origin.Z, size.Z, levelSize.Z)
	size.C = clamp(origin.C, size.C, levelSize.C)
	size.T = clamp(origin.T, size.T, levelSize.T)
	return origin, size
}

// PyramidLevel is one resolution level of the multi-resolution pyramid:
// its index (0 = finest), voxel size and writer block grid.
type PyramidLevel struct {
	Index int
	Size  reader.Size5D
	Grid  WriterBlockGrid
}

// BuildLevels constructs the pyramid's level descriptors from the
// full-resolution size, a file block size (applied at every level) and
// the downsample factors returned by a LayoutStrategy.
func BuildLevels(size reader.Size5D, fileBlockSize reader.Size5D, factors []Factor3) []PyramidLevel {
	levels := make([]PyramidLevel, 0, len(factors)+1)
	cur := size
	levels = append(levels, PyramidLevel{
		Index: 0,
		Size:  cur,
		Grid:  NewWriterBlockGrid(cur, fileBlockSize),
	})
	for i, f := range factors {
		cur = reader.Size5D{
			X: ceilDiv(cur.X, uint64(f.X)),
			Y: ceilDiv(cur.Y, uint64(f.Y)),
			Z: ceilDiv(cur.Z, uint64(f.Z)),
			C: cur.C,
			T: cur.T,
		}
		levels = append(levels, PyramidLevel{
			Index: i + 1,
			Size:  cur,
			Grid:  NewWriterBlockGrid(cur, fileBlockSize),
		})
	}
	return levels
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}
