/*
DESCRIPTION
  crop.go defines Crop and Sample, the two block-remapping parameters a
  caller may set to restrict or subsample the voxels a BlockRemapper
  copies from the source into the writer.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package remap implements BlockRemapper: it reads reader-ordered blocks
// from a reader.BlockReaderAdapter, applies crop, subsample and
// axis-flip, and pushes the result into a pyramid.Engine's level-0
// blocks.
package remap

import "github.com/ausocean/voxelconvert/reader"

// Crop restricts the voxels copied to [Min,Max) on each axis, in source
// coordinates. A zero Max component on an axis means "natural bound",
// i.e. that axis's full source size; this lets a caller crop only some
// axes without knowing the others' sizes up front.
type Crop struct {
	Min, Max reader.Size5D
}

// resolve returns c's bounds with every zero Max replaced by size's
// corresponding axis, and Min defaulted to 0 (its zero value already
// means that).
func (c Crop) resolve(size reader.Size5D) (min, max reader.Size5D) {
	max = c.Max
	if max.X == 0 {
		max.X = size.X
	}
	if max.Y == 0 {
		max.Y = size.Y
	}
	if max.Z == 0 {
		max.Z = size.Z
	}
	if max.C == 0 {
		max.C = size.C
	}
	if max.T == 0 {
		max.T = size.T
	}
	return c.Min, max
}

// Sample is the integer subsample stride applied along each axis: 1
// copies every voxel, 2 copies every other voxel, and so on. The
// Converter always uses a Sample of all 1s (IdentitySample).
type Sample struct {
	X, Y, Z, C, T uint64
}

// IdentitySample is the Sample that copies every voxel unchanged.
var IdentitySample = Sample{X: 1, Y: 1, Z: 1, C: 1, T: 1}

func (s Sample) resolve() Sample {
	fix := func(v uint64) uint64 {
		if v == 0 {
			return 1
		}
		return v
	}
	return Sample{X: fix(s.X), Y: fix(s.Y), Z: fix(s.Z), C: fix(s.C), T: fix(s.T)}
}

// strideOf returns the subsample stride along dimension d.
func (s Sample) strideOf(d reader.Dimension) uint64 {
	switch d {
	case reader.DimX:
		return s.X
	case reader.DimY:
		return s.Y
	case reader.DimZ:
		return s.Z
	case reader.DimC:
		return s.C
	case reader.DimT:
		return s.T
	default:
		return 1
	}
}

// axisRange is the visible range of one source block along one axis
// after crop and subsample are applied: beginInBlock and endInBlock are
// offsets within the block (not absolute source coordinates), and the
// range is empty whenever endInBlock<=beginInBlock, the condition
// need_copy_block tests.
type axisRange struct {
	beginInBlock, endInBlock uint64
}

func (r axisRange) empty() bool { return r.endInBlock <= r.beginInBlock }

// computeAxisRange implements the §4.2 formula for one axis: given the
// block's absolute [blockStart,blockStart+blockLen) span in source
// coordinates, the crop's [cropMin,cropMax) and the subsample stride,
// return the portion of the block (as block-relative offsets) that
// survives both the crop and the sample-grid alignment.
func computeAxisRange(blockStart, blockLen, cropMin, cropMax, stride uint64) axisRange {
	// Clip to the crop window first.
	lo := blockStart
	if cropMin > lo {
		lo = cropMin
	}
	hi := blockStart + blockLen
	if cropMax < hi {
		hi = cropMax
	}
	if hi <= lo {
		return axisRange{}
	}
	beginInBlock := lo - blockStart
	endInBlock := hi - blockStart

	// Align beginInBlock to the sample grid anchored at cropMin: skip
	// leading voxels not aligned to the stride.
	if stride > 1 {
		off := (blockStart + beginInBlock - cropMin) % stride
		if off != 0 {
			beginInBlock += stride - off
		}
	}
	if beginInBlock > endInBlock {
		beginInBlock = endInBlock
	}
	return axisRange{beginInBlock: beginInBlock, endInBlock: endInBlock}
}
