/*
DESCRIPTION
  remapper.go implements BlockRemapper: it drives a reader.BlockReaderAdapter
  block by block, applies crop, subsample and axis-flip, and emits the
  surviving voxels to a pyramid.Engine's level-0 blocks, reinterpreting
  the reader's native dimension order into the engine's writer order as
  it goes.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package remap

import (
	"context"
	"fmt"
	"hash"
	"log"

	"github.com/ausocean/voxelconvert/pyramid"
	"github.com/ausocean/voxelconvert/reader"
)

// Remapper is the BlockRemapper: it owns the source reader for the
// duration of ProcessAll and pushes every surviving voxel into engine.
type Remapper struct {
	Src    reader.BlockReaderAdapter
	Engine *pyramid.Engine
	Crop   Crop
	Sample Sample

	// TOffset is added to every destination timepoint index this
	// Remapper writes, after crop and sample have been applied. It lets
	// several Remappers sharing one Engine append a file series as
	// consecutive timepoints: each later file's TOffset is the running
	// total of timepoints written by the files before it.
	TOffset uint64

	// Logger receives one warning per recoverable reader error
	// encountered; a nil Logger discards them, matching the package
	// default used where no logger has been wired in yet.
	Logger *log.Logger

	// Hash, if set, is written with every surviving voxel buffer's bytes
	// in emission order, letting several Remappers sharing one Engine
	// (a file series) accumulate one running content hash across the
	// whole dataset.
	Hash hash.Hash

	desc  reader.SourceDescriptor
	ready bool
}

// prepare validates the source descriptor and resolves crop/sample
// defaults; called once, lazily, by ProcessAll.
func (r *Remapper) prepare() error {
	if r.ready {
		return nil
	}
	desc, err := r.Src.Describe()
	if err != nil {
		return fmt.Errorf("remap: describe: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("remap: invalid source descriptor: %w", err)
	}
	r.desc = desc
	r.Sample = r.Sample.resolve()
	r.ready = true
	return nil
}

// ProcessAll drives the reader from block 0 to its last block, computes
// each block's crop/sample/flip-adjusted destination region, and invokes
// Engine.CopyBlock once per (channel, timepoint) slice of each
// surviving block. A recoverable reader error on one block is logged and
// that block's buffer is left zeroed; processing continues with the next
// block. A non-recoverable error aborts immediately.
func (r *Remapper) ProcessAll(ctx context.Context) error {
	if err := r.prepare(); err != nil {
		return err
	}

	counts := r.desc.Size.CeilDiv(r.desc.NativeBlockSize)
	n := r.Src.NumberOfBlocks()
	elemSize := uint64(r.desc.DataType.Size())

	flipX, flipY, flipZ := r.desc.Extent.Flipped()
	if r.desc.FlippedX {
		flipX = true
	}
	if r.desc.FlippedY {
		flipY = true
	}
	if r.desc.FlippedZ {
		flipZ = true
	}

	cropMin, cropMax := r.Crop.resolve(r.desc.Size)

	for i := uint64(0); i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if i == 0 {
			if err := r.Src.GoToBlock(0); err != nil {
				return fmt.Errorf("remap: go to block 0: %w", err)
			}
		} else if err := r.Src.NextBlock(); err != nil {
			return fmt.Errorf("remap: advance to block %d: %w", i, err)
		}

		blockIdx := reader.Unflatten(i, counts, r.desc.NativeSequence)
		origin := blockIdx.Mul(r.desc.NativeBlockSize)
		extent := r.desc.NativeBlockSize
		clampExtent := func(o, e, lim uint64) uint64 {
			if o >= lim {
				return 0
			}
			if o+e > lim {
				return lim - o
			}
			return e
		}
		extent.X = clampExtent(origin.X, extent.X, r.desc.Size.X)
		extent.Y = clampExtent(origin.Y, extent.Y, r.desc.Size.Y)
		extent.Z = clampExtent(origin.Z, extent.Z, r.desc.Size.Z)
		extent.C = clampExtent(origin.C, extent.C, r.desc.Size.C)
		extent.T = clampExtent(origin.T, extent.T, r.desc.Size.T)

		rx := computeAxisRange(origin.X, extent.X, cropMin.X, cropMax.X, r.Sample.X)
		ry := computeAxisRange(origin.Y, extent.Y, cropMin.Y, cropMax.Y, r.Sample.Y)
		rz := computeAxisRange(origin.Z, extent.Z, cropMin.Z, cropMax.Z, r.Sample.Z)
		rc := computeAxisRange(origin.C, extent.C, cropMin.C, cropMax.C, r.Sample.C)
		rt := computeAxisRange(origin.T, extent.T, cropMin.T, cropMax.T, r.Sample.T)
		if rx.empty() || ry.empty() || rz.empty() || rc.empty() || rt.empty() {
			continue // need_copy_block is false: crop excludes this block entirely.
		}

		raw := make([]byte, extent.Volume()*elemSize)
		if err := r.Src.ReadBlock(raw); err != nil {
			if !reader.Recoverable(err) {
				return fmt.Errorf("remap: block %d: %w", i, err)
			}
			if r.Logger != nil {
				r.Logger.Printf("remap: recoverable error on block %d, zero-filling: %v", i, err)
			}
			// raw is left zeroed; proceed as if the block read as all
			// zero voxels, per the failure-semantics rule.
		}

		r.emitBlock(raw, origin, extent, rx, ry, rz, rc, rt, flipX, flipY, flipZ, cropMin)
	}
	return nil
}

// emitBlock extracts the surviving sub-region of one reader block
// (described by rx..rt, all block-relative) and calls Engine.CopyBlock
// once per surviving (channel, timepoint) pair.
func (r *Remapper) emitBlock(raw []byte, origin, extent reader.Size5D, rx, ry, rz, rc, rt axisRange, flipX, flipY, flipZ bool, cropMin reader.Size5D) {
	weights := r.desc.NativeSequence.Weights(extent)
	elemSize := uint64(r.desc.DataType.Size())

	dstX := countSampled(rx, r.Sample.X)
	dstY := countSampled(ry, r.Sample.Y)
	dstZ := countSampled(rz, r.Sample.Z)

	fine := r.Engine.Levels()[0]
	blockSize := fine.Grid.BlockSize

	for c := rc.beginInBlock; c < rc.endInBlock; c += r.Sample.C {
		dstC := (origin.C + c - cropMin.C) / r.Sample.C
		for t := rt.beginInBlock; t < rt.endInBlock; t += r.Sample.T {
			dstT := (origin.T+t-cropMin.T)/r.Sample.T + r.TOffset

			buf := make([]byte, dstX*dstY*dstZ*elemSize)
			var di uint64
			for zi := uint64(0); zi < dstZ; zi++ {
				z := rz.beginInBlock + zi*r.Sample.Z
				zOut := zi
				if flipZ {
					zOut = dstZ - 1 - zi
				}
				for yi := uint64(0); yi < dstY; yi++ {
					y := ry.beginInBlock + yi*r.Sample.Y
					yOut := yi
					if flipY {
						yOut = dstY - 1 - yi
					}
					for xi := uint64(0); xi < dstX; xi++ {
						x := rx.beginInBlock + xi*r.Sample.X
						xOut := xi
						if flipX {
							xOut = dstX - 1 - xi
						}
						srcIdx := x*weights[reader.DimX] + y*weights[reader.DimY] + z*weights[reader.DimZ] +
							c*weights[reader.DimC] + t*weights[reader.DimT]
						dstIdx := (zOut*dstY+yOut)*dstX + xOut
						copy(buf[dstIdx*elemSize:(dstIdx+1)*elemSize], raw[srcIdx*elemSize:(srcIdx+1)*elemSize])
						di++
					}
				}
			}
			_ = di

			destX := (origin.X + rx.beginInBlock - cropMin.X) / r.Sample.X
			destY := (origin.Y + ry.beginInBlock - cropMin.Y) / r.Sample.Y
			destZ := (origin.Z + rz.beginInBlock - cropMin.Z) / r.Sample.Z
			wb := reader.Index5D{
				X: destX / blockSize.X,
				Y: destY / blockSize.Y,
				Z: destZ / blockSize.Z,
			}
			if !r.Engine.NeedCopyBlock(0, wb) {
				continue
			}
			if r.Hash != nil {
				r.Hash.Write(buf)
			}
			r.Engine.CopyBlock(buf, wb, int(dstT), int(dstC))
		}
	}
}

// countSampled returns how many voxels survive from range rng under
// stride, i.e. the count of grid points rng.beginInBlock,
// rng.beginInBlock+stride, ... within [rng.beginInBlock, rng.endInBlock).
func countSampled(rng axisRange, stride uint64) uint64 {
	if rng.empty() {
		return 0
	}
	return (rng.endInBlock-1-rng.beginInBlock)/stride + 1
}
