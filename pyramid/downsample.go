/*
DESCRIPTION
  downsample.go implements the level-to-level averaging rule: each f×f×f
  box of the finer level is averaged into one voxel of the next-coarser
  level. Integer types round half-to-even; float types take the pure
  mean. Higher levels are always derived from the immediately finer
  level, never re-derived from level 0.

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

import "math"

// Box is a single-channel, single-timepoint XYZ box of
// voxels held as a flat float64 buffer for downsample arithmetic,
// addressed X-fastest.
//
// Counts is non-nil only while a Box is being filled incrementally from
// streamed, irregularly shaped contributions (the engine's level-1
// accumulation): Data then holds running sums and Counts the number of
// fine voxels folded into each destination voxel so far, since a
// trailing partial box on the high edge receives fewer than the nominal
// f.X*f.Y*f.Z contributors. A Box produced by Downsample has Counts nil
// and Data already holds final per-voxel means.
type Box struct {
	SX, SY, SZ int
	Data       []float64 // len == SX*SY*SZ
	Counts     []int     // len == SX*SY*SZ, or nil if Data is already final
}

func (b Box) at(x, y, z int) float64 {
	return b.Data[(z*b.SY+y)*b.SX+x]
}

// Finalize returns b with every voxel divided by its recorded
// contributor count, turning running sums into means. If b.Counts is
// nil, b is already final and is returned unchanged.
func (b Box) Finalize() Box {
	if b.Counts == nil {
		return b
	}
	out := Box{SX: b.SX, SY: b.SY, SZ: b.SZ, Data: make([]float64, len(b.Data))}
	for i, sum := range b.Data {
		if n := b.Counts[i]; n > 0 {
			out.Data[i] = sum / float64(n)
		}
	}
	return out
}

// Downsample averages src (a fine-level box of size f.X*dstW by
// f.Y*dstH by f.Z*dstD, modulo a partial trailing box) into a coarser
// box of size dstW x dstH x dstD, one f.X*f.Y*f.Z box per destination
// voxel. Trailing partial boxes (when src's size is not evenly
// divisible by the factor) average whatever voxels exist, per the
// boundary-behavior rule.
func Downsample(src Box, f Factor3, dstW, dstH, dstD int, isFloat bool) Box {
	out := make([]float64, dstW*dstH*dstD)
	for dz := 0; dz < dstD; dz++ {
		for dy := 0; dy < dstH; dy++ {
			for dx := 0; dx < dstW; dx++ {
				var sum float64
				var n int
				x0, y0, z0 := dx*f.X, dy*f.Y, dz*f.Z
				x1, y1, z1 := min(x0+f.X, src.SX), min(y0+f.Y, src.SY), min(z0+f.Z, src.SZ)
				for z := z0; z < z1; z++ {
					for y := y0; y < y1; y++ {
						for x := x0; x < x1; x++ {
							sum += src.at(x, y, z)
							n++
						}
					}
				}
				var v float64
				if n > 0 {
					v = sum / float64(n)
				}
				if !isFloat {
					v = roundHalfToEvenPublic(v)
				}
				out[(dz*dstH+dy)*dstW+dx] = v
			}
		}
	}
	return Box{SX: dstW, SY: dstH, SZ: dstD, Data: out}
}

// roundHalfToEvenPublic rounds v to the nearest integer, breaking exact
// .5 ties toward the even neighbor, the rule the data model mandates
// for integer-type pyramid downsampling.
func roundHalfToEvenPublic(v float64) float64 {
	return math.RoundToEven(v)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
