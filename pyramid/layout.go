/*
DESCRIPTION
  layout.go provides the OptimalLayout strategy: how many resolution
  levels to build and what per-axis downsample factor to apply at each
  level. The exact heuristic is left as a tunable strategy object per
  the design notes' Open Question; this file documents the default.

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

// Factor3 is a per-axis (X,Y,Z) integer downsample factor between one
// pyramid level and the next-coarser one.
type Factor3 struct {
	X, Y, Z int
}

// LayoutStrategy decides the pyramid's shape: how many levels to build,
// and the per-axis downsample factor from level r to level r+1. It is a
// tunable strategy object rather than a hard-coded rule, since the exact
// "optimal" heuristic a vendor tool uses is proprietary and unspecified
// in source; DefaultLayoutStrategy documents the conservative default
// used here.
type LayoutStrategy interface {
	// Levels returns the downsample factors to apply between each pair
	// of consecutive levels, given the full-resolution size in voxels
	// and physical voxel spacing (for near-cubic aspect preservation).
	// The returned slice has one entry per level transition, so
	// len(result)+1 is the total number of levels, capped by maxLevels.
	Levels(size reader.Size5D, voxelSize [3]float64) []Factor3
}

// DefaultLayoutStrategy implements the strategy described in §4.3:
// integer power-of-two factors per axis, stepping only axes that stay at
// or above MinAxisVoxels, and stopping when no axis can step or at
// MaxLevels total levels (including level 0).
type DefaultLayoutStrategy struct {
	// MinAxisVoxels is the floor below which an axis may not be
	// downsampled further. Default 16 if zero.
	MinAxisVoxels int

	// MaxLevels bounds the total number of levels, including level 0.
	// Default 8 if zero.
	MaxLevels int
}

const (
	defaultMinAxisVoxels = 16
	defaultMaxLevels     = 8
)

// Levels implements LayoutStrategy.
func (s DefaultLayoutStrategy) Levels(size reader.Size5D, voxelSize [3]float64) []Factor3 {
	minAxis := s.MinAxisVoxels
	if minAxis <= 0 {
		minAxis = defaultMinAxisVoxels
	}
	maxLevels := s.MaxLevels
	if maxLevels <= 0 {
		maxLevels = defaultMaxLevels
	}

	vx, vy, vz := voxelSize[0], voxelSize[1], voxelSize[2]
	if vx <= 0 {
		vx = 1
	}
	if vy <= 0 {
		vy = 1
	}
	if vz <= 0 {
		vz = 1
	}

	curX, curY, curZ := float64(size.X), float64(size.Y), float64(size.Z)
	curVX, curVY, curVZ := vx, vy, vz

	var factors []Factor3
	for len(factors)+1 < maxLevels {
		// Determine which axes may still step: halving must not take
		// that axis below the floor.
		canX := curX/2 >= float64(minAxis)
		canY := curY/2 >= float64(minAxis)
		canZ := curZ/2 >= float64(minAxis) && size.Z > 1
		if !canX && !canY && !canZ {
			break
		}

		// Near-cubic preservation: only step an axis whose current
		// physical voxel size is not already larger than the finest
		// steppable axis's by more than 2x; this avoids over-flattening
		// already-anisotropic axes (e.g. thick Z steps in confocal stacks).
		minSpacing := curVX + curVY + curVZ
		if canX {
			minSpacing = curVX
		}
		if canY && curVY < minSpacing {
			minSpacing = curVY
		}
		if canZ && curVZ < minSpacing {
			minSpacing = curVZ
		}

		f := Factor3{X: 1, Y: 1, Z: 1}
		if canX && curVX <= minSpacing*2 {
			f.X = 2
		}
		if canY && curVY <= minSpacing*2 {
			f.Y = 2
		}
		if canZ && curVZ <= minSpacing*2 {
			f.Z = 2
		}
		if f.X == 1 && f.Y == 1 && f.Z == 1 {
			break
		}

		factors = append(factors, f)
		curX /= float64(f.X)
		curY /= float64(f.Y)
		curZ /= float64(f.Z)
		curVX *= float64(f.X)
		curVY *= float64(f.Y)
		curVZ *= float64(f.Z)
	}
	return factors
}
