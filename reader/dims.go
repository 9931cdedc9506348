/*
DESCRIPTION
  dims.go provides the 5D dimension types (Index5D, Size5D and
  DimensionSequence) shared by every stage of the conversion pipeline.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package reader describes the BlockReaderAdapter contract: a uniform,
// block-oriented cursor over a 5D (X,Y,Z,C,T) microscopy acquisition,
// plus the immutable descriptor types every stage of the pipeline needs
// to interpret those blocks.
package reader

import "fmt"

// Dimension identifies one of the five axes a dataset is indexed by.
type Dimension int

// The five axes. Order here has no significance; a DimensionSequence
// gives axes their traversal order.
const (
	DimX Dimension = iota
	DimY
	DimZ
	DimC
	DimT
)

// numDims is the number of axes in the data model. Every fixed-size array
// keyed by Dimension uses this length.
const numDims = 5

func (d Dimension) String() string {
	switch d {
	case DimX:
		return "X"
	case DimY:
		return "Y"
	case DimZ:
		return "Z"
	case DimC:
		return "C"
	case DimT:
		return "T"
	default:
		return fmt.Sprintf("Dimension(%d)", int(d))
	}
}

// DimensionSequence is a permutation of the five axes describing how a
// flat block buffer's indices increment; DimensionSequence[0] is the
// dimension that varies fastest.
type DimensionSequence [numDims]Dimension

// DefaultSequence is the writer's native ordering: X and Y always precede
// C, per the data model.
var DefaultSequence = DimensionSequence{DimX, DimY, DimZ, DimC, DimT}

// IndexOf returns the position of d within the sequence, i.e. the number
// of dimensions that vary faster than d. It panics if d does not appear
// in the sequence, since that would violate the permutation invariant;
// if d appears more than once, the first position is returned.
func (s DimensionSequence) IndexOf(d Dimension) int {
	for i, v := range s {
		if v == d {
			return i
		}
	}
	panic(fmt.Sprintf("reader: dimension %v not present in sequence %v", d, s))
}

// Validate reports whether s is a permutation of all five axes.
func (s DimensionSequence) Validate() error {
	var seen [numDims]bool
	for _, d := range s {
		if int(d) < 0 || int(d) >= numDims {
			return fmt.Errorf("reader: invalid dimension %d in sequence", int(d))
		}
		if seen[d] {
			return fmt.Errorf("reader: dimension %v repeated in sequence %v", d, s)
		}
		seen[d] = true
	}
	return nil
}

// Weights returns, for each dimension, the number of elements that must
// be skipped in a flat buffer ordered by s to advance that dimension by
// one step — i.e. the stride implied by the sequence and sizes.
func (s DimensionSequence) Weights(size Size5D) [numDims]uint64 {
	var w [numDims]uint64
	acc := uint64(1)
	for _, d := range s {
		w[d] = acc
		acc *= size.Get(d)
	}
	return w
}

// Index5D maps each of the five axes to an unsigned coordinate. It is
// used for block indices, per-axis offsets and block counts alike.
type Index5D struct {
	X, Y, Z, C, T uint64
}

// Size5D is an Index5D used to express extents (voxel counts, block
// counts, block sizes) rather than positions. The two types share a
// representation so arithmetic between them (e.g. offset+size) type-checks
// without conversion.
type Size5D = Index5D

// Get returns the coordinate along dimension d.
func (i Index5D) Get(d Dimension) uint64 {
	switch d {
	case DimX:
		return i.X
	case DimY:
		return i.Y
	case DimZ:
		return i.Z
	case DimC:
		return i.C
	case DimT:
		return i.T
	default:
		panic(fmt.Sprintf("reader: invalid dimension %d", int(d)))
	}
}

// With returns a copy of i with the coordinate along d set to v.
func (i Index5D) With(d Dimension, v uint64) Index5D {
	switch d {
	case DimX:
		i.X = v
	case DimY:
		i.Y = v
	case DimZ:
		i.Z = v
	case DimC:
		i.C = v
	case DimT:
		i.T = v
	default:
		panic(fmt.Sprintf("reader: invalid dimension %d", int(d)))
	}
	return i
}

// Add returns the component-wise sum of i and o.
func (i Index5D) Add(o Index5D) Index5D {
	return Index5D{i.X + o.X, i.Y + o.Y, i.Z + o.Z, i.C + o.C, i.T + o.T}
}

// Mul returns the component-wise product of i and o.
func (i Index5D) Mul(o Index5D) Index5D {
	return Index5D{i.X * o.X, i.Y * o.Y, i.Z * o.Z, i.C * o.C, i.T * o.T}
}

// Sub returns the component-wise difference i-o. Components are not
// allowed to underflow the caller's expectations; callers that need
// saturating subtraction should use SatSub.
func (i Index5D) Sub(o Index5D) Index5D {
	return Index5D{i.X - o.X, i.Y - o.Y, i.Z - o.Z, i.C - o.C, i.T - o.T}
}

// SatSub returns the component-wise difference i-o, clamped to zero on
// each axis where o's component exceeds i's.
func (i Index5D) SatSub(o Index5D) Index5D {
	sub := func(a, b uint64) uint64 {
		if b >= a {
			return 0
		}
		return a - b
	}
	return Index5D{sub(i.X, o.X), sub(i.Y, o.Y), sub(i.Z, o.Z), sub(i.C, o.C), sub(i.T, o.T)}
}

// CeilDiv returns the component-wise ceiling division of i by o, i.e.
// ceil(i[d]/o[d]) for each axis d. It is used to turn a data size and a
// block size into a block count.
func (i Index5D) CeilDiv(o Index5D) Size5D {
	div := func(a, b uint64) uint64 {
		if b == 0 {
			return 0
		}
		return (a + b - 1) / b
	}
	return Size5D{div(i.X, o.X), div(i.Y, o.Y), div(i.Z, o.Z), div(i.C, o.C), div(i.T, o.T)}
}

// Volume returns the product of all five components, i.e. the number of
// voxels (for a Size5D) or the flat index stride (for an Index5D used as
// a coordinate bound).
func (i Index5D) Volume() uint64 {
	return i.X * i.Y * i.Z * i.C * i.T
}

// Less reports whether i is component-wise strictly less than o on every
// axis. It is used to bounds-check a block index against a block count.
func (i Index5D) Less(o Index5D) bool {
	return i.X < o.X && i.Y < o.Y && i.Z < o.Z && i.C < o.C && i.T < o.T
}

func (i Index5D) String() string {
	return fmt.Sprintf("(x=%d,y=%d,z=%d,c=%d,t=%d)", i.X, i.Y, i.Z, i.C, i.T)
}

// FlatIndex converts a 5D block index into a single linear index under
// traversal order seq over block counts counts, first dimension in seq
// varying fastest. This is the order go_to_block/next_block must honor.
func FlatIndex(idx Index5D, counts Size5D, seq DimensionSequence) uint64 {
	var flat, stride uint64 = 0, 1
	for _, d := range seq {
		flat += idx.Get(d) * stride
		stride *= counts.Get(d)
	}
	return flat
}

// Unflatten is the inverse of FlatIndex: it reconstructs the 5D index
// corresponding to flat under the same traversal order and counts.
func Unflatten(flat uint64, counts Size5D, seq DimensionSequence) Index5D {
	var idx Index5D
	for _, d := range seq {
		c := counts.Get(d)
		if c == 0 {
			continue
		}
		idx = idx.With(d, flat%c)
		flat /= c
	}
	return idx
}
