/*
DESCRIPTION
  extent.go describes the physical bounding box of a dataset, and the
  per-axis flip flags derived from it.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package reader

// AxisExtent is the physical (min,max) bound of one spatial axis, in
// world units.
type AxisExtent struct {
	Min, Max float64
}

// Flipped reports whether e was constructed with Min>Max, i.e. the axis
// runs in reverse in source order.
func (e AxisExtent) Flipped() bool { return e.Min > e.Max }

// Normalized returns e with Min and Max swapped if necessary so that
// Min<=Max always holds in the stored value, regardless of flip state.
func (e AxisExtent) Normalized() AxisExtent {
	if e.Flipped() {
		return AxisExtent{Min: e.Max, Max: e.Min}
	}
	return e
}

// Extent is the physical bounding box of a dataset. Only the spatial axes
// (X,Y,Z) carry a meaningful extent; C and T are always zero-valued.
type Extent [numDims]AxisExtent

// NewExtent builds an Extent from the three spatial bounds.
func NewExtent(x, y, z AxisExtent) Extent {
	var e Extent
	e[DimX], e[DimY], e[DimZ] = x, y, z
	return e
}

// Get returns the extent for axis d.
func (e Extent) Get(d Dimension) AxisExtent { return e[d] }

// Flipped reports, per spatial axis, whether that axis is flipped.
func (e Extent) Flipped() (x, y, z bool) {
	return e[DimX].Flipped(), e[DimY].Flipped(), e[DimZ].Flipped()
}

// Normalized returns a copy of e with every axis normalized to Min<=Max.
// This is the form that is ultimately written into container metadata;
// the flip itself is applied to voxel data at write time, not to the
// stored extent.
func (e Extent) Normalized() Extent {
	var out Extent
	for d := Dimension(0); d < numDims; d++ {
		out[d] = e[d].Normalized()
	}
	return out
}
