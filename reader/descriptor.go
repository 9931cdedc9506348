/*
DESCRIPTION
  descriptor.go provides SourceDescriptor, the immutable per-dataset
  metadata every reader implementation must be able to produce, along
  with the color, time and parameter-section value types it is built
  from.

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

import "fmt"

// ColorInfo is the per-channel display-color metadata carried alongside
// voxel data: either a single base color or a 256-entry lookup table,
// plus opacity, gamma and the display range hints written by the
// MultiResolutionEngine's finalize/auto-adjust step. RangeMin/RangeMax
// are not clipping thresholds on voxel values; they are display-range
// hints (see GLOSSARY).
type ColorInfo struct {
	BaseColor [3]float32 // Used when LUT is empty.
	LUT       [][3]float32
	Opacity   float32
	Gamma     float32
	RangeMin  float64
	RangeMax  float64
}

// HasLUT reports whether ci carries a 256-entry lookup table rather than
// a single base color.
func (ci ColorInfo) HasLUT() bool { return len(ci.LUT) > 0 }

// TimeInfo is the per-timepoint acquisition time: a Julian day plus
// nanoseconds elapsed within that day, matching the precision vendor
// formats commonly report time-lapse acquisitions at.
type TimeInfo struct {
	JulianDay    int64
	NanosOfDay   int64
}

// ParameterSection is one named group of free-form key/value metadata,
// e.g. a vendor's acquisition-hardware settings.
type ParameterSection struct {
	Name   string
	Values map[string]string
}

// ParameterSections is the full set of named sections a source exposes.
type ParameterSections []ParameterSection

// Section returns the named section and true, or a zero section and
// false if no section by that name exists.
func (ps ParameterSections) Section(name string) (ParameterSection, bool) {
	for _, s := range ps {
		if s.Name == name {
			return s, true
		}
	}
	return ParameterSection{}, false
}

// SourceDescriptor is the immutable, per-dataset description every
// BlockReaderAdapter must produce from Describe. It is created once per
// dataset and never mutated thereafter.
type SourceDescriptor struct {
	DataType        DataType
	Size            Size5D
	NativeBlockSize Size5D
	NativeSequence  DimensionSequence

	// FlippedX, FlippedY and FlippedZ mirror Extent.Flipped but are
	// carried directly on the descriptor since readers may know their
	// flip state before any Extent has been computed.
	FlippedX, FlippedY, FlippedZ bool

	Resolutions int // Number of native pyramid levels the reader exposes.

	Colors []ColorInfo // One entry per channel.
	Times  []TimeInfo  // One entry per timepoint.

	Extent     Extent
	Parameters ParameterSections
}

// Validate checks the structural constraints the data model places on a
// SourceDescriptor: sizes strictly positive except Z (>=1), and the
// native dimension sequence a valid permutation.
func (d SourceDescriptor) Validate() error {
	if d.Size.X == 0 || d.Size.Y == 0 || d.Size.C == 0 || d.Size.T == 0 {
		return fmt.Errorf("reader: size %v has a zero non-Z axis", d.Size)
	}
	if d.Size.Z == 0 {
		return fmt.Errorf("reader: size %v has Z=0, must be >=1", d.Size)
	}
	if d.NativeBlockSize.X == 0 || d.NativeBlockSize.Y == 0 || d.NativeBlockSize.Z == 0 ||
		d.NativeBlockSize.C == 0 || d.NativeBlockSize.T == 0 {
		return fmt.Errorf("reader: native block size %v has a zero axis", d.NativeBlockSize)
	}
	if err := d.NativeSequence.Validate(); err != nil {
		return err
	}
	if d.Resolutions < 1 {
		return fmt.Errorf("reader: resolutions must be >=1, got %d", d.Resolutions)
	}
	if len(d.Colors) != 0 && uint64(len(d.Colors)) != d.Size.C {
		return fmt.Errorf("reader: %d color entries for %d channels", len(d.Colors), d.Size.C)
	}
	if len(d.Times) != 0 && uint64(len(d.Times)) != d.Size.T {
		return fmt.Errorf("reader: %d time entries for %d timepoints", len(d.Times), d.Size.T)
	}
	return nil
}

// NumberOfBlocks returns the number of native reader blocks that tile the
// descriptor's size, i.e. the product of ceil(size_d/blocksize_d) over
// all five axes.
func (d SourceDescriptor) NumberOfBlocks() uint64 {
	return d.Size.CeilDiv(d.NativeBlockSize).Volume()
}
