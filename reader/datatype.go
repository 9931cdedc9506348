/*
DESCRIPTION
  datatype.go provides the DataType enum and the classification rules
  used to map vendor source types onto the four voxel types the pipeline
  understands.

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

// DataType is one of the four voxel representations the pipeline writes.
type DataType int

const (
	U8 DataType = iota
	U16
	U32
	F32
)

func (t DataType) String() string {
	switch t {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case F32:
		return "f32"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// Size returns the number of bytes one voxel of t occupies.
func (t DataType) Size() int {
	switch t {
	case U8:
		return 1
	case U16:
		return 2
	case U32, F32:
		return 4
	default:
		panic(fmt.Sprintf("reader: invalid data type %d", int(t)))
	}
}

// HistogramBins returns the number of histogram bins used for t, per the
// data model: 256 for u8, 4096 for u16/u32/f32.
func (t DataType) HistogramBins() int {
	if t == U8 {
		return 256
	}
	return 4096
}

// SourceKind describes the native representation a vendor reader reports,
// prior to classification into one of the four pipeline DataTypes.
type SourceKind int

const (
	SourceU8 SourceKind = iota
	SourceI8
	SourceU16
	SourceI16
	SourceU32
	SourceI32
	SourceF32
)

// ErrUnsupportedDataType is returned by Classify when a source kind has no
// valid mapping onto a pipeline DataType. It is a fatal, non-recoverable
// condition: finalization must be skipped and the error returned to the
// caller.
type ErrUnsupportedDataType struct {
	Kind SourceKind
}

func (e ErrUnsupportedDataType) Error() string {
	return fmt.Sprintf("reader: unsupported source data type %d", int(e.Kind))
}

// Classify maps a vendor SourceKind onto a pipeline DataType, applying the
// signed/widen rules from the data model: signed integer sources map to
// the unsigned type of the same width, with negatives clamped to zero by
// ClampNegative; 32-bit integer sources (signed or unsigned) widen to
// f32. Any other kind is an ErrUnsupportedDataType.
func Classify(k SourceKind) (DataType, error) {
	switch k {
	case SourceU8, SourceI8:
		return U8, nil
	case SourceU16, SourceI16:
		return U16, nil
	case SourceU32, SourceI32:
		return F32, nil
	case SourceF32:
		return F32, nil
	default:
		return 0, ErrUnsupportedDataType{Kind: k}
	}
}

// SignedSource reports whether k requires negative-to-zero clamping when
// converting into its classified DataType.
func SignedSource(k SourceKind) bool {
	switch k {
	case SourceI8, SourceI16, SourceI32:
		return true
	default:
		return false
	}
}

// ClampNegative clamps v to zero if it is negative. It is applied,
// element-wise, when SignedSource reports true for the source kind being
// converted.
func ClampNegative(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
