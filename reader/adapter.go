/*
DESCRIPTION
  adapter.go defines BlockReaderAdapter, the capability every source
  format implementation (vendor-specific or synthetic) must satisfy, and
  classifies the errors a read can fail with.

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

import (
	"errors"
	"fmt"
)

// BlockReaderAdapter presents any source format as a uniform cursor over
// 5D blocks. Implementations are chosen by a format-name-keyed factory
// (see the redesign notes); the core never depends on a concrete vendor
// type, only on this interface, so an out-of-process or managed-runtime
// backed reader is a drop-in implementation and not a core change.
type BlockReaderAdapter interface {
	// Describe returns the dataset's immutable metadata.
	Describe() (SourceDescriptor, error)

	// SetResolution selects which native pyramid level is exposed by
	// subsequent calls, for sources that carry their own pyramid.
	// Levels are numbered 0 (finest) upward.
	SetResolution(level int) error

	// NumberOfBlocks returns the block count for the currently selected
	// resolution: the product of ceil(size_d/blocksize_d) over all five
	// axes.
	NumberOfBlocks() uint64

	// GoToBlock positions the cursor at block i. i=0 is required to be
	// the first block in the reader's traversal order.
	GoToBlock(i uint64) error

	// NextBlock advances the cursor by one block in the reader's
	// traversal order (dimension-sequence order, first dimension
	// varying fastest). Two consecutive calls, GoToBlock(i) then
	// NextBlock, must position the cursor at block i+1.
	NextBlock() error

	// ReadBlock fills buf with exactly the current block's voxel count
	// of typed elements, in the reader's native dimension order. buf's
	// length in bytes must equal blockVoxelCount * DataType.Size().
	ReadBlock(buf []byte) error
}

// IOError reports a truncated read or decode failure. It is surfaced per
// block: the caller logs it, zero-fills the affected writer region, and
// continues with subsequent blocks.
type IOError struct {
	Block uint64
	Err   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("reader: I/O error reading block %d: %v", e.Block, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// FormatError reports a recoverable structural anomaly in the source
// (e.g. a corrupt but bounded chunk). It receives the same treatment as
// IOError: the caller zero-fills the block and continues.
type FormatError struct {
	Block uint64
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("reader: format error reading block %d: %v", e.Block, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Recoverable reports whether err is an IOError or FormatError, i.e. an
// error the caller should treat as "zero-fill this block and keep
// going" rather than as fatal.
func Recoverable(err error) bool {
	var io *IOError
	var fe *FormatError
	return errors.As(err, &io) || errors.As(err, &fe)
}
