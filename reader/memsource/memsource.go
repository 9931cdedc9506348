/*
DESCRIPTION
  memsource.go provides Source, an in-memory BlockReaderAdapter backed by
  a typed voxel array. It plays the same role in this repository's test
  suite that device/file.AVFile plays for revid: the simplest possible
  implementation of the capability interface, used to drive deterministic
  tests without any vendor format.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package memsource provides an in-memory reference implementation of
// reader.BlockReaderAdapter, used by tests throughout this repository.
package memsource

import (
	"fmt"
	"sync"

	"github.com/ausocean/voxelconvert/reader"
)

// Source is an in-memory BlockReaderAdapter. Voxels are stored as a flat
// byte slice in NativeSequence order; blocks are served by copying out
// of that slice according to NativeBlockSize.
type Source struct {
	mu sync.Mutex

	desc reader.SourceDescriptor
	data []byte // Flat voxel storage, NativeSequence order.

	cursor uint64 // Current block index.

	// Fail, if set, is consulted before serving each block; it receives
	// the block's linear index and may return a non-nil error to
	// simulate a reader fault on that block (the caller is expected to
	// treat it as recoverable per reader.Recoverable).
	Fail func(block uint64) error
}

// New returns a Source described by desc, backed by data. data must
// contain exactly desc.Size.Volume()*desc.DataType.Size() bytes, already
// laid out in desc.NativeSequence order.
func New(desc reader.SourceDescriptor, data []byte) (*Source, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	want := desc.Size.Volume() * uint64(desc.DataType.Size())
	if uint64(len(data)) != want {
		return nil, fmt.Errorf("memsource: data has %d bytes, want %d", len(data), want)
	}
	return &Source{desc: desc, data: data}, nil
}

// Describe implements reader.BlockReaderAdapter.
func (s *Source) Describe() (reader.SourceDescriptor, error) {
	return s.desc, nil
}

// SetResolution implements reader.BlockReaderAdapter. Source exposes only
// resolution 0; any other value is an error.
func (s *Source) SetResolution(level int) error {
	if level != 0 {
		return fmt.Errorf("memsource: only resolution 0 is available, got %d", level)
	}
	return nil
}

// blockCounts returns the number of blocks along each axis.
func (s *Source) blockCounts() reader.Size5D {
	return s.desc.Size.CeilDiv(s.desc.NativeBlockSize)
}

// NumberOfBlocks implements reader.BlockReaderAdapter.
func (s *Source) NumberOfBlocks() uint64 {
	return s.blockCounts().Volume()
}

// GoToBlock implements reader.BlockReaderAdapter.
func (s *Source) GoToBlock(i uint64) error {
	if i >= s.NumberOfBlocks() {
		return fmt.Errorf("memsource: block index %d out of range (have %d blocks)", i, s.NumberOfBlocks())
	}
	s.mu.Lock()
	s.cursor = i
	s.mu.Unlock()
	return nil
}

// NextBlock implements reader.BlockReaderAdapter.
func (s *Source) NextBlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor++
	if s.cursor >= s.NumberOfBlocks() {
		return fmt.Errorf("memsource: no more blocks after index %d", s.cursor)
	}
	return nil
}

// blockIndex5D returns the 5D block index for the current cursor.
func (s *Source) blockIndex5D() reader.Index5D {
	return reader.Unflatten(s.cursor, s.blockCounts(), s.desc.NativeSequence)
}

// ReadBlock implements reader.BlockReaderAdapter. It copies the current
// block's voxels, in NativeSequence order, into buf.
func (s *Source) ReadBlock(buf []byte) error {
	s.mu.Lock()
	block := s.cursor
	idx := s.blockIndex5D()
	s.mu.Unlock()

	if s.Fail != nil {
		if err := s.Fail(block); err != nil {
			return &reader.IOError{Block: block, Err: err}
		}
	}

	elemSize := uint64(s.desc.DataType.Size())
	bs := s.desc.NativeBlockSize
	size := s.desc.Size
	seq := s.desc.NativeSequence
	weights := seq.Weights(size)

	origin := idx.Mul(bs)
	extent := bs
	clamp := func(o, e, lim uint64) uint64 {
		if o+e > lim {
			return lim - o
		}
		return e
	}
	extent.X = clamp(origin.X, extent.X, size.X)
	extent.Y = clamp(origin.Y, extent.Y, size.Y)
	extent.Z = clamp(origin.Z, extent.Z, size.Z)
	extent.C = clamp(origin.C, extent.C, size.C)
	extent.T = clamp(origin.T, extent.T, size.T)

	need := extent.Volume() * elemSize
	if uint64(len(buf)) < need {
		return fmt.Errorf("memsource: buffer too small: have %d bytes, need %d", len(buf), need)
	}

	// Walk the block in NativeSequence order, copying one element at a
	// time from the dataset's flat storage (also NativeSequence order).
	var local reader.Index5D
	var out uint64
	total := extent.Volume()
	for n := uint64(0); n < total; n++ {
		src := origin.Add(local)
		flat := src.X*weights[reader.DimX] + src.Y*weights[reader.DimY] + src.Z*weights[reader.DimZ] +
			src.C*weights[reader.DimC] + src.T*weights[reader.DimT]
		copy(buf[out*elemSize:(out+1)*elemSize], s.data[flat*elemSize:(flat+1)*elemSize])
		out++

		// Increment local index in sequence order (first dim fastest).
		for _, d := range seq {
			local = local.With(d, local.Get(d)+1)
			if local.Get(d) < extent.Get(d) {
				break
			}
			local = local.With(d, 0)
		}
	}
	return nil
}
