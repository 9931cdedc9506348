/*
DESCRIPTION
  rawfile.go provides Source, a BlockReaderAdapter over the simplest
  possible on-disk representation: a flat voxel file in NativeSequence
  order, described by a JSON sidecar, with no vendor-specific encoding.
  It is the file-backed analog of reader/memsource.Source, used to drive
  the pipeline end to end without depending on any proprietary format
  reader (explicitly out of scope for this codebase).

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package rawfile provides a file-backed reference BlockReaderAdapter for
// the simplest on-disk layout this codebase supports: a flat voxel file
// plus a JSON sidecar descriptor.
package rawfile

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/ausocean/voxelconvert/reader"
)

// header is the JSON sidecar's shape, read from path+".json".
type header struct {
	DataType        reader.DataType
	Size            reader.Size5D
	NativeBlockSize reader.Size5D
	NativeSequence  reader.DimensionSequence

	FlippedX, FlippedY, FlippedZ bool

	VoxelSizeX, VoxelSizeY, VoxelSizeZ float64

	Colors []reader.ColorInfo
	Times  []reader.TimeInfo
}

// Source is a file-backed BlockReaderAdapter. The voxel file is opened by
// Open and read block by block with ReadAt on an os.File; it exposes only resolution 0, matching a source with no
// native pyramid of its own.
type Source struct {
	mu sync.Mutex

	f    *os.File
	desc reader.SourceDescriptor

	cursor uint64
}

// Open reads path+".json" for the descriptor and opens path for block
// reads. The data file must contain exactly desc.Size.Volume() *
// desc.DataType.Size() bytes, in desc.NativeSequence order. imageIndex
// must be 0: this format has no concept of multiple images per file.
func Open(path string, imageIndex int) (*Source, error) {
	if imageIndex != 0 {
		return nil, errors.Errorf("rawfile: image index %d requested, format has only one image per file", imageIndex)
	}
	hf, err := os.Open(path + ".json")
	if err != nil {
		return nil, errors.Wrap(err, "rawfile: open sidecar")
	}
	defer hf.Close()

	var h header
	if err := json.NewDecoder(hf).Decode(&h); err != nil {
		return nil, errors.Wrap(err, "rawfile: decode sidecar")
	}

	extent := reader.NewExtent(
		reader.AxisExtent{Min: 0, Max: h.VoxelSizeX * float64(h.Size.X)},
		reader.AxisExtent{Min: 0, Max: h.VoxelSizeY * float64(h.Size.Y)},
		reader.AxisExtent{Min: 0, Max: h.VoxelSizeZ * float64(h.Size.Z)},
	)
	desc := reader.SourceDescriptor{
		DataType:        h.DataType,
		Size:            h.Size,
		NativeBlockSize: h.NativeBlockSize,
		NativeSequence:  h.NativeSequence,
		FlippedX:        h.FlippedX,
		FlippedY:        h.FlippedY,
		FlippedZ:        h.FlippedZ,
		Resolutions:     1,
		Colors:          h.Colors,
		Times:           h.Times,
		Extent:          extent,
	}
	if err := desc.Validate(); err != nil {
		return nil, errors.Wrap(err, "rawfile: invalid sidecar")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "rawfile: open data file")
	}
	want := int64(desc.Size.Volume() * uint64(desc.DataType.Size()))
	if fi, err := f.Stat(); err == nil && fi.Size() != want {
		f.Close()
		return nil, errors.Errorf("rawfile: data file has %d bytes, want %d", fi.Size(), want)
	}
	return &Source{f: f, desc: desc}, nil
}

// Describe implements reader.BlockReaderAdapter.
func (s *Source) Describe() (reader.SourceDescriptor, error) {
	return s.desc, nil
}

// SetResolution implements reader.BlockReaderAdapter. Source exposes only
// resolution 0.
func (s *Source) SetResolution(level int) error {
	if level != 0 {
		return errors.Errorf("rawfile: only resolution 0 is available, got %d", level)
	}
	return nil
}

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
		return errors.Errorf("rawfile: block index %d out of range (have %d blocks)", i, s.NumberOfBlocks())
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
		return errors.Errorf("rawfile: no more blocks after index %d", s.cursor)
	}
	return nil
}

// ReadBlock implements reader.BlockReaderAdapter. It seeks to and copies
// the current block's voxels, in NativeSequence order, into buf, issuing
// one os.File.ReadAt per contiguous run along the fastest-varying axis.
func (s *Source) ReadBlock(buf []byte) error {
	s.mu.Lock()
	block := s.cursor
	s.mu.Unlock()

	idx := reader.Unflatten(block, s.blockCounts(), s.desc.NativeSequence)
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
		return errors.Errorf("rawfile: buffer too small: have %d bytes, need %d", len(buf), need)
	}

	// fastest is the innermost sequence axis; a run along it is
	// contiguous in the backing file, so it is read in one ReadAt.
	fastest := seq[0]
	runLen := extent.Get(fastest)

	var local reader.Index5D
	var out uint64
	total := extent.Volume()
	for n := uint64(0); n < total; n += runLen {
		src := origin.Add(local)
		flat := src.X*weights[reader.DimX] + src.Y*weights[reader.DimY] + src.Z*weights[reader.DimZ] +
			src.C*weights[reader.DimC] + src.T*weights[reader.DimT]

		chunk := runLen * elemSize
		if _, err := s.f.ReadAt(buf[out*elemSize:out*elemSize+chunk], int64(flat*elemSize)); err != nil {
			return &reader.IOError{Block: block, Err: err}
		}
		out += runLen

		// Advance local index by one run, i.e. skip the fastest axis
		// entirely and increment the next slower one.
		for _, d := range seq[1:] {
			local = local.With(d, local.Get(d)+1)
			if local.Get(d) < extent.Get(d) {
				break
			}
			local = local.With(d, 0)
		}
	}
	return nil
}

// Close closes the underlying data file.
func (s *Source) Close() error { return s.f.Close() }
