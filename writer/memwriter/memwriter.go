/*
DESCRIPTION
  memwriter.go provides an in-memory Writer implementation used by tests
  to assert round-trip, idempotence and fingerprint properties without a
  real container backend.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package memwriter provides an in-memory reference implementation of
// writer.Writer.
package memwriter

import (
	"fmt"
	"image"
	"sync"

	"github.com/ausocean/voxelconvert/reader"
	"github.com/ausocean/voxelconvert/writer"
)

type blockKey struct {
	t, channel, resolution int
	block                  reader.Index5D
}

// Writer is an in-memory writer.Writer. Every written block is retained
// verbatim (no real compression), keyed by (t, channel, resolution,
// block); writes to the same key overwrite the prior value, tracking how
// many times each key was written for fingerprint assertions.
type Writer struct {
	mu sync.Mutex

	Blocks     map[blockKey][]byte
	WriteCount map[blockKey]int
	Histograms map[blockKey][]uint64
	Thumbnail  image.Image
	Metadata   *Metadata

	// FailBlock, if non-nil, is consulted before accepting a block
	// write, to simulate a WriterError for a given key.
	FailBlock func(block reader.Index5D, resolution int) error
}

// Metadata captures the arguments of the most recent WriteMetadata call.
type Metadata struct {
	AppName, AppVersion string
	Extent              reader.Extent
	Params              reader.ParameterSections
	Times               []reader.TimeInfo
	Colors              []reader.ColorInfo
}

// New returns an empty Writer.
func New() *Writer {
	return &Writer{
		Blocks:     make(map[blockKey][]byte),
		WriteCount: make(map[blockKey]int),
		Histograms: make(map[blockKey][]uint64),
	}
}

// WriteDataBlock implements writer.Writer.
func (w *Writer) WriteDataBlock(data []byte, block reader.Index5D, t, channel, resolution int) error {
	if w.FailBlock != nil {
		if err := w.FailBlock(block, resolution); err != nil {
			return &writer.Error{Op: "write_data_block", Err: err}
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	k := blockKey{t: t, channel: channel, resolution: resolution, block: block}
	cp := make([]byte, len(data))
	copy(cp, data)
	w.Blocks[k] = cp
	w.WriteCount[k]++
	return nil
}

// WriteHistogram implements writer.Writer.
func (w *Writer) WriteHistogram(bins []uint64, t, channel, resolution int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	k := blockKey{t: t, channel: channel, resolution: resolution}
	cp := make([]uint64, len(bins))
	copy(cp, bins)
	w.Histograms[k] = cp
	return nil
}

// WriteThumbnail implements writer.Writer.
func (w *Writer) WriteThumbnail(img image.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Thumbnail = img
	return nil
}

// WriteMetadata implements writer.Writer.
func (w *Writer) WriteMetadata(appName, appVersion string, extent reader.Extent, params reader.ParameterSections, times []reader.TimeInfo, colors []reader.ColorInfo) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Metadata = &Metadata{
		AppName: appName, AppVersion: appVersion,
		Extent: extent, Params: params, Times: times, Colors: colors,
	}
	return nil
}

// Block returns the bytes written for the given key, and whether any
// write occurred.
func (w *Writer) Block(t, channel, resolution int, block reader.Index5D) ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.Blocks[blockKey{t: t, channel: channel, resolution: resolution, block: block}]
	return b, ok
}

// WritesTo returns how many times WriteDataBlock was called for the
// given key — used by fingerprint-dedup tests to assert exactly one
// build occurred.
func (w *Writer) WritesTo(t, channel, resolution int, block reader.Index5D) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.WriteCount[blockKey{t: t, channel: channel, resolution: resolution, block: block}]
}

func (k blockKey) String() string {
	return fmt.Sprintf("t=%d c=%d r=%d block=%s", k.t, k.channel, k.resolution, k.block)
}
