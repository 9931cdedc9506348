/*
DESCRIPTION
  writer.go defines Writer, the capability contract the
  MultiResolutionEngine drives: the on-disk container layout and
  metadata encoding behind it are an external collaborator, out of
  scope for this package (see the package's containing spec); only the
  operations the engine invokes are specified here.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package writer defines the Writer capability the MultiResolutionEngine
// drives, plus the thumbnail composition sub-package.
package writer

import (
	"image"
	"sync"
	"time"

	"github.com/ausocean/voxelconvert/reader"
)

// Writer is supplied to the MultiResolutionEngine and must provide every
// operation below. Calls may arrive from any worker goroutine; an
// implementation must either be internally thread-safe or accept being
// externally serialized (the engine chooses the latter, holding a single
// writer mutex for the duration of each call — see Serialize).
type Writer interface {
	// WriteDataBlock writes one block's uncompressed voxel bytes at the
	// given XYZ block coordinate, resolution level, channel and timepoint;
	// any compression is up to the implementation.
	WriteDataBlock(data []byte, block reader.Index5D, t, channel, resolution int) error

	// WriteHistogram writes the final bin counts for one (channel,
	// resolution, timepoint) triple.
	WriteHistogram(bins []uint64, t, channel, resolution int) error

	// WriteThumbnail writes the single composed thumbnail image.
	WriteThumbnail(img image.Image) error

	// WriteMetadata writes the dataset-level metadata: application
	// identity, physical extent, free-form parameters, per-timepoint
	// time info and per-channel color info (including the range hints
	// AutoAdjust may have rewritten).
	WriteMetadata(appName, appVersion string, extent reader.Extent, params reader.ParameterSections, times []reader.TimeInfo, colors []reader.ColorInfo) error
}

// Error is a fatal, non-recoverable failure from a Writer call. Per the
// error-handling design, a WriterError drains the worker pool, closes
// and retains whatever partial output exists on disk, and is returned to
// the caller; it is never swallowed or retried silently.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "writer: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Serialize wraps w so that every method call is serialized by a single
// mutex, satisfying implementations that are not internally thread-safe.
// The MultiResolutionEngine always wraps the Writer it is given with
// Serialize, so individual Writer implementations need not add their own
// locking.
func Serialize(w Writer) Writer { return &serialized{w: w} }

type serialized struct {
	mu sync.Mutex
	w  Writer
}

// WriteDataBlock implements Writer.
func (s *serialized) WriteDataBlock(data []byte, block reader.Index5D, t, channel, resolution int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.WriteDataBlock(data, block, t, channel, resolution)
}

// WriteHistogram implements Writer.
func (s *serialized) WriteHistogram(bins []uint64, t, channel, resolution int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.WriteHistogram(bins, t, channel, resolution)
}

// WriteThumbnail implements Writer.
func (s *serialized) WriteThumbnail(img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.WriteThumbnail(img)
}

// WriteMetadata implements Writer.
func (s *serialized) WriteMetadata(appName, appVersion string, extent reader.Extent, params reader.ParameterSections, times []reader.TimeInfo, colors []reader.ColorInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.WriteMetadata(appName, appVersion, extent, params, times, colors)
}

// appInfo identifies this converter in metadata dumps.
type appInfo struct {
	Name    string
	Version string
}

// App is the application identity written by WriteMetadata calls that
// don't override it. Set at build time or left at its zero value.
var App = appInfo{Name: "voxelconvert", Version: "dev"}

// now is overridable in tests that need deterministic timestamps in
// metadata; production code always uses time.Now.
var now = time.Now
