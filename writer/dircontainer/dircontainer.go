/*
DESCRIPTION
  dircontainer.go provides Writer, a filesystem-backed reference
  implementation of the writer.Writer contract: one file per data block,
  one JSON file per histogram, the composed thumbnail, and a JSON
  metadata dump. It intentionally does not attempt the HDF5-style grouped
  container layout vendor tools use; only the operations writer.Writer
  specifies are implemented (see that package's doc comment).

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dircontainer provides a filesystem-backed reference
// implementation of writer.Writer, laying out one file per block under a
// plain directory tree instead of a proprietary grouped container.
package dircontainer

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/ausocean/voxelconvert/reader"
	"github.com/ausocean/voxelconvert/writer"
	"github.com/ausocean/voxelconvert/writer/thumbnail"
)

// Writer implements writer.Writer, writing under Dir.
type Writer struct {
	Dir    string
	Format thumbnail.Format

	// Level is the gzip compression level applied to data blocks; 0
	// (gzip.NoCompression) writes them uncompressed.
	Level int
}

// Create makes a Writer rooted at dir, creating dir and its data
// subdirectory if necessary. level is the gzip level WriteDataBlock
// compresses with; 0 disables compression.
func Create(dir string, format thumbnail.Format, level int) (*Writer, error) {
	if err := os.MkdirAll(filepath.Join(dir, "blocks"), 0o755); err != nil {
		return nil, fmt.Errorf("dircontainer: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "histograms"), 0o755); err != nil {
		return nil, fmt.Errorf("dircontainer: %w", err)
	}
	return &Writer{Dir: dir, Format: format, Level: level}, nil
}

func blockPath(dir string, block reader.Index5D, t, channel, resolution int, compressed bool) string {
	ext := ".bin"
	if compressed {
		ext = ".bin.gz"
	}
	name := fmt.Sprintf("r%d_t%d_c%d_x%d_y%d_z%d%s", resolution, t, channel, block.X, block.Y, block.Z, ext)
	return filepath.Join(dir, "blocks", name)
}

// WriteDataBlock implements writer.Writer. When w.Level is positive,
// data is gzip-compressed at that level before being written.
func (w *Writer) WriteDataBlock(data []byte, block reader.Index5D, t, channel, resolution int) error {
	path := blockPath(w.Dir, block, t, channel, resolution, w.Level > 0)
	if w.Level > 0 {
		var buf bytes.Buffer
		gw, err := gzip.NewWriterLevel(&buf, w.Level)
		if err != nil {
			return &writer.Error{Op: "WriteDataBlock", Err: err}
		}
		if _, err := gw.Write(data); err != nil {
			return &writer.Error{Op: "WriteDataBlock", Err: err}
		}
		if err := gw.Close(); err != nil {
			return &writer.Error{Op: "WriteDataBlock", Err: err}
		}
		data = buf.Bytes()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &writer.Error{Op: "WriteDataBlock", Err: err}
	}
	return nil
}

// WriteHistogram implements writer.Writer.
func (w *Writer) WriteHistogram(bins []uint64, t, channel, resolution int) error {
	name := fmt.Sprintf("r%d_t%d_c%d.json", resolution, t, channel)
	path := filepath.Join(w.Dir, "histograms", name)
	f, err := os.Create(path)
	if err != nil {
		return &writer.Error{Op: "WriteHistogram", Err: err}
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(bins); err != nil {
		return &writer.Error{Op: "WriteHistogram", Err: err}
	}
	return nil
}

// WriteThumbnail implements writer.Writer, encoding img per w.Format.
func (w *Writer) WriteThumbnail(img image.Image) error {
	data, err := thumbnail.Encode(img, w.Format)
	if err != nil {
		return &writer.Error{Op: "WriteThumbnail", Err: err}
	}
	name := "thumbnail.png"
	if w.Format == thumbnail.JPEG {
		name = "thumbnail.jpg"
	}
	if err := os.WriteFile(filepath.Join(w.Dir, name), data, 0o644); err != nil {
		return &writer.Error{Op: "WriteThumbnail", Err: err}
	}
	return nil
}

// metadataDump is the JSON shape WriteMetadata persists.
type metadataDump struct {
	AppName    string
	AppVersion string
	Extent     reader.Extent
	Parameters reader.ParameterSections
	Times      []reader.TimeInfo
	Colors     []reader.ColorInfo
}

// WriteMetadata implements writer.Writer.
func (w *Writer) WriteMetadata(appName, appVersion string, extent reader.Extent, params reader.ParameterSections, times []reader.TimeInfo, colors []reader.ColorInfo) error {
	f, err := os.Create(filepath.Join(w.Dir, "metadata.json"))
	if err != nil {
		return &writer.Error{Op: "WriteMetadata", Err: err}
	}
	defer f.Close()

	dump := metadataDump{
		AppName:    appName,
		AppVersion: appVersion,
		Extent:     extent,
		Parameters: params,
		Times:      times,
		Colors:     colors,
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		return &writer.Error{Op: "WriteMetadata", Err: err}
	}
	return nil
}
