/*
DESCRIPTION
  convert.go provides Converter, the top-level orchestrator that wires a
  BlockReaderAdapter, a BlockRemapper and a MultiResolutionEngine into one
  run: it follows the shape of AusOcean's revid.Revid type (config in,
  reset builds the pipeline, Run drives it and returns the first error
  of the run), generalized here from an audio/video stream pipeline to a
  5D conversion run.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package convert provides Converter, the orchestrator that drives one
// complete conversion run from a BlockReaderAdapter to a Writer.
package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"image"
	"image/color"

	"github.com/ausocean/voxelconvert/config"
	"github.com/ausocean/voxelconvert/pyramid"
	"github.com/ausocean/voxelconvert/reader"
	"github.com/ausocean/voxelconvert/remap"
	"github.com/ausocean/voxelconvert/throughput"
	"github.com/ausocean/voxelconvert/writer"
	"github.com/ausocean/voxelconvert/writer/thumbnail"
)

// Converter drives one conversion run: reading from src, remapping into
// engine, and flushing metadata and the optional thumbnail to w at the
// end.
type Converter struct {
	cfg config.Config

	src    reader.BlockReaderAdapter
	extra  []reader.BlockReaderAdapter
	w      writer.Writer
	engine *pyramid.Engine
	remap  *remap.Remapper
	mon    *throughput.Monitor

	voxelHash hash.Hash

	running bool
	err     chan error
}

// AddSource appends src as a further file-series member: its blocks are
// appended after the primary source's and every prior AddSource call's,
// as consecutive timepoints in the same output dataset. It must be
// called before Run.
func (c *Converter) AddSource(src reader.BlockReaderAdapter) {
	c.extra = append(c.extra, src)
}

// New returns a Converter for the given config, source and writer. The
// config must already have passed Validate.
func New(cfg config.Config, src reader.BlockReaderAdapter, w writer.Writer) (*Converter, error) {
	c := &Converter{cfg: cfg, src: src, w: w, err: make(chan error, 1)}
	if err := c.reset(); err != nil {
		return nil, err
	}
	go c.handleErrors()
	return c, nil
}

// reset builds the Converter's pipeline (pyramid engine, remapper,
// throughput monitor) from c.cfg and c.src.
func (c *Converter) reset() error {
	desc, err := c.src.Describe()
	if err != nil {
		return fmt.Errorf("convert: describe source: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("convert: invalid source: %w", err)
	}

	layout := pyramid.DefaultLayoutStrategy{
		MinAxisVoxels: c.cfg.LayoutMinAxisVoxels,
		MaxLevels:     c.cfg.LayoutMaxLevels,
	}
	voxelSize := [3]float64{c.cfg.VoxelSizeX, c.cfg.VoxelSizeY, c.cfg.VoxelSizeZ}
	ext := desc.Extent.Normalized()
	for i, d := range []reader.Dimension{reader.DimX, reader.DimY, reader.DimZ} {
		if voxelSize[i] == 0 {
			voxelSize[i] = (ext.Get(d).Max - ext.Get(d).Min) / float64(desc.Size.Get(d))
		}
	}

	// Level 0 holds only the voxels that survive the crop; a zero crop
	// max is the axis's natural bound.
	clip := func(min, max, n uint64) uint64 {
		if max == 0 || max > n {
			max = n
		}
		if min >= max {
			return 0
		}
		return max - min
	}
	size := reader.Size5D{
		X: clip(c.cfg.CropMinX, c.cfg.CropMaxX, desc.Size.X), Y: clip(c.cfg.CropMinY, c.cfg.CropMaxY, desc.Size.Y),
		Z: clip(c.cfg.CropMinZ, c.cfg.CropMaxZ, desc.Size.Z), C: clip(c.cfg.CropMinC, c.cfg.CropMaxC, desc.Size.C),
		T: clip(c.cfg.CropMinT, c.cfg.CropMaxT, desc.Size.T),
	}

	engine, err := pyramid.Construct(desc.DataType, size, desc.NativeBlockSize, reader.DefaultSequence, c.w, pyramid.Options{
		Workers:   c.cfg.CompressionThreads,
		Layout:    layout,
		VoxelSize: voxelSize,
	})
	if err != nil {
		return fmt.Errorf("convert: construct engine: %w", err)
	}
	c.engine = engine

	crop := remap.Crop{
		Min: reader.Size5D{X: c.cfg.CropMinX, Y: c.cfg.CropMinY, Z: c.cfg.CropMinZ, C: c.cfg.CropMinC, T: c.cfg.CropMinT},
		Max: reader.Size5D{X: c.cfg.CropMaxX, Y: c.cfg.CropMaxY, Z: c.cfg.CropMaxZ, C: c.cfg.CropMaxC, T: c.cfg.CropMaxT},
	}
	if c.cfg.VoxelHash {
		c.voxelHash = sha256.New()
	}
	c.remap = &remap.Remapper{
		Src:    c.src,
		Engine: engine,
		Crop:   crop,
		Sample: remap.IdentitySample,
		Hash:   c.voxelHash,
	}

	c.mon = throughput.New()
	c.mon.Interval = c.cfg.ThroughputInterval
	c.mon.Window = c.cfg.ThroughputWindow
	return nil
}

func (c *Converter) handleErrors() {
	for err := range c.err {
		if err == nil {
			continue
		}
		if c.cfg.Logger != nil {
			c.cfg.Logger.Error("async error", "error", err.Error())
		}
	}
}

// Run drives the full conversion: ProcessAll over the primary source,
// then over any sources added with AddSource (each appended as further
// timepoints), then Finish on the engine to flush the pyramid's coarser
// levels, histograms and metadata. If cfg.WriteThumbnail is set, it also
// composes and writes the side-channel thumbnail. Run blocks until the
// run completes, is canceled via ctx, or fails.
func (c *Converter) Run(ctx context.Context) error {
	if c.running {
		return fmt.Errorf("convert: already running")
	}
	c.running = true
	defer func() {
		c.running = false
		c.mon.Close()
	}()

	desc, err := c.src.Describe()
	if err != nil {
		return fmt.Errorf("convert: describe source: %w", err)
	}

	if err := c.remap.ProcessAll(ctx); err != nil {
		return fmt.Errorf("convert: process blocks: %w", err)
	}

	times := desc.Times
	if len(times) == 0 {
		times = make([]reader.TimeInfo, desc.Size.T)
	}
	colors := desc.Colors
	if len(colors) == 0 {
		colors = make([]reader.ColorInfo, desc.Size.C)
	}

	tOffset := desc.Size.T
	for i, extra := range c.extra {
		d, err := extra.Describe()
		if err != nil {
			return fmt.Errorf("convert: describe series member %d: %w", i, err)
		}
		rm := &remap.Remapper{
			Src:     extra,
			Engine:  c.engine,
			Crop:    c.remap.Crop,
			Sample:  c.remap.Sample,
			Logger:  c.remap.Logger,
			TOffset: tOffset,
			Hash:    c.voxelHash,
		}
		if err := rm.ProcessAll(ctx); err != nil {
			return fmt.Errorf("convert: process series member %d: %w", i, err)
		}
		extraTimes := d.Times
		if len(extraTimes) == 0 {
			extraTimes = make([]reader.TimeInfo, d.Size.T)
		}
		times = append(times, extraTimes...)
		tOffset += d.Size.T
	}

	var params reader.ParameterSections
	if c.cfg.WriteDescriptors {
		params = desc.Parameters
	}
	if c.voxelHash != nil {
		params = append(params, reader.ParameterSection{
			Name:   "VoxelHash",
			Values: map[string]string{"SHA256": hex.EncodeToString(c.voxelHash.Sum(nil))},
		})
	}

	if err := c.engine.Finish(ctx, desc.Extent.Normalized(), params, times, colors, c.cfg.AutoAdjust); err != nil {
		return fmt.Errorf("convert: finish: %w", err)
	}

	if c.cfg.WriteThumbnail {
		if err := c.writeThumbnail(desc); err != nil {
			return fmt.Errorf("convert: thumbnail: %w", err)
		}
	}
	return nil
}

// writeThumbnail composes the single, dataset-level thumbnail from the
// source's first channel and timepoint: it re-reads that channel's Z
// stack at native resolution, max-intensity-projects it into one plane,
// composes the letterboxed square canvas and writes the composed image
// through the Writer.
func (c *Converter) writeThumbnail(desc reader.SourceDescriptor) error {
	if desc.Size.Z == 0 {
		return nil
	}
	if err := c.src.SetResolution(0); err != nil {
		return err
	}

	stack, err := readChannelZStack(c.src, desc, 0, 0)
	if err != nil {
		return err
	}

	proj := thumbnail.Project(stack, thumbnail.Max)
	canvas := thumbnail.Compose(proj)

	// PNG/JPEG encoding (cfg.ThumbnailFormat) is a Writer-implementation
	// concern: WriteThumbnail is handed the composed image directly so a
	// container-backed Writer can choose its own encoding path.
	return c.w.WriteThumbnail(canvas)
}

// readChannelZStack reads every native block of channel ch, timepoint t,
// at the source's current resolution, and returns one 8-bit grayscale
// plane per Z slice, normalized against the source's DataType range.
func readChannelZStack(src reader.BlockReaderAdapter, desc reader.SourceDescriptor, ch, t int) ([]*image.Gray, error) {
	w, h, d := int(desc.Size.X), int(desc.Size.Y), int(desc.Size.Z)
	planes := make([]*image.Gray, d)
	for z := range planes {
		planes[z] = image.NewGray(image.Rect(0, 0, w, h))
	}

	maxVal := 255.0
	switch desc.DataType {
	case reader.U16:
		maxVal = 65535
	case reader.U32, reader.F32:
		maxVal = 4294967295
	}

	counts := desc.Size.CeilDiv(desc.NativeBlockSize)
	n := counts.Volume()
	elemSize := uint64(desc.DataType.Size())
	buf := make([]byte, desc.NativeBlockSize.Volume()*elemSize)

	for i := uint64(0); i < n; i++ {
		if i == 0 {
			if err := src.GoToBlock(0); err != nil {
				return nil, err
			}
		} else if err := src.NextBlock(); err != nil {
			return nil, err
		}
		blockIdx := reader.Unflatten(i, counts, desc.NativeSequence)
		if int(blockIdx.C) != ch || int(blockIdx.T) != t {
			continue
		}
		if err := src.ReadBlock(buf); err != nil {
			if !reader.Recoverable(err) {
				return nil, err
			}
			continue
		}

		origin := blockIdx.Mul(desc.NativeBlockSize)
		extent := desc.NativeBlockSize
		clamp := func(o, e, lim uint64) uint64 {
			if o >= lim {
				return 0
			}
			if o+e > lim {
				return lim - o
			}
			return e
		}
		extent.X = clamp(origin.X, extent.X, desc.Size.X)
		extent.Y = clamp(origin.Y, extent.Y, desc.Size.Y)
		extent.Z = clamp(origin.Z, extent.Z, desc.Size.Z)
		weights := desc.NativeSequence.Weights(extent)

		for lz := uint64(0); lz < extent.Z; lz++ {
			gz := int(origin.Z + lz)
			if gz >= d {
				continue
			}
			for ly := uint64(0); ly < extent.Y; ly++ {
				gy := int(origin.Y + ly)
				if gy >= h {
					continue
				}
				for lx := uint64(0); lx < extent.X; lx++ {
					gx := int(origin.X + lx)
					if gx >= w {
						continue
					}
					idx := lx*weights[reader.DimX] + ly*weights[reader.DimY] + lz*weights[reader.DimZ]
					v := reader.GetVoxel(buf, idx, desc.DataType)
					g := uint8((v / maxVal) * 255)
					planes[gz].SetGray(gx, gy, color.Gray{Y: g})
				}
			}
		}
	}
	return planes, nil
}
