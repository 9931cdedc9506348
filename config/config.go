/*
DESCRIPTION
  config.go defines Config, the full set of parameters a conversion run
  accepts, following the same table-driven Validate/Update pattern used
  elsewhere in this codebase's configuration layer: defaults and
  parsing/validation rules live in a single Variables table (see
  variables.go) rather than scattered across ad hoc flag-parsing code.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config provides Config, the parameter set a conversion run is
// driven by, plus its validation and string-keyed update machinery.
package config

import (
	"time"

	"github.com/ausocean/utils/logging"
)

// Thumbnail output formats.
const (
	ThumbnailPNG = iota
	ThumbnailJPEG
)

// Config holds every parameter one conversion run needs. A zero Config
// is invalid; call Validate after populating fields (directly, or via
// Update from a string-keyed source such as flags) to apply defaults and
// catch ConfigErrors before any worker is spawned.
type Config struct {
	// Input is the path to the primary source file. Additional is an
	// optional list of further input paths (e.g. a file series), applied
	// in the order given.
	Input      string
	Additional []string

	// InputFormat names the BlockReaderAdapter implementation to use,
	// looked up by exact name in a format-name-keyed factory; the format
	// is not inferred from Input's extension.
	InputFormat string

	// InputImageIndex selects which image/series within a multi-image
	// source file to convert, for formats that support more than one.
	InputImageIndex int

	// CropMinX..CropMaxT give the crop rectangle in source voxel
	// coordinates; 0 for a Max field means "natural bound" (the source's
	// own size on that axis).
	CropMinX, CropMaxX uint64
	CropMinY, CropMaxY uint64
	CropMinZ, CropMaxZ uint64
	CropMinC, CropMaxC uint64
	CropMinT, CropMaxT uint64

	// VoxelSizeX, VoxelSizeY and VoxelSizeZ override the physical voxel
	// spacing reported by the source, in the same world units the
	// source itself uses. 0 means "use the source's own value" (its
	// extent divided by its size on that axis); where that is also 0 the
	// pyramid layout treats the axis as unit spacing. A missing voxel
	// size is not reported as a ConfigError.
	VoxelSizeX, VoxelSizeY, VoxelSizeZ float64

	// LayoutMinAxisVoxels and LayoutMaxLevels tune the pyramid's
	// OptimalLayout strategy; 0 selects pyramid.DefaultLayoutStrategy's
	// own defaults.
	LayoutMinAxisVoxels int
	LayoutMaxLevels     int

	// Output is the destination container path.
	Output string

	// WriteThumbnail enables the side-channel thumbnail; ThumbnailFormat
	// selects PNG or JPEG encoding.
	WriteThumbnail  bool
	ThumbnailFormat int

	// WriteAllFiles, when Additional is non-empty, converts every input
	// into its own output instead of treating Additional as a single
	// concatenated series.
	WriteAllFiles bool

	// VoxelHash enables a content hash of the written voxel stream,
	// recorded in metadata for downstream integrity checks.
	VoxelHash bool

	// WriteDescriptors enables copying the source's free-form parameter
	// sections into the output metadata verbatim.
	WriteDescriptors bool

	// LogFile is the path log output is written to; empty logs to
	// stderr only.
	LogFile string

	// ShowProgress records the progress toggle. No stage of the
	// conversion run reads it, and no progress or throughput lines are
	// logged.
	ShowProgress bool

	// CompressionThreads sizes the MultiResolutionEngine's worker pool.
	CompressionThreads int

	// CompressionLevel is passed through to the Writer implementation;
	// its valid range is Writer-specific and not validated here.
	CompressionLevel int

	// SeriesDelimiter splits a file-series base name from its index
	// suffix when Additional paths are auto-discovered rather than
	// listed explicitly.
	SeriesDelimiter string

	// Timeout bounds the whole run; 0 means no timeout. Exceeding it
	// maps to exit code 99, per the cancellation design.
	Timeout time.Duration

	// ThroughputInterval and ThroughputWindow tune the
	// throughput.Monitor; 0 selects its own defaults.
	ThroughputInterval time.Duration
	ThroughputWindow   time.Duration

	// AutoAdjust enables the histogram-driven auto-range color
	// adjustment at finalize time.
	AutoAdjust bool

	// Logger holds an implementation of the logging.Logger interface
	// used throughout the conversion run.
	Logger logging.Logger
}

// Validate checks every field the Variables table knows how to validate,
// defaulting unset fields and logging an info message through c.Logger when a
// default is applied. It returns the first ConfigError encountered, if
// any.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate == nil {
			continue
		}
		if err := v.Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// Update applies a map of variable name to string value onto c, parsing
// and converting each value per the Variables table. Unknown keys are
// ignored, matching the permissive update behavior used elsewhere in
// this codebase's config layer.
func (c *Config) Update(vars map[string]string) error {
	for _, v := range Variables {
		val, ok := vars[v.Name]
		if !ok || v.Update == nil {
			continue
		}
		if err := v.Update(c, val); err != nil {
			return err
		}
	}
	return nil
}

// LogInvalidField logs that field was unset or invalid and a default was
// applied, matching the LogInvalidField convention used by this
// codebase's other Config type.
func (c *Config) LogInvalidField(field string, def interface{}) {
	if c.Logger == nil {
		return
	}
	c.Logger.Info(field+" bad or unset, defaulting", field, def)
}

// ConfigError is a fatal, up-front configuration problem: a missing input
// or output path or an inverted crop range (reported by Validate, before
// any worker is spawned), or a value that some Update fields could not
// parse. Neither checks voxel sizes or dataset dimensions.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string { return "config: " + e.Field + ": " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }
