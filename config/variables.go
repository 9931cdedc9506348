/*
DESCRIPTION
  variables.go lists, for each Config field a string-keyed source (flags,
  an update map) can set, its key name, an Update function that parses
  and assigns it, and a Validate function that defaults or rejects it.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config map keys.
const (
	KeyInput              = "Input"
	KeyInputFormat        = "InputFormat"
	KeyOutput             = "Output"
	KeyCropMinX           = "CropMinX"
	KeyCropMaxX           = "CropMaxX"
	KeyVoxelSizeX         = "VoxelSizeX"
	KeyVoxelSizeY         = "VoxelSizeY"
	KeyVoxelSizeZ         = "VoxelSizeZ"
	KeyWriteThumbnail     = "WriteThumbnail"
	KeyCompressionThreads = "CompressionThreads"
	KeyTimeout            = "Timeout"
	KeyAutoAdjust         = "AutoAdjust"
)

const (
	defaultCompressionThreads = 8
	defaultCompressionLevel   = 6
)

// Variables is the table Config.Validate and Config.Update walk. Update
// is nil for fields not meant to be set from an external string source
// (CompressionLevel, below); Validate is nil for fields with no defaulting or constraint beyond
// their Go zero value.
var Variables = []struct {
	Name     string
	Update   func(*Config, string) error
	Validate func(*Config) error
}{
	{
		Name: KeyInput,
		Update: func(c *Config, v string) error {
			c.Input = v
			return nil
		},
		Validate: func(c *Config) error {
			if c.Input == "" {
				return &ConfigError{Field: KeyInput, Err: fmt.Errorf("input path is required")}
			}
			return nil
		},
	},
	{
		Name: KeyInputFormat,
		Update: func(c *Config, v string) error {
			c.InputFormat = v
			return nil
		},
	},
	{
		Name: KeyOutput,
		Update: func(c *Config, v string) error {
			c.Output = v
			return nil
		},
		Validate: func(c *Config) error {
			if c.Output == "" {
				return &ConfigError{Field: KeyOutput, Err: fmt.Errorf("output path is required")}
			}
			return nil
		},
	},
	{
		Name: KeyCropMinX,
		Update: func(c *Config, v string) error { return updateUint(&c.CropMinX, v) },
	},
	{
		Name: KeyCropMaxX,
		Update: func(c *Config, v string) error { return updateUint(&c.CropMaxX, v) },
	},
	{
		Name:     KeyVoxelSizeX,
		Update:   func(c *Config, v string) error { return updateFloat(&c.VoxelSizeX, v) },
		Validate: validateCrop,
	},
	{
		Name:   KeyVoxelSizeY,
		Update: func(c *Config, v string) error { return updateFloat(&c.VoxelSizeY, v) },
	},
	{
		Name:   KeyVoxelSizeZ,
		Update: func(c *Config, v string) error { return updateFloat(&c.VoxelSizeZ, v) },
	},
	{
		Name: KeyWriteThumbnail,
		Update: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return &ConfigError{Field: KeyWriteThumbnail, Err: err}
			}
			c.WriteThumbnail = b
			return nil
		},
	},
	{
		Name: KeyCompressionThreads,
		Update: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return &ConfigError{Field: KeyCompressionThreads, Err: err}
			}
			c.CompressionThreads = n
			return nil
		},
		Validate: func(c *Config) error {
			if c.CompressionThreads <= 0 {
				c.LogInvalidField(KeyCompressionThreads, defaultCompressionThreads)
				c.CompressionThreads = defaultCompressionThreads
			}
			return nil
		},
	},
	{
		Name: KeyTimeout,
		Update: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return &ConfigError{Field: KeyTimeout, Err: err}
			}
			c.Timeout = d
			return nil
		},
	},
	{
		Name: KeyAutoAdjust,
		Update: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return &ConfigError{Field: KeyAutoAdjust, Err: err}
			}
			c.AutoAdjust = b
			return nil
		},
	},
	{
		// CompressionLevel has no string-keyed source (it is format
		// specific and mostly left at its default); only defaulting is
		// registered here.
		Name: "CompressionLevel",
		Validate: func(c *Config) error {
			if c.CompressionLevel <= 0 {
				c.CompressionLevel = defaultCompressionLevel
			}
			return nil
		},
	},
}

func updateUint(dst *uint64, v string) error {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func updateFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

// validateCrop checks the crop rectangle is not inverted on any axis
// whose Max bound has been set explicitly (0 means "natural bound" and
// is always valid).
func validateCrop(c *Config) error {
	check := func(field string, min, max uint64) error {
		if max != 0 && min >= max {
			return &ConfigError{Field: field, Err: fmt.Errorf("crop min %d >= max %d", min, max)}
		}
		return nil
	}
	if err := check(KeyCropMinX, c.CropMinX, c.CropMaxX); err != nil {
		return err
	}
	if err := check("CropMinY", c.CropMinY, c.CropMaxY); err != nil {
		return err
	}
	if err := check("CropMinZ", c.CropMinZ, c.CropMaxZ); err != nil {
		return err
	}
	if err := check("CropMinC", c.CropMinC, c.CropMaxC); err != nil {
		return err
	}
	if err := check("CropMinT", c.CropMinT, c.CropMaxT); err != nil {
		return err
	}
	return nil
}
