/*
DESCRIPTION
  main.go is the voxelconvert entry point: it parses flags into a
  config.Config, builds a logger, looks up the requested input/output
  formats in this command's format registries, and drives one
  convert.Converter run under a cancel.Supervisor.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the voxelconvert CLI: it converts a 5D microscopy
// source into a multi-resolution, tiled output via convert.Converter.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/voxelconvert/cancel"
	"github.com/ausocean/voxelconvert/config"
	"github.com/ausocean/voxelconvert/convert"
	"github.com/ausocean/voxelconvert/reader"
	"github.com/ausocean/voxelconvert/reader/rawfile"
	"github.com/ausocean/voxelconvert/series"
	"github.com/ausocean/voxelconvert/writer"
	"github.com/ausocean/voxelconvert/writer/dircontainer"
	"github.com/ausocean/voxelconvert/writer/thumbnail"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

// Exit codes, beyond cancel.ExitTimeout.
const (
	exitOK       = 0
	exitConfig   = 2
	exitRun      = 3
	exitCanceled = 4
)

const pkg = "voxelconvert: "

// readerFactory builds a BlockReaderAdapter from an input path and the
// requested image/series index within it.
type readerFactory func(path string, imageIndex int) (reader.BlockReaderAdapter, error)

// writerFactory builds a Writer rooted at an output path.
type writerFactory func(path string, format thumbnail.Format, level int) (writer.Writer, error)

// readerFormats and writerFormats are this command's format-name-keyed
// factories (see reader.BlockReaderAdapter and writer.Writer's doc
// comments): the core pipeline depends only on those two interfaces, so
// adding a vendor format or a real grouped container here never touches
// the conversion packages.
var readerFormats = map[string]readerFactory{
	"raw": func(path string, imageIndex int) (reader.BlockReaderAdapter, error) {
		return rawfile.Open(path, imageIndex)
	},
}

var writerFormats = map[string]writerFactory{
	"dir": func(path string, format thumbnail.Format, level int) (writer.Writer, error) {
		return dircontainer.Create(path, format, level)
	},
}

func main() {
	showVersion := flag.Bool("version", false, "show version")

	cfg := config.Config{}
	flag.StringVar(&cfg.Input, "input", "", "primary input path")
	flag.StringVar(&cfg.InputFormat, "inputformat", "raw", "input format name")
	flag.IntVar(&cfg.InputImageIndex, "inputimageindex", 0, "image/series index within the input")

	flag.Uint64Var(&cfg.CropMinX, "cropminx", 0, "crop min X")
	flag.Uint64Var(&cfg.CropMaxX, "cropmaxx", 0, "crop max X (0 = natural bound)")
	flag.Uint64Var(&cfg.CropMinY, "cropminy", 0, "crop min Y")
	flag.Uint64Var(&cfg.CropMaxY, "cropmaxy", 0, "crop max Y (0 = natural bound)")
	flag.Uint64Var(&cfg.CropMinZ, "cropminz", 0, "crop min Z")
	flag.Uint64Var(&cfg.CropMaxZ, "cropmaxz", 0, "crop max Z (0 = natural bound)")
	flag.Uint64Var(&cfg.CropMinC, "cropminc", 0, "crop min channel")
	flag.Uint64Var(&cfg.CropMaxC, "cropmaxc", 0, "crop max channel (0 = natural bound)")
	flag.Uint64Var(&cfg.CropMinT, "cropmint", 0, "crop min timepoint")
	flag.Uint64Var(&cfg.CropMaxT, "cropmaxt", 0, "crop max timepoint (0 = natural bound)")

	flag.Float64Var(&cfg.VoxelSizeX, "voxelsizex", 0, "voxel size X override (0 = use source)")
	flag.Float64Var(&cfg.VoxelSizeY, "voxelsizey", 0, "voxel size Y override (0 = use source)")
	flag.Float64Var(&cfg.VoxelSizeZ, "voxelsizez", 0, "voxel size Z override (0 = use source)")

	flag.IntVar(&cfg.LayoutMinAxisVoxels, "layoutminaxis", 0, "pyramid layout minimum axis voxels (0 = default)")
	flag.IntVar(&cfg.LayoutMaxLevels, "layoutmaxlevels", 0, "pyramid layout maximum levels (0 = default)")

	flag.StringVar(&cfg.Output, "output", "", "output path")
	outputFormat := flag.String("outputformat", "dir", "output format name")

	flag.BoolVar(&cfg.WriteThumbnail, "writethumbnail", true, "write the dataset thumbnail")
	thumbnailFormatFlag := flag.String("thumbnailformat", "png", "thumbnail format: png or jpeg")

	flag.BoolVar(&cfg.VoxelHash, "voxelhash", false, "record a SHA-256 content hash of the written voxel stream in metadata")
	flag.BoolVar(&cfg.WriteDescriptors, "writedescriptors", true, "copy source parameter sections into output metadata")
	flag.StringVar(&cfg.LogFile, "logfile", "", "log file path (empty logs to stderr only)")
	flag.BoolVar(&cfg.ShowProgress, "showprogress", false, "log periodic throughput progress")

	flag.IntVar(&cfg.CompressionThreads, "compressionthreads", 0, "pyramid worker pool size (0 = default)")
	flag.IntVar(&cfg.CompressionLevel, "compressionlevel", 0, "writer compression level (0 = default)")

	flag.DurationVar(&cfg.Timeout, "timeout", 0, "run timeout, 0 = none")
	flag.DurationVar(&cfg.ThroughputInterval, "throughputinterval", 0, "throughput sample interval (0 = default)")
	flag.DurationVar(&cfg.ThroughputWindow, "throughputwindow", 0, "throughput estimation window (0 = default)")

	flag.BoolVar(&cfg.AutoAdjust, "autoadjust", true, "auto-adjust channel color ranges from histograms")

	additionalFlag := flag.String("additional", "", "comma-separated list of additional input paths, appended as further timepoints")
	flag.StringVar(&cfg.SeriesDelimiter, "seriesdelimiter", "", "auto-discover a file series sharing Input's base name, split on this delimiter")
	seriesQuiet := flag.Duration("seriesquiet", 0, "wait for this long with no new series file before starting (0 = discover once, don't wait)")
	flag.BoolVar(&cfg.WriteAllFiles, "writeallfiles", false, "convert every input into its own output instead of one concatenated series")

	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(exitOK)
	}

	var writers []io.Writer = []io.Writer{os.Stderr}
	if cfg.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackup,
			MaxAge:     logMaxAge,
		})
	}
	log := logging.New(logVerbosity, io.MultiWriter(writers...), logSuppress)
	cfg.Logger = log

	log.Info("starting voxelconvert", "version", version)

	if err := cfg.Validate(); err != nil {
		log.Error(pkg+"invalid configuration", "error", err.Error())
		os.Exit(exitConfig)
	}

	cfg.ThumbnailFormat = config.ThumbnailPNG
	if *thumbnailFormatFlag == "jpeg" || *thumbnailFormatFlag == "jpg" {
		cfg.ThumbnailFormat = config.ThumbnailJPEG
	}
	format := thumbnail.PNG
	if cfg.ThumbnailFormat == config.ThumbnailJPEG {
		format = thumbnail.JPEG
	}

	newReader, ok := readerFormats[cfg.InputFormat]
	if !ok {
		log.Error(pkg+"unknown input format", "format", cfg.InputFormat)
		os.Exit(exitConfig)
	}
	newWriter, ok := writerFormats[*outputFormat]
	if !ok {
		log.Error(pkg+"unknown output format", "format", *outputFormat)
		os.Exit(exitConfig)
	}

	sup := cancel.New(cfg.Timeout)
	defer sup.Stop()

	if *additionalFlag != "" {
		cfg.Additional = strings.Split(*additionalFlag, ",")
	}
	inputs := append([]string{cfg.Input}, cfg.Additional...)
	if len(cfg.Additional) == 0 && cfg.SeriesDelimiter != "" {
		var err error
		if *seriesQuiet > 0 {
			inputs, err = series.Watch(sup.Context(), cfg.Input, cfg.SeriesDelimiter, *seriesQuiet)
		} else {
			inputs, err = series.Discover(cfg.Input, cfg.SeriesDelimiter)
		}
		if err != nil {
			log.Error(pkg+"could not discover file series", "error", err.Error())
			os.Exit(exitConfig)
		}
	}

	var exitCode int
	start := time.Now()
	if cfg.WriteAllFiles {
		exitCode = runEach(sup, cfg, inputs, newReader, newWriter, format, log)
	} else {
		exitCode = runSeries(sup, cfg, inputs, newReader, newWriter, format, log)
	}
	log.Info("run finished", "elapsed", time.Since(start).String())
	os.Exit(exitCode)
}

// runSeries converts every input in inputs as one concatenated dataset,
// each file after the first appended as further timepoints, into a
// single output at cfg.Output.
func runSeries(sup *cancel.Supervisor, cfg config.Config, inputs []string, newReader readerFactory, newWriter writerFactory, format thumbnail.Format, log logging.Logger) int {
	src, err := newReader(inputs[0], cfg.InputImageIndex)
	if err != nil {
		log.Error(pkg+"could not open input", "input", inputs[0], "error", err.Error())
		return exitConfig
	}

	w, err := newWriter(cfg.Output, format, cfg.CompressionLevel)
	if err != nil {
		log.Error(pkg+"could not open output", "error", err.Error())
		return exitConfig
	}

	conv, err := convert.New(cfg, src, w)
	if err != nil {
		log.Error(pkg+"could not initialize converter", "error", err.Error())
		return exitConfig
	}
	for _, path := range inputs[1:] {
		extra, err := newReader(path, cfg.InputImageIndex)
		if err != nil {
			log.Error(pkg+"could not open series member", "input", path, "error", err.Error())
			return exitConfig
		}
		conv.AddSource(extra)
	}

	return run(conv, sup, log)
}

// runEach converts every input in inputs into its own output, derived
// from cfg.Output by appending the input's base name.
func runEach(sup *cancel.Supervisor, cfg config.Config, inputs []string, newReader readerFactory, newWriter writerFactory, format thumbnail.Format, log logging.Logger) int {
	for i, path := range inputs {
		src, err := newReader(path, cfg.InputImageIndex)
		if err != nil {
			log.Error(pkg+"could not open input", "input", path, "error", err.Error())
			return exitConfig
		}

		out := cfg.Output
		if len(inputs) > 1 {
			out = filepath.Join(cfg.Output, strconv.Itoa(i)+"_"+strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		}
		w, err := newWriter(out, format, cfg.CompressionLevel)
		if err != nil {
			log.Error(pkg+"could not open output", "output", out, "error", err.Error())
			return exitConfig
		}

		conv, err := convert.New(cfg, src, w)
		if err != nil {
			log.Error(pkg+"could not initialize converter", "error", err.Error())
			return exitConfig
		}
		if code := run(conv, sup, log); code != exitOK {
			return code
		}
	}
	return exitOK
}

// run drives one Converter under sup, mapping its outcome onto an exit
// code.
func run(conv *convert.Converter, sup *cancel.Supervisor, log logging.Logger) int {
	runErr := conv.Run(sup.Context())
	switch {
	case runErr == nil:
		return exitOK
	case sup.TimedOut():
		log.Error(pkg+"run timed out", "error", runErr.Error())
		return cancel.ExitTimeout
	case sup.Context().Err() != nil:
		log.Warning(pkg+"run canceled", "error", runErr.Error())
		return exitCanceled
	default:
		log.Error(pkg+"run failed", "error", runErr.Error())
		return exitRun
	}
}
