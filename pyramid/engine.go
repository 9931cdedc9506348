/*
DESCRIPTION
  engine.go implements MultiResolutionEngine, the component that turns a
  stream of full-resolution blocks into a complete multi-resolution
  pyramid: it maintains the coarser levels' voxel data as blocks arrive,
  keeps running histograms for every (channel, level), and on Finish
  derives the auto-adjusted display ranges and flushes final metadata.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pyramid

import (
	"context"
	"fmt"
	"sync"

	"github.com/ausocean/voxelconvert/arena"
	"github.com/ausocean/voxelconvert/histogram"
	"github.com/ausocean/voxelconvert/reader"
	"github.com/ausocean/voxelconvert/writer"
)

// Options configures a MultiResolutionEngine at construction time.
type Options struct {
	// Workers is the size of the bounded worker pool that compresses and
	// downsamples blocks. Default 4 if zero.
	Workers int

	// ArenaBuffers is the number of scratch buffers the engine's arena
	// pool holds. Default 2*Workers if zero, per the shared-resource
	// policy (pool high-water mark = worker count * block bytes * 2).
	ArenaBuffers int

	// Layout decides the pyramid's level count and per-level downsample
	// factors. DefaultLayoutStrategy{} is used if nil.
	Layout LayoutStrategy

	// VoxelSize is the physical voxel spacing along X,Y,Z, used by Layout
	// to preserve near-cubic aspect across levels.
	VoxelSize [3]float64
}

// Engine is the MultiResolutionEngine: it owns one pyramid's worth of
// coarser-level voxel data, the per-(channel,level) histograms, the
// bounded worker pool and arena, and the Writer every finished block and
// the final metadata are flushed to.
type Engine struct {
	dtype    reader.DataType
	size     reader.Size5D
	seq      reader.DimensionSequence
	levels   []PyramidLevel
	w        writer.Writer
	dedup    dedup
	pool     *arena.Pool
	hists    *histogram.Set
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex // guards coarse, the in-progress coarser-level voxel store.
	coarse   map[int]*levelStore
	errOnce  sync.Once
	firstErr error
	cancel   context.CancelFunc
	ctx      context.Context
}

// levelStore holds one resolution level's worth of voxel data in flight,
// one Box per (channel, timepoint), addressed by the level's full voxel
// size. Only levels above 0 are stored this way; level 0 blocks are
// written straight through without ever being held in memory here.
type levelStore struct {
	size reader.Size5D
	data map[chanTime]*Box
}

type chanTime struct {
	channel, t int
}

// Construct builds a MultiResolutionEngine for a dataset of the given
// data type and full-resolution size, writing through w (which Construct
// wraps with writer.Serialize), tiled by fileBlockSize at every level and
// ordered by seq.
func Construct(dtype reader.DataType, size, fileBlockSize reader.Size5D, seq reader.DimensionSequence, w writer.Writer, opts Options) (*Engine, error) {
	if err := seq.Validate(); err != nil {
		return nil, fmt.Errorf("pyramid: %w", err)
	}
	if size.X == 0 || size.Y == 0 || size.Z == 0 || size.C == 0 || size.T == 0 {
		return nil, fmt.Errorf("pyramid: size %v has a zero axis", size)
	}

	layout := opts.Layout
	if layout == nil {
		layout = DefaultLayoutStrategy{}
	}
	factors := layout.Levels(size, opts.VoxelSize)
	levels := BuildLevels(size, fileBlockSize, factors)

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	arenaBuffers := opts.ArenaBuffers
	if arenaBuffers <= 0 {
		arenaBuffers = workers * 2
	}
	blockBytes := int(fileBlockSize.Volume()) * dtype.Size()

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		dtype:  dtype,
		size:   size,
		seq:    seq,
		levels: levels,
		w:      writer.Serialize(w),
		pool:   arena.New(arenaBuffers, blockBytes),
		hists:  histogram.NewSet(),
		sem:    make(chan struct{}, workers),
		coarse: make(map[int]*levelStore),
		ctx:    ctx,
		cancel: cancel,
	}
	// Only level 1 is populated incrementally, from streamed level-0
	// blocks, as CopyBlock is called; every coarser level is derived in
	// one shot from the immediately finer level's completed Box at
	// Finish time (see flushLevel), so its store is created lazily then.
	if len(levels) > 1 {
		e.coarse[1] = &levelStore{size: levels[1].Size, data: make(map[chanTime]*Box)}
	}
	return e, nil
}

// Levels returns the pyramid's level descriptors, level 0 first.
func (e *Engine) Levels() []PyramidLevel { return e.levels }

// histogramBounds returns the initial domain bounds for a histogram of
// e.dtype: [0, max representable value] for integer types, an empty
// adaptive range seeded at [v,v] for float types.
func histogramBounds(dtype reader.DataType, seed float64) (lo, hi float64) {
	switch dtype {
	case reader.U8:
		return 0, 255
	case reader.U16:
		return 0, 65535
	case reader.U32:
		return 0, 4294967295
	default:
		return seed, seed
	}
}

// NeedCopyBlock reports whether the writer block at (level, block) still
// requires data: the engine has no notion of a "done" bitmap beyond the
// fingerprint dedup guarantee, so this always returns true for level 0
// (every source block must be copied at least once) and for coarser
// levels reports whether that level's store still exists, i.e. whether
// Finish has not yet flushed it away.
func (e *Engine) NeedCopyBlock(level int, block reader.Index5D) bool {
	if level == 0 {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.coarse[level]
	return ok
}

// CopyBlock accepts one fully remapped, writer-ordered block of decoded
// voxels for (t, channel, level=0, block) and schedules its compression,
// histogram update and contribution to the coarser levels. It blocks
// while every worker slot is busy, providing backpressure.
// CopyBlock returns promptly; the actual work, including any WriterError,
// surfaces through Finish's return value, except that repeated
// WriterErrors after the first stop scheduling new work.
func (e *Engine) CopyBlock(data []byte, block reader.Index5D, t, channel int) {
	// block locates only the XYZ tile; channel and t fill the
	// fingerprint's C and T so slices of one tile are never collapsed.
	fp := Fingerprint{Level: 0, Block: reader.Index5D{X: block.X, Y: block.Y, Z: block.Z, C: uint64(channel), T: uint64(t)}}
	select {
	case e.sem <- struct{}{}:
	case <-e.ctx.Done():
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() { <-e.sem }()
		_, err, _ := e.dedup.Submit(fp, func() (interface{}, error) {
			return nil, e.buildLevelZero(data, block, t, channel)
		})
		if err != nil {
			e.reportError(err)
		}
	}()
}

// buildLevelZero writes one level-0 block straight through to the
// writer, records it into the level's histogram, and accumulates it into
// level 1's in-progress Box.
func (e *Engine) buildLevelZero(data []byte, block reader.Index5D, t, channel int) error {
	lv := e.levels[0]
	origin, size := lv.Grid.Extent(block, lv.Size)
	n := size.X * size.Y * size.Z

	lo, hi := histogramBounds(e.dtype, reader.GetVoxel(data, 0, e.dtype))
	h := e.hists.Get(channel, 0, e.dtype, lo, hi)
	for i := uint64(0); i < n; i++ {
		h.Add(reader.GetVoxel(data, i, e.dtype))
	}

	if err := e.w.WriteDataBlock(data, block, t, channel, 0); err != nil {
		return err
	}

	if len(e.levels) > 1 {
		e.accumulate(1, channel, t, origin, size, data)
	}
	return nil
}

// accumulate folds one level-0 block's contribution into level 1's
// in-progress Box for (channel, t), creating the Box on first touch.
// level is always 1: level 1 is the only level built incrementally from
// streamed level-0 data, since level-0 blocks arrive in any order and
// only a single finer level's worth of in-progress state is kept at a
// time. Every coarser level is instead derived from level 1 (and then
// from each other, level by level) at Finish, once level 1's Box is
// known to be complete; see flushLevel.
func (e *Engine) accumulate(level, channel, t int, origin, size reader.Size5D, data []byte) {
	e.mu.Lock()
	store, ok := e.coarse[level]
	if !ok {
		e.mu.Unlock()
		return
	}
	ct := chanTime{channel: channel, t: t}
	box, ok := store.data[ct]
	if !ok {
		vol := store.size.Volume()
		box = &Box{SX: int(store.size.X), SY: int(store.size.Y), SZ: int(store.size.Z), Data: make([]float64, vol), Counts: make([]int, vol)}
		store.data[ct] = box
	}
	e.mu.Unlock()

	f := levelFactor(e.levels, level)
	for z := uint64(0); z < size.Z; z++ {
		gz := (origin.Z + z) / uint64(f.Z)
		if int(gz) >= box.SZ {
			continue
		}
		for y := uint64(0); y < size.Y; y++ {
			gy := (origin.Y + y) / uint64(f.Y)
			if int(gy) >= box.SY {
				continue
			}
			for x := uint64(0); x < size.X; x++ {
				gx := (origin.X + x) / uint64(f.X)
				if int(gx) >= box.SX {
					continue
				}
				i := (z*size.Y+y)*size.X + x
				v := reader.GetVoxel(data, i, e.dtype)
				// Accumulate a running sum and contributor count per
				// coarse voxel; Finalize divides by the actual count at
				// flush time, so a trailing partial box on the high edge
				// (fewer than f.X*f.Y*f.Z contributors) still averages
				// correctly instead of being diluted by the nominal
				// box volume.
				di := (int(gz)*box.SY+int(gy))*box.SX + int(gx)
				box.Data[di] += v
				box.Counts[di]++
			}
		}
	}
}

// levelFactor returns the cumulative per-axis factor between level 0 and
// level, i.e. how many level-0 voxels map to one voxel of level.
func levelFactor(levels []PyramidLevel, level int) Factor3 {
	if level <= 0 || level >= len(levels) {
		return Factor3{X: 1, Y: 1, Z: 1}
	}
	return stepFactor(levels[0].Size, levels[level].Size)
}

// stepFactor returns the per-axis factor between a fine and a coarse
// size, i.e. how many fine voxels map to one coarse voxel along each
// axis, recovered the same way BuildLevels derived coarse from fine.
func stepFactor(fine, coarse reader.Size5D) Factor3 {
	f := Factor3{X: 1, Y: 1, Z: 1}
	if coarse.X > 0 {
		f.X = int(ceilDiv(fine.X, coarse.X))
	}
	if coarse.Y > 0 {
		f.Y = int(ceilDiv(fine.Y, coarse.Y))
	}
	if coarse.Z > 0 {
		f.Z = int(ceilDiv(fine.Z, coarse.Z))
	}
	return f
}

// reportError records the first error the engine observes and cancels
// outstanding work; a WriterError is fatal per the error-handling design,
// so the engine does not attempt to continue scheduling new blocks once
// one has occurred, though blocks already in flight are allowed to drain.
func (e *Engine) reportError(err error) {
	e.errOnce.Do(func() {
		e.firstErr = err
		e.cancel()
	})
}

// Finish drains the worker pool, flushes every coarser level's
// in-progress Boxes (downsampling and writing each level's blocks in
// level order, finest-to-coarsest among the remaining levels), applies
// histogram.AutoRange to every channel's finest-level histogram when
// autoAdjust is set, and writes final metadata. It returns the first
// WriterError observed during streaming or flush, if any.
func (e *Engine) Finish(ctx context.Context, extent reader.Extent, params reader.ParameterSections, times []reader.TimeInfo, colors []reader.ColorInfo, autoAdjust bool) error {
	e.wg.Wait()
	if e.firstErr != nil {
		return e.firstErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Levels are flushed in order, finest coarse level first: flushLevel
	// seeds level lv+1's store from level lv's completed data before
	// returning, so by the time this loop reaches lv+1 its store exists
	// and is complete.
	for _, lv := range e.levels[1:] {
		if err := e.flushLevel(lv); err != nil {
			return err
		}
	}

	outColors := colors
	if autoAdjust {
		outColors = make([]reader.ColorInfo, len(colors))
		copy(outColors, colors)
		for i := range outColors {
			if h, ok := e.hists.Lookup(i, 0); ok {
				rmin, rmax := h.AutoRange()
				outColors[i].RangeMin = rmin
				outColors[i].RangeMax = rmax
			}
		}
	}

	for level := range e.levels {
		for _, ch := range e.hists.Channels(level) {
			h, ok := e.hists.Lookup(ch, level)
			if !ok {
				continue
			}
			// Histograms are dataset-wide per (channel,level); written
			// once under timepoint 0 regardless of how many timepoints
			// the dataset has.
			if err := e.w.WriteHistogram(h.Bins(), 0, ch, level); err != nil {
				return err
			}
		}
	}

	if err := e.w.WriteMetadata(writer.App.Name, writer.App.Version, extent, params, times, outColors); err != nil {
		return err
	}
	return nil
}

// flushLevel finalizes every in-progress Box at lv (dividing running
// sums by their actual contributor counts, see Box.Finalize), writes
// each one's blocks, and, if a coarser level follows lv, downsamples the
// finalized Box into that level's store — deriving it strictly from lv,
// its immediately finer level, per the data model's invariant. It then
// discards lv's own store so NeedCopyBlock reports false for it
// thereafter.
func (e *Engine) flushLevel(lv PyramidLevel) error {
	e.mu.Lock()
	store, ok := e.coarse[lv.Index]
	delete(e.coarse, lv.Index)
	e.mu.Unlock()
	if !ok {
		return nil
	}

	isFloat := e.dtype == reader.F32
	counts := lv.Grid.Counts
	total := counts.X * counts.Y * counts.Z

	var nextLv PyramidLevel
	var nextFactor Factor3
	hasNext := lv.Index+1 < len(e.levels)
	if hasNext {
		nextLv = e.levels[lv.Index+1]
		nextFactor = stepFactor(lv.Size, nextLv.Size)
	}

	for ct, raw := range store.data {
		box := raw.Finalize()

		if hasNext {
			seed := Downsample(box, nextFactor, int(nextLv.Size.X), int(nextLv.Size.Y), int(nextLv.Size.Z), true)
			e.mu.Lock()
			nstore, ok := e.coarse[nextLv.Index]
			if !ok {
				nstore = &levelStore{size: nextLv.Size, data: make(map[chanTime]*Box)}
				e.coarse[nextLv.Index] = nstore
			}
			nstore.data[ct] = &seed
			e.mu.Unlock()
		}

		lo, hi := histogramBounds(e.dtype, box.Data[0])
		h := e.hists.Get(ct.channel, lv.Index, e.dtype, lo, hi)

		for flat := uint64(0); flat < total; flat++ {
			bz := flat / (counts.X * counts.Y)
			rem := flat % (counts.X * counts.Y)
			by := rem / counts.X
			bx := rem % counts.X
			blockIdx := reader.Index5D{X: bx, Y: by, Z: bz}
			origin, size := lv.Grid.Extent(blockIdx, lv.Size)

			buf := e.pool.Get()
			n := size.X * size.Y * size.Z
			need := uint64(e.dtype.Size()) * n
			if need > uint64(len(buf)) {
				buf = make([]byte, need)
			}
			var i uint64
			for z := uint64(0); z < size.Z; z++ {
				for y := uint64(0); y < size.Y; y++ {
					for x := uint64(0); x < size.X; x++ {
						gx, gy, gz := origin.X+x, origin.Y+y, origin.Z+z
						v := box.at(int(gx), int(gy), int(gz))
						if !isFloat {
							v = roundHalfToEvenPublic(v)
						}
						reader.SetVoxel(buf, i, e.dtype, v)
						h.Add(v)
						i++
					}
				}
			}
			err := e.w.WriteDataBlock(buf[:need], blockIdx, ct.t, ct.channel, lv.Index)
			if cap(buf) == e.pool.Size() {
				e.pool.Put(buf)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
