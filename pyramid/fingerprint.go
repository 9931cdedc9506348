/*
DESCRIPTION
  fingerprint.go implements the at-most-one-build-per-fingerprint
  guarantee: a fingerprint is (level, block index); two submissions with
  the same fingerprint collapse onto a single compression job, and the
  second caller observes the first's result.

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
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/ausocean/voxelconvert/reader"
)

// Fingerprint identifies one unit of compression/build work: a
// resolution level and a 5D writer block index.
type Fingerprint struct {
	Level int
	Block reader.Index5D
}

// Key returns a string suitable for use as a singleflight.Group key.
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%d:%s", f.Level, f.Block)
}

// dedup wraps a singleflight.Group to provide the fingerprint guarantee:
// concurrent Submit calls with the same fingerprint share one execution
// of fn, and every caller observes the same (result, error) pair. This
// is the same "exactly one caller does the work, the rest wait on its
// future" shape used throughout this module's prior art for collapsing
// duplicate concurrent GPU uploads, adapted here to collapse duplicate
// concurrent block builds instead.
type dedup struct {
	g singleflight.Group
}

// Submit runs fn for fingerprint fp, or, if a call for fp is already in
// flight, waits for that call's result instead of running fn again.
func (d *dedup) Submit(fp Fingerprint, fn func() (interface{}, error)) (interface{}, error, bool) {
	return d.g.Do(fp.Key(), fn)
}

// Forget evicts fp's in-flight call, if any, so a Submit issued before
// that call returns runs fn again instead of waiting for it. A call that
// has already returned is never shared, with or without Forget.
func (d *dedup) Forget(fp Fingerprint) {
	d.g.Forget(fp.Key())
}
