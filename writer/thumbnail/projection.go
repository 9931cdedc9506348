//go:build !withcv
// +build !withcv

/*
DESCRIPTION
  projection.go computes the maximum/minimum-intensity projection used to
  build the thumbnail in builds without the withcv tag: a pure Go
  per-pixel reduction across the Z stack. See projection_cv.go for the
  gocv-backed implementation used when that tag is set.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package thumbnail

import (
	"image"
	"image/color"
)

// Kind selects which intensity projection Project computes.
type Kind int

const (
	Max Kind = iota
	Min
)

// Project reduces a Z stack of equally sized 8-bit grayscale planes into
// a single plane by taking, per pixel, the maximum (Max) or minimum (Min)
// value across all planes. It panics if planes is empty or the planes
// differ in size.
func Project(planes []*image.Gray, kind Kind) *image.Gray {
	if len(planes) == 0 {
		panic("thumbnail: Project called with no planes")
	}
	b := planes[0].Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := planes[0].GrayAt(x, y).Y
			for _, p := range planes[1:] {
				c := p.GrayAt(x, y).Y
				if (kind == Max && c > v) || (kind == Min && c < v) {
					v = c
				}
			}
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}
