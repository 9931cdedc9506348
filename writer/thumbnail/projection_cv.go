//go:build withcv
// +build withcv

/*
DESCRIPTION
  projection_cv.go computes the maximum/minimum-intensity projection used
  to build the thumbnail, reducing a Z stack of grayscale planes with
  gocv's Mat Max/Min reduction instead of a manual per-pixel loop.

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

	"gocv.io/x/gocv"
)

// Kind selects which intensity projection Project computes.
type Kind int

const (
	Max Kind = iota
	Min
)

// Project reduces a Z stack of equally sized 8-bit grayscale planes into
// a single plane by taking, per pixel, the maximum (Max) or minimum (Min)
// value across all planes, via repeated gocv.Max/gocv.Min accumulation.
// It panics if planes is empty.
func Project(planes []*image.Gray, kind Kind) *image.Gray {
	if len(planes) == 0 {
		panic("thumbnail: Project called with no planes")
	}
	acc, err := gocv.ImageGrayToMatGray(planes[0])
	if err != nil {
		panic("thumbnail: " + err.Error())
	}
	defer acc.Close()

	for _, p := range planes[1:] {
		m, err := gocv.ImageGrayToMatGray(p)
		if err != nil {
			panic("thumbnail: " + err.Error())
		}
		if kind == Max {
			gocv.Max(acc, m, &acc)
		} else {
			gocv.Min(acc, m, &acc)
		}
		m.Close()
	}

	out, err := acc.ToImage()
	if err != nil {
		panic("thumbnail: " + err.Error())
	}
	gray, ok := out.(*image.Gray)
	if !ok {
		converted := image.NewGray(out.Bounds())
		for y := out.Bounds().Min.Y; y < out.Bounds().Max.Y; y++ {
			for x := out.Bounds().Min.X; x < out.Bounds().Max.X; x++ {
				converted.Set(x, y, out.At(x, y))
			}
		}
		return converted
	}
	return gray
}
