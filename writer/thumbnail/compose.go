/*
DESCRIPTION
  compose.go builds the single side-channel thumbnail image the Converter
  writes after the engine's Finish: a centered square canvas with black
  letterbox, encoded as PNG or JPEG by Encode, with rows flipped
  vertically to match bottom-up image storage.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package thumbnail composes the dataset-level thumbnail image and
// computes the maximum/minimum-intensity projections it is built from.
package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// Format selects the thumbnail's on-disk encoding.
type Format int

const (
	PNG Format = iota
	JPEG
)

// jpegQuality is the "normal quality" setting used when Format is JPEG.
const jpegQuality = 85

// Compose builds the thumbnail canvas from a projection image: a square
// canvas of side max(W,H), the projection centered within it, any margin
// left black (the letterbox), and every row flipped vertically relative
// to proj's top-down Go image.Image convention, matching the bottom-up
// row order the reference viewer expects on disk.
func Compose(proj image.Image) *image.RGBA {
	b := proj.Bounds()
	w, h := b.Dx(), b.Dy()
	side := w
	if h > side {
		side = h
	}

	out := image.NewRGBA(image.Rect(0, 0, side, side))
	draw(out, image.Rect(0, 0, side, side), color.Black)

	offX := (side - w) / 2
	offY := (side - h) / 2
	for y := 0; y < h; y++ {
		srcY := b.Min.Y + y
		dstY := side - 1 - (offY + y) // Vertical flip into bottom-up order.
		if dstY < 0 || dstY >= side {
			continue
		}
		for x := 0; x < w; x++ {
			out.Set(offX+x, dstY, proj.At(b.Min.X+x, srcY))
		}
	}
	return out
}

func draw(img *image.RGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

// Encode renders img in the given format and returns the encoded bytes.
func Encode(img image.Image, format Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case JPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
