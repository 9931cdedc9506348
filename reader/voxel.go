/*
DESCRIPTION
  voxel.go provides typed element access into a flat voxel buffer, shared
  by the remapper, engine and histogram code so that byte-level encoding
  decisions live in exactly one place.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package reader

import (
	"encoding/binary"
	"math"
)

// GetVoxel reads the element at index i (in elements, not bytes) from
// buf, interpreted as dtype, and returns it widened to float64.
func GetVoxel(buf []byte, i uint64, dtype DataType) float64 {
	switch dtype {
	case U8:
		return float64(buf[i])
	case U16:
		return float64(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	case U32:
		return float64(binary.LittleEndian.Uint32(buf[i*4 : i*4+4]))
	case F32:
		bits := binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
		return float64(math.Float32frombits(bits))
	default:
		panic("reader: invalid data type in GetVoxel")
	}
}

// SetVoxel writes v (a float64-widened value) into buf at element index
// i, encoded as dtype. For integer types v is rounded and clamped into
// the type's representable range.
func SetVoxel(buf []byte, i uint64, dtype DataType, v float64) {
	switch dtype {
	case U8:
		buf[i] = uint8(clampRound(v, 0, math.MaxUint8))
	case U16:
		binary.LittleEndian.PutUint16(buf[i*2:i*2+2], uint16(clampRound(v, 0, math.MaxUint16)))
	case U32:
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], uint32(clampRound(v, 0, math.MaxUint32)))
	case F32:
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(float32(v)))
	default:
		panic("reader: invalid data type in SetVoxel")
	}
}

func clampRound(v, lo, hi float64) float64 {
	r := roundHalfToEven(v)
	if r < lo {
		return lo
	}
	if r > hi {
		return hi
	}
	return r
}

// roundHalfToEven rounds v to the nearest integer, breaking exact .5
// ties toward the even neighbor, the rule the data model mandates for
// integer-type pyramid downsampling.
func roundHalfToEven(v float64) float64 {
	return math.RoundToEven(v)
}
