/*
DESCRIPTION
  autorange.go implements the finalize-time auto-adjust algorithm: low
  pass the bin counts, find the first local maximum as range_min, walk
  cumulatively to the 0.998 mass point for range_max, then expand
  range_max by 20% of the interval for headroom.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package histogram

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// cumulativeFraction is the cutoff fraction of total voxel mass used to
// locate range_max.
const cumulativeFraction = 0.998

// headroomFraction expands range_max by this fraction of the
// [range_min,range_max] interval, capped at the histogram's maximum bin
// value.
const headroomFraction = 0.20

// AutoRange computes the (range_min, range_max) display-range hint for a
// histogram, following the finalize algorithm:
//  1. Low-pass filter the bin counts with a 1D Gaussian (Deriche IIR,
//     sigma = 5*N/256).
//  2. Identify the first local maximum of the filtered curve; its bin
//     value becomes range_min.
//  3. Walk bin counts cumulatively (on the *unfiltered* counts, which is
//     what makes the 0.998 cutoff exact against Total()) until the
//     cumulative fraction exceeds cumulativeFraction; that bin's value
//     becomes range_max.
//  4. Expand range_max by headroomFraction of the interval, capped at
//     the histogram's domain maximum.
func (h *Histogram) AutoRange() (rangeMin, rangeMax float64) {
	h.mu.Lock()
	bins := make([]float64, len(h.bins))
	for i, c := range h.bins {
		bins[i] = float64(c)
	}
	total := h.total
	lo, hi := h.lo, h.hi
	h.mu.Unlock()

	n := len(bins)
	if n == 0 || total == 0 {
		return lo, hi
	}

	sigma := 5 * float64(n) / 256
	filtered := dericheGaussian(bins, sigma)

	minBin := firstLocalMaximum(filtered)
	rangeMin = binValue(minBin, n, lo, hi)

	var cum float64
	maxBin := n - 1
	for i, c := range bins {
		cum += c
		if cum/float64(total) > cumulativeFraction {
			maxBin = i
			break
		}
	}
	rangeMax = binValue(maxBin, n, lo, hi)

	interval := rangeMax - rangeMin
	expanded := rangeMax + headroomFraction*interval
	if expanded > hi {
		expanded = hi
	}
	rangeMax = expanded

	return rangeMin, rangeMax
}

// binValue converts a bin index back into the histogram's value domain.
func binValue(bin, n int, lo, hi float64) float64 {
	if n <= 1 {
		return lo
	}
	return lo + (hi-lo)*float64(bin)/float64(n-1)
}

// firstLocalMaximum returns the index of the first bin whose value is
// greater than or equal to its left neighbor and strictly greater than
// its right neighbor, i.e. the first peak scanning from bin 0. If the
// curve is monotonically non-increasing, bin 0 is the (degenerate)
// first local maximum.
func firstLocalMaximum(v []float64) int {
	for i := 1; i < len(v)-1; i++ {
		if v[i] >= v[i-1] && v[i] > v[i+1] {
			return i
		}
	}
	return 0
}

// dericheGaussian applies a Deriche recursive approximation of a
// Gaussian low-pass filter with standard deviation sigma to v, returning
// a new slice of the same length. The Deriche filter is a pair of
// causal/anti-causal second-order IIR recursions combined to approximate
// a symmetric Gaussian kernel in O(n) time regardless of sigma.
func dericheGaussian(v []float64, sigma float64) []float64 {
	n := len(v)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if sigma <= 0 {
		copy(out, v)
		return out
	}

	// Deriche's second-order recursive Gaussian coefficients (order-2
	// approximation). alpha controls the filter's effective width.
	alpha := 1.695 / sigma
	ea := math.Exp(-alpha)
	ea2 := ea * ea
	k := (1 - ea) * (1 - ea) / (1 + 2*alpha*ea - ea2)

	a0, a1 := k, k*ea*(alpha-1)
	b1, b2 := 2*ea, -ea2

	// Causal (forward) pass.
	causal := make([]float64, n)
	var yp1, yp2, xp1 float64
	for i := 0; i < n; i++ {
		x := v[i]
		y := a0*x + a1*xp1 + b1*yp1 + b2*yp2
		causal[i] = y
		xp1 = x
		yp2, yp1 = yp1, y
	}

	// Anti-causal (backward) pass.
	a1b := k * ea * (alpha + 1)
	anticausal := make([]float64, n)
	var yn1, yn2, xn1 float64
	for i := n - 1; i >= 0; i-- {
		x := v[i]
		y := a1b*xn1 + b1*yn1 + b2*yn2
		anticausal[i] = y
		xn1 = x
		yn2, yn1 = yn1, y
	}

	floats.AddTo(out, causal, anticausal)
	return out
}
