/*
DESCRIPTION
  downsample_test.go tests Box.Finalize and Downsample: the running-sum
  to mean conversion, and the boundary behavior for trailing partial
  boxes on an axis not evenly divisible by the downsample factor.

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

import "testing"

func TestBoxFinalize(t *testing.T) {
	tests := []struct {
		name string
		in   Box
		want []float64
	}{
		{
			name: "already final box is returned unchanged",
			in:   Box{SX: 2, SY: 1, SZ: 1, Data: []float64{3, 4}},
			want: []float64{3, 4},
		},
		{
			name: "running sums divide by their counts",
			in:   Box{SX: 2, SY: 1, SZ: 1, Data: []float64{20, 9}, Counts: []int{4, 3}},
			want: []float64{5, 3},
		},
		{
			name: "a voxel with zero count stays zero",
			in:   Box{SX: 2, SY: 1, SZ: 1, Data: []float64{10, 0}, Counts: []int{2, 0}},
			want: []float64{5, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Finalize()
			for i, v := range tt.want {
				if got.Data[i] != v {
					t.Errorf("Finalize().Data[%d] = %v, want %v", i, got.Data[i], v)
				}
			}
		})
	}
}

func TestDownsampleEvenFactor(t *testing.T) {
	// A 4x4x1 box of all 8s, downsampled 2x2, should give four 8s.
	data := make([]float64, 16)
	for i := range data {
		data[i] = 8
	}
	src := Box{SX: 4, SY: 4, SZ: 1, Data: data}

	out := Downsample(src, Factor3{X: 2, Y: 2, Z: 1}, 2, 2, 1, true)
	if out.SX != 2 || out.SY != 2 || out.SZ != 1 {
		t.Fatalf("Downsample size = (%d,%d,%d), want (2,2,1)", out.SX, out.SY, out.SZ)
	}
	for i, v := range out.Data {
		if v != 8 {
			t.Errorf("out.Data[%d] = %v, want 8", i, v)
		}
	}
}

func TestDownsamplePartialTrailingBox(t *testing.T) {
	// SX=3 with factor 2 gives dstW=2: the first destination voxel
	// averages 2 contributors, the second (trailing, partial) only 1.
	src := Box{SX: 3, SY: 1, SZ: 1, Data: []float64{10, 20, 100}}

	out := Downsample(src, Factor3{X: 2, Y: 1, Z: 1}, 2, 1, 1, true)
	if out.Data[0] != 15 {
		t.Errorf("out.Data[0] = %v, want 15 (mean of 10,20)", out.Data[0])
	}
	if out.Data[1] != 100 {
		t.Errorf("out.Data[1] = %v, want 100 (lone trailing contributor), not diluted by the nominal factor", out.Data[1])
	}
}

func TestDownsampleIntegerRounding(t *testing.T) {
	src := Box{SX: 2, SY: 1, SZ: 1, Data: []float64{1, 2}} // mean 1.5, ties to even -> 2
	out := Downsample(src, Factor3{X: 2, Y: 1, Z: 1}, 1, 1, 1, false)
	if out.Data[0] != 2 {
		t.Errorf("out.Data[0] = %v, want 2 (round-half-to-even of 1.5)", out.Data[0])
	}
}
