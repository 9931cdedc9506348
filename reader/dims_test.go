/*
DESCRIPTION
  dims_test.go tests Index5D/Size5D arithmetic and the
  FlatIndex/Unflatten traversal-order pair every block cursor in this
  repository is built on.

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

import "testing"

func TestFlatIndexUnflattenRoundTrip(t *testing.T) {
	counts := Size5D{X: 3, Y: 2, Z: 2, C: 1, T: 1}
	seq := DefaultSequence
	n := counts.Volume()
	for flat := uint64(0); flat < n; flat++ {
		idx := Unflatten(flat, counts, seq)
		if got := FlatIndex(idx, counts, seq); got != flat {
			t.Errorf("FlatIndex(Unflatten(%d)) = %d, want %d", flat, got, flat)
		}
	}
}

func TestCeilDiv(t *testing.T) {
	tests := []struct {
		size, block Size5D
		want        Size5D
	}{
		{Size5D{X: 8}, Size5D{X: 4}, Size5D{X: 2}},
		{Size5D{X: 9}, Size5D{X: 4}, Size5D{X: 3}},
		{Size5D{X: 1}, Size5D{X: 4}, Size5D{X: 1}},
	}
	for _, tt := range tests {
		got := tt.size.CeilDiv(tt.block)
		if got.X != tt.want.X {
			t.Errorf("CeilDiv(%v, %v).X = %d, want %d", tt.size, tt.block, got.X, tt.want.X)
		}
	}
}

func TestWeightsOrderMatchesSequence(t *testing.T) {
	size := Size5D{X: 3, Y: 2, Z: 1, C: 1, T: 1}
	w := DimensionSequence{DimY, DimX, DimZ, DimC, DimT}.Weights(size)
	// Y varies fastest here, so its weight is 1 and X's is size.Y.
	if w[DimY] != 1 {
		t.Errorf("w[DimY] = %d, want 1", w[DimY])
	}
	if w[DimX] != size.Y {
		t.Errorf("w[DimX] = %d, want %d", w[DimX], size.Y)
	}
}

func TestDimensionSequenceValidateRejectsDuplicates(t *testing.T) {
	seq := DimensionSequence{DimX, DimX, DimZ, DimC, DimT}
	if err := seq.Validate(); err == nil {
		t.Error("Validate on a sequence with a repeated dimension = nil error, want error")
	}
}

func TestSatSubClampsToZero(t *testing.T) {
	a := Index5D{X: 1}
	b := Index5D{X: 3}
	got := a.SatSub(b)
	if got.X != 0 {
		t.Errorf("SatSub underflow = %d, want 0", got.X)
	}
}
