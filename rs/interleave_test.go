package rs

import (
	"bytes"
	"testing"
)

func TestInterleaveRoundTrip(t *testing.T) {
	const interleave = 4
	block := make([]byte, N*interleave)
	for i := range block {
		block[i] = byte(i)
	}

	codewords, err := Deinterleave(block, interleave, 0)
	if err != nil {
		t.Fatalf("Deinterleave: %v", err)
	}
	if len(codewords) != interleave {
		t.Fatalf("expected %d codewords, got %d", interleave, len(codewords))
	}
	for _, cw := range codewords {
		if len(cw) != N {
			t.Fatalf("expected codeword length %d, got %d", N, len(cw))
		}
	}

	back := Interleave(codewords)
	if !bytes.Equal(back, block) {
		t.Fatalf("interleave round trip mismatch")
	}
}

func TestDeinterleaveWrongLength(t *testing.T) {
	if _, err := Deinterleave(make([]byte, 10), 4, 0); err == nil {
		t.Fatalf("expected error for mismatched block length")
	}
}

func TestValidInterleave(t *testing.T) {
	for _, d := range []int{1, 2, 3, 4, 5, 8} {
		if !ValidInterleave(d) {
			t.Fatalf("expected %d to be valid", d)
		}
	}
	for _, d := range []int{0, 6, 7, 9} {
		if ValidInterleave(d) {
			t.Fatalf("expected %d to be invalid", d)
		}
	}
}
