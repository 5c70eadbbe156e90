package rs

import (
	"io"
	"testing"
)

type fakeBlockSource struct {
	blocks [][]byte
	i      int
}

func (f *fakeBlockSource) Next() ([]byte, error) {
	if f.i >= len(f.blocks) {
		return nil, io.EOF
	}
	b := f.blocks[f.i]
	f.i++
	return b, nil
}

func TestStageSkippedPreservesOrder(t *testing.T) {
	const interleave = 1
	blocks := make([][]byte, 20)
	for i := range blocks {
		b := make([]byte, N*interleave)
		b[0] = byte(i)
		blocks[i] = b
	}

	for _, threads := range []int{1, 2, 4, 8} {
		src := &fakeBlockSource{blocks: blocks}
		stage := NewStage(src, Config{
			Interleave: interleave,
			Detection:  false,
			NumThreads: threads,
			BufferSize: 4,
		})

		for i := range blocks {
			block, integrity, err := stage.Next()
			if err != nil {
				t.Fatalf("threads=%d: unexpected error at %d: %v", threads, i, err)
			}
			if integrity.Kind != Skipped {
				t.Fatalf("threads=%d: expected Skipped, got %v", threads, integrity)
			}
			if block[0] != byte(i) {
				t.Fatalf("threads=%d: order violated at index %d: got tag %d", threads, i, block[0])
			}
		}
		if _, _, err := stage.Next(); err != io.EOF {
			t.Fatalf("threads=%d: expected io.EOF, got %v", threads, err)
		}
		if err := stage.Close(); err != nil {
			t.Fatalf("threads=%d: Close: %v", threads, err)
		}
	}
}

func TestStageCorrectsInterleavedBlock(t *testing.T) {
	const interleave = 4
	codewords := make([][]byte, interleave)
	for i := range codewords {
		codewords[i] = randomCodewordBytes(int64(i))
		codewords[i][5] ^= 0xFF // one symbol error per codeword
	}
	block := Interleave(codewords)

	src := &fakeBlockSource{blocks: [][]byte{block}}
	stage := NewStage(src, Config{
		Interleave: interleave,
		Correction: true,
		Detection:  true,
		NumThreads: 2,
		BufferSize: 2,
	})
	defer stage.Close()

	decoded, integrity, err := stage.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if integrity.Kind != Corrected || integrity.N != interleave {
		t.Fatalf("expected Corrected(%d), got %v", interleave, integrity)
	}
	if len(decoded) != K*interleave {
		t.Fatalf("expected stripped length %d, got %d", K*interleave, len(decoded))
	}
}

func randomCodewordBytes(seed int64) []byte {
	data := make([]byte, K)
	for i := range data {
		data[i] = byte((seed + 1) * int64(i+1))
	}
	return encodeForTest(data)
}

func TestStageClosesWithoutDeadlock(t *testing.T) {
	blocks := make([][]byte, 100)
	for i := range blocks {
		blocks[i] = make([]byte, N)
	}
	src := &fakeBlockSource{blocks: blocks}
	stage := NewStage(src, Config{Interleave: 1, Detection: false, NumThreads: 4, BufferSize: 2})

	// Consume only a few, then close: the worker pool must shut down
	// without blocking on an unconsumed pending channel.
	for i := 0; i < 3; i++ {
		if _, _, err := stage.Next(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := stage.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
