// Package framesync implements the CCSDS TM attached sync marker (ASM)
// stream synchronizer: spec.md §4.1. It is the pipeline's entry stage,
// turning a raw byte stream into successive fixed-length blocks.
package framesync

import (
	"encoding/binary"
	"io"

	"github.com/bmflynn/ccsds-rs/iosrc"
	"github.com/pkg/errors"
)

// DefaultASM is the standard 32-bit CCSDS attached sync marker.
var DefaultASM = []byte{0x1A, 0xCF, 0xFC, 0x1D}

// Config configures the synchronizer, per spec.md §6.
type Config struct {
	// BlockLen is the number of payload bytes following each ASM.
	BlockLen int
	// ASM is the sync marker pattern to search for. Defaults to
	// DefaultASM.
	ASM []byte
	// AllowComplement accepts a bitwise-complemented ASM match, to
	// tolerate inverted I/Q. The zero value (false) matches only the ASM
	// itself; the complement is accepted only when this is set to true.
	AllowComplement bool
}

// Stage synchronizes a raw byte stream on its ASM and emits the fixed-length
// blocks that follow each occurrence, per spec.md's searching/locked state
// machine.
type Stage struct {
	blockLen        int
	asmBits         int
	asmVal          uint64
	asmComp         uint64
	mask            uint64
	allowComplement bool

	bits *bitReader

	locked       bool
	searchWindow uint64
	searchBits   int
	pendingErr   error
}

// NewStage constructs a Stage reading from src.
func NewStage(src iosrc.Source, cfg Config) (*Stage, error) {
	if cfg.BlockLen <= 0 {
		return nil, errors.New("framesync: BlockLen must be > 0")
	}
	asm := cfg.ASM
	if len(asm) == 0 {
		asm = DefaultASM
	}
	if len(asm)*8 > 64 {
		return nil, errors.New("framesync: ASM longer than 8 bytes is not supported")
	}

	var val uint64
	for _, b := range asm {
		val = (val << 8) | uint64(b)
	}
	asmBits := len(asm) * 8
	mask := uint64(1)<<uint(asmBits) - 1

	return &Stage{
		blockLen:        cfg.BlockLen,
		asmBits:         asmBits,
		asmVal:          val & mask,
		asmComp:         (^val) & mask,
		mask:            mask,
		allowComplement: cfg.AllowComplement,
		bits:            &bitReader{src: src},
	}, nil
}

// Next returns the next block of BlockLen bytes following the next ASM
// occurrence, or io.EOF when the underlying source is exhausted. A partial
// block at end of stream is discarded, per spec.md's edge-case contract.
func (s *Stage) Next() ([]byte, error) {
	if s.pendingErr != nil {
		err := s.pendingErr
		s.pendingErr = nil
		return nil, err
	}

	if !s.locked {
		if err := s.search(); err != nil {
			return nil, err
		}
		s.locked = true
	}

	block, err := s.readBlock()
	if err != nil {
		// Partial block at EOF: discard it and surface EOF.
		s.locked = false
		return nil, err
	}

	window, err := s.readWindow(s.asmBits)
	if err != nil {
		// Block is valid and complete; the stream simply ended while
		// probing for the next ASM. Emit the block now, surface EOF
		// next call.
		s.locked = false
		s.pendingErr = err
		return block, nil
	}

	if s.matches(window) {
		s.locked = true
		return block, nil
	}

	// Fast-path verify failed: re-enter searching, but don't discard the
	// bits we already consumed -- they seed the bit-shift search window.
	s.locked = false
	s.searchWindow = window
	s.searchBits = s.asmBits
	return block, nil
}

func (s *Stage) matches(window uint64) bool {
	if window == s.asmVal {
		return true
	}
	return s.allowComplement && window == s.asmComp
}

// search scans bit by bit until the rolling window matches the ASM or its
// complement, honoring any window primed by a failed fast-path check.
func (s *Stage) search() error {
	window := s.searchWindow
	nbits := s.searchBits
	s.searchWindow = 0
	s.searchBits = 0

	for {
		if nbits >= s.asmBits && s.matches(window&s.mask) {
			return nil
		}
		bit, err := s.bits.readBit()
		if err != nil {
			return err
		}
		window = ((window << 1) | uint64(bit)) & s.mask
		if nbits < s.asmBits {
			nbits++
		}
	}
}

// readBlock reads exactly blockLen bytes at the current bit alignment.
func (s *Stage) readBlock() ([]byte, error) {
	out := make([]byte, s.blockLen)
	for i := range out {
		b, err := s.readByte()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (s *Stage) readByte() (byte, error) {
	var b byte
	for i := 0; i < 8; i++ {
		bit, err := s.bits.readBit()
		if err != nil {
			return 0, err
		}
		b = (b << 1) | bit
	}
	return b, nil
}

// readWindow reads exactly n fresh bits (n <= 64) and returns them
// right-aligned in a uint64.
func (s *Stage) readWindow(n int) (uint64, error) {
	var w uint64
	for i := 0; i < n; i++ {
		bit, err := s.bits.readBit()
		if err != nil {
			return 0, err
		}
		w = (w << 1) | uint64(bit)
	}
	return w, nil
}

// ASMUint32 decodes the default 32-bit ASM as a big-endian uint32, a
// convenience for callers comparing against the CCSDS constant directly.
func ASMUint32(asm []byte) uint32 {
	if len(asm) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(asm)
}

// bitReader pulls single bits, MSB first, from an iosrc.Source, buffering
// the partial byte between calls. This is what lets the synchronizer
// recover from a byte-misaligned first lock per spec.md §4.1.
type bitReader struct {
	src   iosrc.Source
	cur   byte
	nbits uint8
}

func (r *bitReader) readBit() (byte, error) {
	if r.nbits == 0 {
		b, err := r.src.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, io.EOF
			}
			return 0, err
		}
		r.cur = b
		r.nbits = 8
	}
	bit := (r.cur >> 7) & 1
	r.cur <<= 1
	r.nbits--
	return bit, nil
}
