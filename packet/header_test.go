package packet

import "testing"

func TestPrimaryHeaderAccessors(t *testing.T) {
	var h PrimaryHeader
	// version=0b001, type=1, sec_hdr=1, apid=0x123
	h[0] = 0b00111000 | byte(0x123>>8)
	h[1] = byte(0x123 & 0xFF)
	// seq_flags=0b11, seq_count=0x2345 & 0x3FFF
	seqWord := uint16(0b11)<<14 | (0x2345 & 0x3FFF)
	h[2] = byte(seqWord >> 8)
	h[3] = byte(seqWord)
	h[4], h[5] = 0x00, 0x0A // len_minus1 = 10

	if got := h.Version(); got != 0b001 {
		t.Fatalf("Version() = %b, want 001", got)
	}
	if got := h.Type(); got != 1 {
		t.Fatalf("Type() = %d, want 1", got)
	}
	if !h.SecHdrFlag() {
		t.Fatalf("SecHdrFlag() = false, want true")
	}
	if got := h.APID(); got != 0x123 {
		t.Fatalf("APID() = %#x, want 0x123", got)
	}
	if got := h.SequenceFlags(); got != 0b11 {
		t.Fatalf("SequenceFlags() = %b, want 11", got)
	}
	if got := h.SequenceCount(); got != 0x2345&0x3FFF {
		t.Fatalf("SequenceCount() = %#x, want %#x", got, 0x2345&0x3FFF)
	}
	if got := h.DataLenMinus1(); got != 10 {
		t.Fatalf("DataLenMinus1() = %d, want 10", got)
	}
	if got := h.TotalLen(); got != 17 {
		t.Fatalf("TotalLen() = %d, want 17", got)
	}
}

func TestPrimaryHeaderZeroValue(t *testing.T) {
	var h PrimaryHeader
	if h.Version() != 0 || h.Type() != 0 || h.SecHdrFlag() {
		t.Fatalf("expected all-zero header to decode as zero/false")
	}
	if h.TotalLen() != 7 {
		t.Fatalf("TotalLen() = %d, want 7 for len_minus1=0", h.TotalLen())
	}
}
