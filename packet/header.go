// Package packet reassembles CCSDS space packets out of a stream of
// transfer frames, per spec.md §4.5: the hardest single piece of the
// pipeline, since a packet's bytes may be scattered across several
// frames and frames may be lost or corrupted mid-packet.
package packet

import "encoding/binary"

// HeaderLen is the fixed space-packet primary header size.
const HeaderLen = 6

// PrimaryHeader is the 6-byte CCSDS space packet primary header, accessed
// the same rawHeader way as frame.VCDUHeader.
type PrimaryHeader [HeaderLen]byte

// Version returns the 3-bit packet version number.
func (h PrimaryHeader) Version() byte {
	return (h[0] >> 5) & 0x7
}

// Type reports the packet type flag (0 = telemetry, 1 = command).
func (h PrimaryHeader) Type() byte {
	return (h[0] >> 4) & 0x1
}

// SecHdrFlag reports whether a secondary header is present.
func (h PrimaryHeader) SecHdrFlag() bool {
	return h[0]&0x08 != 0
}

// APID returns the 11-bit application process identifier.
func (h PrimaryHeader) APID() uint16 {
	word := binary.BigEndian.Uint16(h[0:2])
	return word & 0x07FF
}

// SequenceFlags returns the 2-bit segmentation flags: 01=first, 00=cont,
// 10=last, 11=standalone.
func (h PrimaryHeader) SequenceFlags() byte {
	return (h[2] >> 6) & 0x3
}

// SequenceCount returns the 14-bit packet sequence count.
func (h PrimaryHeader) SequenceCount() uint16 {
	word := binary.BigEndian.Uint16(h[2:4])
	return word & 0x3FFF
}

// DataLenMinus1 returns the raw len_minus1 field: the packet data field
// length (everything after the primary header) minus one.
func (h PrimaryHeader) DataLenMinus1() uint16 {
	return binary.BigEndian.Uint16(h[4:6])
}

// TotalLen returns the total packet length in bytes, header included:
// 7 + len_minus1.
func (h PrimaryHeader) TotalLen() int {
	return 7 + int(h.DataLenMinus1())
}

// Sequence flag values, per spec.md §4.6.
const (
	SeqFlagContinuation = 0x0
	SeqFlagFirst        = 0x1
	SeqFlagLast         = 0x2
	SeqFlagStandalone   = 0x3
)

// Packet is a complete, reassembled space packet.
type Packet struct {
	Header PrimaryHeader
	// UserData is the packet data field excluding the primary header.
	UserData []byte
	// ChecksumOK is only meaningful when the extractor was configured
	// with VerifyCRC; it reports whether the packet's trailing CRC-16
	// matched.
	ChecksumOK bool
}
