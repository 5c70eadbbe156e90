package packet

import (
	"io"

	"github.com/bmflynn/ccsds-rs/crc"
	"github.com/bmflynn/ccsds-rs/frame"
	"github.com/bmflynn/ccsds-rs/rs"
	"github.com/pkg/errors"
)

// DropReason explains why bytes were discarded while reassembling a VCID's
// packet stream, per spec.md §4.5.
type DropReason string

const (
	ReasonNone          DropReason = ""
	ReasonIntegrity     DropReason = "integrity"
	ReasonMissingFrames DropReason = "missing_frames"
	ReasonFHPMismatch   DropReason = "fhp_mismatch"
)

// Result is what the extractor reports for a single upstream frame: zero or
// more completed packets, plus whether and why in-progress bytes were
// dropped.
type Result struct {
	Packets []Packet
	Dropped bool
	Reason  DropReason
}

// FrameSource is the interface the extractor pulls parsed frames from. It
// is satisfied by *frame.Parser.
type FrameSource interface {
	Next() (frame.Frame, error)
}

// Config configures the packet extractor.
type Config struct {
	// VerifyCRC, when true, treats the last two bytes of each packet's
	// user data as a CRC-16/CCITT-FALSE checksum and populates
	// Packet.ChecksumOK accordingly. Missions that don't carry a packet
	// CRC should leave this false.
	VerifyCRC bool
}

type vcidKey struct {
	scid uint16
	vcid byte
}

// state is the per-VCID reassembly state described in spec.md §4.5. buffer
// holds whatever has been accumulated so far for the in-progress packet,
// whether that's a partial primary header or a partial data field; needed
// is only meaningful once neededKnown is true.
type state struct {
	buffer      []byte
	needed      int
	neededKnown bool
}

func (s *state) reset() {
	s.buffer = nil
	s.needed = 0
	s.neededKnown = false
}

// active reports whether a packet reassembly is in progress for this VCID,
// whether or not its full length is known yet.
func (s *state) active() bool {
	return len(s.buffer) > 0
}

// Extractor reassembles space packets from a stream of transfer frames, per
// the per-VCID state machine in spec.md §4.5.
type Extractor struct {
	cfg      Config
	upstream FrameSource
	states   map[vcidKey]*state
}

// NewExtractor constructs an Extractor pulling frames from upstream.
func NewExtractor(upstream FrameSource, cfg Config) *Extractor {
	return &Extractor{
		cfg:      cfg,
		upstream: upstream,
		states:   make(map[vcidKey]*state),
	}
}

// Next processes the next upstream frame and returns the packets it
// completed, if any, along with drop bookkeeping. It returns io.EOF once
// upstream is exhausted; a final io.EOF never discards a still-open
// in-progress buffer, since the spec gives no later frame over which to
// report it.
func (e *Extractor) Next() (Result, error) {
	fr, err := e.upstream.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, io.EOF
		}
		return Result{}, err
	}
	return e.process(fr), nil
}

func (e *Extractor) stateFor(fr frame.Frame) *state {
	key := vcidKey{scid: fr.Header.SCID(), vcid: fr.Header.VCID()}
	st, ok := e.states[key]
	if !ok {
		st = &state{}
		e.states[key] = st
	}
	return st
}

func (e *Extractor) process(fr frame.Frame) Result {
	st := e.stateFor(fr)
	var res Result

	// Step 1: untrustworthy FHP -- drop and skip the payload entirely.
	if fr.Integrity.Kind == rs.Uncorrectable || fr.Integrity.Kind == rs.Failed {
		if st.active() {
			res.Dropped = true
			res.Reason = ReasonIntegrity
		}
		st.reset()
		return res
	}

	// Step 2: a counter gap invalidates any in-progress packet. Processing
	// of this frame's own payload continues below.
	if fr.Missing > 0 {
		if st.active() {
			res.Dropped = true
			res.Reason = ReasonMissingFrames
		}
		st.reset()
	}

	payload := fr.Payload

	// Step 3: fill frames and frames with no packet start only ever
	// contribute to an already-in-progress packet, and only ever complete
	// that one packet -- no new packet can start in such a frame.
	if fr.Fill || fr.MPDU.HasNoStart() {
		if st.active() {
			consumed, pkt := e.feedOnce(st, payload)
			if pkt != nil {
				res.Packets = append(res.Packets, *pkt)
			}
			if consumed < len(payload) {
				res.Dropped = true
				res.Reason = ReasonFHPMismatch
			}
		}
		return res
	}

	p := int(fr.MPDU.FirstHeaderPointer())
	if p > len(payload) {
		// Malformed FHP: nothing in this frame can be trusted.
		st.reset()
		res.Dropped = true
		res.Reason = ReasonFHPMismatch
		return res
	}

	// Step 4a: finish off any packet already in progress using only the
	// bytes before the new packet's start; any bytes left over once it
	// completes are a protocol violation.
	if st.active() {
		consumed, pkt := e.feedOnce(st, payload[:p])
		if pkt != nil {
			res.Packets = append(res.Packets, *pkt)
		}
		if consumed < p {
			res.Dropped = true
			res.Reason = ReasonFHPMismatch
		}
		if st.active() {
			// The in-progress packet did not complete before the FHP, so
			// its length disagrees with the FHP: drop it.
			st.reset()
			res.Dropped = true
			res.Reason = ReasonFHPMismatch
		}
	}

	// Step 4b: from offset p onward, iteratively parse fresh packets.
	off := p
	for off < len(payload) {
		consumed, pkt := e.feedOnce(st, payload[off:])
		if pkt != nil {
			res.Packets = append(res.Packets, *pkt)
		}
		off += consumed
	}

	return res
}

// feedOnce advances one in-progress packet's reassembly using as much of
// data as it needs, completing the primary header first if one is still
// partial. It returns the number of bytes consumed and, if the packet
// completed, the finished Packet.
func (e *Extractor) feedOnce(st *state, data []byte) (int, *Packet) {
	consumed := 0

	if !st.neededKnown {
		have := len(st.buffer)
		need := HeaderLen - have
		if len(data) < need {
			st.buffer = append(st.buffer, data...)
			return len(data), nil
		}
		st.buffer = append(st.buffer, data[:need]...)
		consumed += need
		data = data[need:]

		var hdr PrimaryHeader
		copy(hdr[:], st.buffer)
		st.needed = hdr.TotalLen() - HeaderLen
		st.neededKnown = true
	}

	take := st.needed
	if take > len(data) {
		take = len(data)
	}
	st.buffer = append(st.buffer, data[:take]...)
	st.needed -= take
	consumed += take

	if st.needed == 0 {
		pkt := e.finish(st)
		return consumed, &pkt
	}
	return consumed, nil
}

// finish emits the completed packet in st.buffer and clears the state, per
// invariant (i): after an emit, buffer is empty and needed is zero.
func (e *Extractor) finish(st *state) Packet {
	var hdr PrimaryHeader
	copy(hdr[:], st.buffer[:HeaderLen])
	userData := append([]byte(nil), st.buffer[HeaderLen:]...)

	pkt := Packet{Header: hdr, UserData: userData}
	if e.cfg.VerifyCRC {
		pkt.ChecksumOK = crc.VerifyFECF(append(append([]byte{}, hdr[:]...), userData...))
	}

	st.reset()
	return pkt
}
