package frame

import (
	"io"

	"github.com/bmflynn/ccsds-rs/rs"
	"github.com/pkg/errors"
)

// Frame is a single parsed transfer frame, per spec.md's Frame entity.
type Frame struct {
	Header     VCDUHeader
	Integrity  rs.Integrity
	Missing    uint32
	InsertZone []byte
	MPDU       MPDUHeader
	Payload    []byte // M_PDU payload, i.e. the data field after the FHP
	Trailer    []byte
	Fill       bool
}

// Config configures the frame parser, per spec.md §6.
type Config struct {
	IzoneLength   int
	TrailerLength int
}

// BlockSource is the interface the frame parser pulls decoded blocks from.
// It is satisfied by *rs.Stage.
type BlockSource interface {
	Next() ([]byte, rs.Integrity, error)
}

type vcidKey struct {
	scid uint16
	vcid byte
}

type vcidState struct {
	lastCounter uint32
	seen        bool
}

// Parser parses successive blocks into transfer frames, tracking each
// (SCID, VCID)'s frame counter to detect gaps, per spec.md §4.4 and §9.
type Parser struct {
	cfg      Config
	upstream BlockSource
	states   map[vcidKey]*vcidState
}

// NewParser constructs a Parser pulling blocks from upstream.
func NewParser(upstream BlockSource, cfg Config) *Parser {
	return &Parser{
		cfg:      cfg,
		upstream: upstream,
		states:   make(map[vcidKey]*vcidState),
	}
}

// Next parses and returns the next frame, or io.EOF when upstream is
// exhausted.
func (p *Parser) Next() (Frame, error) {
	block, integrity, err := p.upstream.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}

	minLen := HeaderLen + p.cfg.IzoneLength + MPDUHeaderLen + p.cfg.TrailerLength
	if len(block) < minLen {
		return Frame{}, errors.Errorf("frame: block of %d bytes is shorter than minimum frame size %d", len(block), minLen)
	}

	var f Frame
	copy(f.Header[:], block[:HeaderLen])
	f.Integrity = integrity

	off := HeaderLen
	if p.cfg.IzoneLength > 0 {
		f.InsertZone = block[off : off+p.cfg.IzoneLength]
		off += p.cfg.IzoneLength
	}

	dataField := block[off : len(block)-p.cfg.TrailerLength]
	if p.cfg.TrailerLength > 0 {
		f.Trailer = block[len(block)-p.cfg.TrailerLength:]
	}

	copy(f.MPDU[:], dataField[:MPDUHeaderLen])
	f.Payload = dataField[MPDUHeaderLen:]

	f.Missing = p.trackCounter(f.Header)
	f.Fill = f.Header.VCID() == IdleVCID || f.MPDU.IsIdle()

	return f, nil
}

// trackCounter updates the per-VCID counter state and returns the number of
// missing frames since the last frame seen for this (SCID, VCID), per
// spec.md's "missing = (counter - last - 1) mod 2^24" rule. The first frame
// observed for a VCID always reports zero missing frames.
func (p *Parser) trackCounter(h VCDUHeader) uint32 {
	key := vcidKey{scid: h.SCID(), vcid: h.VCID()}
	st, ok := p.states[key]
	if !ok {
		st = &vcidState{}
		p.states[key] = st
	}

	counter := h.Counter()
	var missing uint32
	if st.seen {
		const mod = 1 << 24
		missing = (counter - st.lastCounter - 1 + mod) % mod
	}
	st.lastCounter = counter
	st.seen = true
	return missing
}
