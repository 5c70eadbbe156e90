package group

import (
	"github.com/bmflynn/ccsds-rs/packet"
)

// resultSource is the narrow interface an Extractor satisfies: it yields
// zero or more packets per call, since a single frame can complete several
// packets or none.
type resultSource interface {
	Next() (packet.Result, error)
}

// FlattenExtractor adapts an Extractor's per-frame Results into the
// one-packet-at-a-time PacketSource the Grouper expects.
type FlattenExtractor struct {
	upstream resultSource
	pending  []packet.Packet
}

// NewFlattenExtractor wraps upstream so it can be used as a PacketSource.
func NewFlattenExtractor(upstream resultSource) *FlattenExtractor {
	return &FlattenExtractor{upstream: upstream}
}

// Next returns the next packet in stream order, pulling and flattening
// further extractor results as needed.
func (f *FlattenExtractor) Next() (packet.Packet, error) {
	for len(f.pending) == 0 {
		res, err := f.upstream.Next()
		if err != nil {
			return packet.Packet{}, err
		}
		f.pending = res.Packets
	}
	pkt := f.pending[0]
	f.pending = f.pending[1:]
	return pkt, nil
}
