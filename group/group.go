// Package group collects reassembled space packets into packet groups
// keyed by APID, per spec.md §4.6: a maximal run of packets whose
// sequence flags form a well-formed segmentation (First, Continuation*,
// Last) or a single Standalone packet.
package group

import (
	"io"
	"sort"

	"github.com/bmflynn/ccsds-rs/packet"
	"github.com/pkg/errors"
)

// PacketGroup is a run of packets sharing an APID that form one logical
// group under CCSDS segmentation rules.
type PacketGroup struct {
	APID        uint16
	Packets     []packet.Packet
	Complete    bool
	HaveMissing bool
}

// PacketSource is the interface the grouper pulls packets from. It is
// satisfied by anything that can hand back the extractor's per-frame
// Results one packet at a time; callers typically adapt *packet.Extractor
// with a small flattening wrapper, since the extractor yields zero or more
// packets per upstream frame while the grouper consumes one at a time.
type PacketSource interface {
	Next() (packet.Packet, error)
}

type apidState struct {
	open        *PacketGroup
	haveCounter bool
	lastCount   uint16
}

// Grouper groups an incoming packet stream by APID, per the state machine
// in spec.md §4.6.
type Grouper struct {
	upstream PacketSource
	states   map[uint16]*apidState
	pending  []PacketGroup
}

// NewGrouper constructs a Grouper pulling packets from upstream.
func NewGrouper(upstream PacketSource) *Grouper {
	return &Grouper{
		upstream: upstream,
		states:   make(map[uint16]*apidState),
	}
}

// Next returns the next packet group to close, in closing order. It
// returns io.EOF once upstream is exhausted and every open group has been
// flushed.
func (g *Grouper) Next() (PacketGroup, error) {
	for len(g.pending) == 0 {
		pkt, err := g.upstream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				g.flushAll()
				if len(g.pending) == 0 {
					return PacketGroup{}, io.EOF
				}
				break
			}
			return PacketGroup{}, err
		}
		g.consume(pkt)
	}

	pg := g.pending[0]
	g.pending = g.pending[1:]
	return pg, nil
}

func (g *Grouper) stateFor(apid uint16) *apidState {
	st, ok := g.states[apid]
	if !ok {
		st = &apidState{}
		g.states[apid] = st
	}
	return st
}

// consume feeds a single packet into its APID's grouping state machine,
// closing groups into g.pending as they complete or become invalid.
func (g *Grouper) consume(pkt packet.Packet) {
	apid := pkt.Header.APID()
	st := g.stateFor(apid)
	flags := pkt.Header.SequenceFlags()
	count := pkt.Header.SequenceCount()

	missing := st.haveCounter && count != (st.lastCount+1)&0x3FFF
	st.lastCount = count
	st.haveCounter = true

	if missing && st.open != nil {
		st.open.HaveMissing = true
		g.close(st)
	}

	switch flags {
	case packet.SeqFlagStandalone:
		if st.open != nil {
			// An in-progress segmented group with no Last packet is
			// incomplete; a Standalone packet cannot belong to it.
			g.close(st)
		}
		st.open = &PacketGroup{APID: apid}
		st.open.Packets = append(st.open.Packets, pkt)
		if missing {
			st.open.HaveMissing = true
		}
		st.open.Complete = !st.open.HaveMissing
		g.close(st)

	case packet.SeqFlagFirst:
		if st.open != nil {
			g.close(st)
		}
		st.open = &PacketGroup{APID: apid}
		st.open.Packets = append(st.open.Packets, pkt)
		if missing {
			st.open.HaveMissing = true
		}

	case packet.SeqFlagContinuation:
		if st.open == nil {
			// A continuation with nothing open is itself a protocol
			// violation; open a group marked HaveMissing for it, which
			// later Continuation and Last packets join.
			st.open = &PacketGroup{APID: apid, HaveMissing: true}
		}
		st.open.Packets = append(st.open.Packets, pkt)

	case packet.SeqFlagLast:
		if st.open == nil {
			st.open = &PacketGroup{APID: apid, HaveMissing: true}
		}
		st.open.Packets = append(st.open.Packets, pkt)
		st.open.Complete = !st.open.HaveMissing
		g.close(st)
	}
}

// close pushes st's open group onto the pending queue and clears it.
func (g *Grouper) close(st *apidState) {
	if st.open == nil {
		return
	}
	g.pending = append(g.pending, *st.open)
	st.open = nil
}

// flushAll closes every still-open group as incomplete once upstream is
// exhausted, in APID order so flush order is deterministic regardless of
// map iteration.
func (g *Grouper) flushAll() {
	apids := make([]uint16, 0, len(g.states))
	for apid := range g.states {
		apids = append(apids, apid)
	}
	sort.Slice(apids, func(i, j int) bool { return apids[i] < apids[j] })

	for _, apid := range apids {
		st := g.states[apid]
		if st.open != nil {
			st.open.Complete = false
			g.close(st)
		}
	}
}
