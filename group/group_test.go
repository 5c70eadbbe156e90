package group

import (
	"io"
	"testing"

	"github.com/bmflynn/ccsds-rs/packet"
)

type fakePacketSource struct {
	packets []packet.Packet
	i       int
}

func (f *fakePacketSource) push(apid uint16, flags byte, seqCount uint16) {
	var hdr packet.PrimaryHeader
	word0 := apid & 0x07FF
	hdr[0], hdr[1] = byte(word0>>8), byte(word0)
	word1 := uint16(flags&0x3)<<14 | (seqCount & 0x3FFF)
	hdr[2], hdr[3] = byte(word1>>8), byte(word1)
	f.packets = append(f.packets, packet.Packet{Header: hdr})
}

func (f *fakePacketSource) Next() (packet.Packet, error) {
	if f.i >= len(f.packets) {
		return packet.Packet{}, io.EOF
	}
	p := f.packets[f.i]
	f.i++
	return p, nil
}

func drainAll(t *testing.T, g *Grouper) []PacketGroup {
	t.Helper()
	var out []PacketGroup
	for {
		pg, err := g.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, pg)
	}
}

func TestGrouperStandaloneIsSingletonComplete(t *testing.T) {
	src := &fakePacketSource{}
	src.push(1, packet.SeqFlagStandalone, 0)

	groups := drainAll(t, NewGrouper(src))
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if !groups[0].Complete || groups[0].HaveMissing {
		t.Fatalf("expected a complete standalone group, got %+v", groups[0])
	}
	if len(groups[0].Packets) != 1 {
		t.Fatalf("expected 1 packet in group, got %d", len(groups[0].Packets))
	}
}

func TestGrouperFirstContinuationLastCompletes(t *testing.T) {
	src := &fakePacketSource{}
	src.push(2, packet.SeqFlagFirst, 0)
	src.push(2, packet.SeqFlagContinuation, 1)
	src.push(2, packet.SeqFlagContinuation, 2)
	src.push(2, packet.SeqFlagLast, 3)

	groups := drainAll(t, NewGrouper(src))
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	pg := groups[0]
	if !pg.Complete || pg.HaveMissing {
		t.Fatalf("expected complete group, got %+v", pg)
	}
	if len(pg.Packets) != 4 {
		t.Fatalf("expected 4 packets, got %d", len(pg.Packets))
	}
}

func TestGrouperSequenceGapMarksMissingAndCloses(t *testing.T) {
	src := &fakePacketSource{}
	src.push(3, packet.SeqFlagFirst, 0)
	src.push(3, packet.SeqFlagContinuation, 1)
	// Gap: jumps from 1 to 5 instead of 2.
	src.push(3, packet.SeqFlagContinuation, 5)
	src.push(3, packet.SeqFlagLast, 6)

	groups := drainAll(t, NewGrouper(src))
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups (one closed by the gap), got %d", len(groups))
	}
	if !groups[0].HaveMissing || groups[0].Complete {
		t.Fatalf("expected first group incomplete due to missing, got %+v", groups[0])
	}
}

func TestGrouperIndependentAPIDs(t *testing.T) {
	src := &fakePacketSource{}
	src.push(10, packet.SeqFlagStandalone, 0)
	src.push(20, packet.SeqFlagStandalone, 0)

	groups := drainAll(t, NewGrouper(src))
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	apids := map[uint16]bool{groups[0].APID: true, groups[1].APID: true}
	if !apids[10] || !apids[20] {
		t.Fatalf("expected groups for APID 10 and 20, got %+v", groups)
	}
}

func TestGrouperFlushesIncompleteGroupAtEOF(t *testing.T) {
	src := &fakePacketSource{}
	src.push(4, packet.SeqFlagFirst, 0)
	src.push(4, packet.SeqFlagContinuation, 1)
	// Stream ends with no Last packet.

	groups := drainAll(t, NewGrouper(src))
	if len(groups) != 1 {
		t.Fatalf("expected 1 flushed group, got %d", len(groups))
	}
	if groups[0].Complete {
		t.Fatalf("expected incomplete group at EOF flush, got %+v", groups[0])
	}
	if len(groups[0].Packets) != 2 {
		t.Fatalf("expected 2 packets retained, got %d", len(groups[0].Packets))
	}
}

func TestGrouperWraparoundSequenceCount(t *testing.T) {
	src := &fakePacketSource{}
	src.push(5, packet.SeqFlagFirst, 0x3FFF)
	src.push(5, packet.SeqFlagLast, 0)

	groups := drainAll(t, NewGrouper(src))
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if !groups[0].Complete || groups[0].HaveMissing {
		t.Fatalf("expected wraparound sequence count to be treated as contiguous, got %+v", groups[0])
	}
}
