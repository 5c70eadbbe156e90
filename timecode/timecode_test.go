package timecode

import (
	"testing"
	"time"
)

func TestDecodeCDSBasic(t *testing.T) {
	// 2 day bytes = 1, 4 ms bytes = 0, no sub-millis.
	data := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x00}
	e, err := DecodeCDS(data, 2, 0)
	if err != nil {
		t.Fatalf("DecodeCDS: %v", err)
	}
	want := 24 * time.Hour
	if e.Since != want {
		t.Fatalf("Since = %v, want %v", e.Since, want)
	}
}

func TestDecodeCDSWithMicroseconds(t *testing.T) {
	// day=0, ms=500, us=250
	data := []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0xF4, 0x00, 0xFA}
	e, err := DecodeCDS(data, 2, 2)
	if err != nil {
		t.Fatalf("DecodeCDS: %v", err)
	}
	want := 500*time.Millisecond + 250*time.Microsecond
	if e.Since != want {
		t.Fatalf("Since = %v, want %v", e.Since, want)
	}
}

func TestDecodeCDSWrongLength(t *testing.T) {
	if _, err := DecodeCDS([]byte{0x00}, 2, 0); err == nil {
		t.Fatalf("expected error for short CDS data")
	}
}

func TestDecodeCUCDefaultFineMult(t *testing.T) {
	// coarse=1 second, fine=0x80 (half of 256, with 1 fine byte -> 0.5s)
	data := []byte{0x00, 0x00, 0x00, 0x01, 0x80}
	e, err := DecodeCUC(data, 4, 1, 0)
	if err != nil {
		t.Fatalf("DecodeCUC: %v", err)
	}
	want := time.Second + 500*time.Millisecond
	if e.Since != want {
		t.Fatalf("Since = %v, want %v", e.Since, want)
	}
}

func TestDecodeCUCNoFineBytes(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x0A}
	e, err := DecodeCUC(data, 4, 0, 0)
	if err != nil {
		t.Fatalf("DecodeCUC: %v", err)
	}
	if e.Since != 10*time.Second {
		t.Fatalf("Since = %v, want 10s", e.Since)
	}
}

func TestDecodeEOS(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x0A, 0x00, 0x05}
	e, err := DecodeEOS(data)
	if err != nil {
		t.Fatalf("DecodeEOS: %v", err)
	}
	want := 2*time.Second + 10*time.Millisecond + 5*time.Microsecond
	if e.Since != want {
		t.Fatalf("Since = %v, want %v", e.Since, want)
	}
}

func TestDecodeEOSWrongLength(t *testing.T) {
	if _, err := DecodeEOS([]byte{0x00, 0x01}); err == nil {
		t.Fatalf("expected error for short EOS data")
	}
}

func TestDecodeJPSS(t *testing.T) {
	data := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	e, err := DecodeJPSS(data)
	if err != nil {
		t.Fatalf("DecodeJPSS: %v", err)
	}
	if e.Since != 24*time.Hour {
		t.Fatalf("Since = %v, want 24h", e.Since)
	}
}

func TestEpochTAIMatchesCCSDSEpochOffset(t *testing.T) {
	e := Epoch{Since: 0}
	if !e.TAI().Equal(ccsdsEpoch) {
		t.Fatalf("TAI() = %v, want %v", e.TAI(), ccsdsEpoch)
	}
}

func TestEpochUTCAppliesLeapSeconds(t *testing.T) {
	// An instant in 2020 should be offset from TAI by 37s.
	target := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	since := target.Sub(ccsdsEpoch)
	e := Epoch{Since: since}

	got := e.UTC()
	wantOffset := 37 * time.Second
	if diff := target.Sub(got); diff != wantOffset {
		t.Fatalf("UTC() offset from nominal target = %v, want %v", diff, wantOffset)
	}
}

func TestLeapSecondsBeforeEraIsZero(t *testing.T) {
	pre1972 := time.Date(1960, time.January, 1, 0, 0, 0, 0, time.UTC)
	if off := leapSecondsAt(pre1972); off != 0 {
		t.Fatalf("leapSecondsAt(pre-1972) = %v, want 0", off)
	}
}
