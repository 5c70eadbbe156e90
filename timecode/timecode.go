// Package timecode decodes the CCSDS binary timecode formats used in
// space packet secondary headers: CDS, CUC, EOS, and JPSS, per spec.md
// §4.7. Each decoder is pure bit manipulation against its own public
// format definition; converting a decoded instant to a civil UTC time
// additionally requires TAI-UTC leap second bookkeeping, which this
// package delegates to the standard library's time.Time arithmetic plus
// a small leap second table rather than reinventing calendar math.
package timecode

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// ccsdsEpoch is the CCSDS time epoch, 1958-01-01 00:00:00, used as the
// reference instant for CDS, CUC, EOS, and JPSS.
var ccsdsEpoch = time.Date(1958, time.January, 1, 0, 0, 0, 0, time.UTC)

// Epoch is a decoded instant expressed as an offset from the CCSDS epoch.
type Epoch struct {
	Since time.Duration
}

// TAI returns the instant as a TAI time.Time, i.e. without leap second
// correction.
func (e Epoch) TAI() time.Time {
	return ccsdsEpoch.Add(e.Since)
}

// UTC returns the instant converted to civil UTC by subtracting the
// TAI-UTC leap second offset in effect at that time.
func (e Epoch) UTC() time.Time {
	tai := e.TAI()
	return tai.Add(-leapSecondsAt(tai))
}

// DecodeCDS decodes the CCSDS Day Segmented timecode: numDayBytes (1 or 2)
// big-endian days since the CCSDS epoch, 4 big-endian milliseconds of day,
// then numSubMillisBytes (0, 2, or 4) sub-millisecond bytes interpreted as
// microseconds (2 bytes) or picoseconds (4 bytes).
func DecodeCDS(data []byte, numDayBytes, numSubMillisBytes int) (Epoch, error) {
	if numDayBytes != 1 && numDayBytes != 2 {
		return Epoch{}, errors.Errorf("timecode: CDS numDayBytes must be 1 or 2, got %d", numDayBytes)
	}
	if numSubMillisBytes != 0 && numSubMillisBytes != 2 && numSubMillisBytes != 4 {
		return Epoch{}, errors.Errorf("timecode: CDS numSubMillisBytes must be 0, 2, or 4, got %d", numSubMillisBytes)
	}
	want := numDayBytes + 4 + numSubMillisBytes
	if len(data) != want {
		return Epoch{}, errors.Errorf("timecode: CDS expected %d bytes, got %d", want, len(data))
	}

	day := beUint(data[:numDayBytes])
	ms := binary.BigEndian.Uint32(data[numDayBytes : numDayBytes+4])

	since := time.Duration(day) * 24 * time.Hour
	since += time.Duration(ms) * time.Millisecond

	switch numSubMillisBytes {
	case 2:
		us := binary.BigEndian.Uint16(data[numDayBytes+4:])
		since += time.Duration(us) * time.Microsecond
	case 4:
		ps := binary.BigEndian.Uint32(data[numDayBytes+4:])
		since += time.Duration(ps) * time.Nanosecond / 1000
	}

	return Epoch{Since: since}, nil
}

// DecodeCUC decodes the CCSDS Unsegmented timecode: numCoarse (1-4) big
// endian seconds since epoch, then numFine (0-3) fractional-second bytes
// scaled by fineMult. A fineMult of 0 uses the CCSDS default of
// 2^(-8*numFine).
func DecodeCUC(data []byte, numCoarse, numFine int, fineMult float64) (Epoch, error) {
	if numCoarse < 1 || numCoarse > 4 {
		return Epoch{}, errors.Errorf("timecode: CUC numCoarse must be 1-4, got %d", numCoarse)
	}
	if numFine < 0 || numFine > 3 {
		return Epoch{}, errors.Errorf("timecode: CUC numFine must be 0-3, got %d", numFine)
	}
	want := numCoarse + numFine
	if len(data) != want {
		return Epoch{}, errors.Errorf("timecode: CUC expected %d bytes, got %d", want, len(data))
	}
	if fineMult == 0 {
		fineMult = cucDefaultFineMult(numFine)
	}

	coarse := beUint(data[:numCoarse])
	since := time.Duration(coarse) * time.Second

	if numFine > 0 {
		fine := beUint(data[numCoarse:])
		fracSeconds := float64(fine) * fineMult
		since += time.Duration(fracSeconds * float64(time.Second))
	}

	return Epoch{Since: since}, nil
}

func cucDefaultFineMult(numFine int) float64 {
	mult := 1.0
	for i := 0; i < numFine; i++ {
		mult /= 256
	}
	return mult
}

// DecodeEOS decodes the 8-byte Aqua/Terra EOS timecode: 4 big-endian
// coarse seconds since epoch, 2 big-endian milliseconds, 2 big-endian
// microseconds.
func DecodeEOS(data []byte) (Epoch, error) {
	if len(data) != 8 {
		return Epoch{}, errors.Errorf("timecode: EOS expected 8 bytes, got %d", len(data))
	}
	sec := binary.BigEndian.Uint32(data[0:4])
	ms := binary.BigEndian.Uint16(data[4:6])
	us := binary.BigEndian.Uint16(data[6:8])

	since := time.Duration(sec) * time.Second
	since += time.Duration(ms) * time.Millisecond
	since += time.Duration(us) * time.Microsecond

	return Epoch{Since: since}, nil
}

// DecodeJPSS decodes the JPSS/Suomi-NPP timecode: a CDS layout with 2 day
// bytes, 4 millisecond bytes, and 2 microsecond bytes.
func DecodeJPSS(data []byte) (Epoch, error) {
	return DecodeCDS(data, 2, 2)
}

// beUint decodes up to 8 bytes of big-endian data into a uint64.
func beUint(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = (v << 8) | uint64(x)
	}
	return v
}
