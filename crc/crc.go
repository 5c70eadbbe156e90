// Package crc wraps the CRC-16 primitive spec.md delegates to an external
// collaborator for transfer-frame trailer (FECF) verification. Neither
// framesync nor frame interprets the trailer; this package exists so a
// caller who knows its mission's trailer convention can do so without
// reimplementing CRC tables.
package crc

import "github.com/sigurn/crc16"

// table is CRC-16/CCITT-FALSE, the polynomial used by the CCSDS FECF
// convention when a mission chooses to carry one in the transfer frame
// trailer.
var table = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Compute16 returns the CRC-16/CCITT-FALSE checksum of data.
func Compute16(data []byte) uint16 {
	return crc16.Checksum(data, table)
}

// VerifyFECF reports whether the last two bytes of frameWithFECF equal the
// CRC-16/CCITT-FALSE checksum of everything preceding them. It is a no-op
// with respect to the framing pipeline itself: frame.Frame carries its
// trailer bytes opaquely, and only a caller that knows its mission's FECF
// convention should invoke this.
func VerifyFECF(frameWithFECF []byte) bool {
	if len(frameWithFECF) < 2 {
		return false
	}
	body := frameWithFECF[:len(frameWithFECF)-2]
	got := uint16(frameWithFECF[len(frameWithFECF)-2])<<8 | uint16(frameWithFECF[len(frameWithFECF)-1])
	return Compute16(body) == got
}
