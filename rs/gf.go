package rs

// GF(256) arithmetic for the CCSDS Reed-Solomon field, generated by the
// primitive polynomial F(x) = x^8 + x^7 + x^2 + x + 1 (0x187). This is the
// field spec.md names explicitly; it differs from the field used by generic
// erasure-coding libraries (e.g. klauspost/reedsolomon, which hardcodes
// x^8+x^4+x^3+x^2+1), which is why this package cannot delegate to one —
// see DESIGN.md.
const primPoly = 0x187

var expTable [512]byte
var logTable [256]int

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		expTable[i] = byte(x)
		logTable[x] = i
		x <<= 1
		if x&0x100 != 0 {
			x ^= primPoly
		}
	}
	for i := 255; i < 512; i++ {
		expTable[i] = expTable[i-255]
	}
	logTable[0] = -1
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[logTable[a]+logTable[b]]
}

func gfDiv(a, b byte) byte {
	if a == 0 {
		return 0
	}
	return expTable[(logTable[a]-logTable[b]+255)%255]
}

func gfInv(a byte) byte {
	return expTable[255-logTable[a]]
}

// gfPowAlpha returns alpha^power where alpha is the field's generator (2).
func gfPowAlpha(power int) byte {
	power %= 255
	if power < 0 {
		power += 255
	}
	return expTable[power]
}
