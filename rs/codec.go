package rs

import "fmt"

const (
	// N is the RS(255,223) codeword length.
	N = 255
	// K is the number of information symbols per codeword.
	K = 223
	// NumRoots is n-k, the number of parity symbols (2t).
	NumRoots = N - K
	// MaxErrors is t, the maximum number of symbol errors the code can
	// correct.
	MaxErrors = NumRoots / 2
	// FirstRoot is the exponent of the first generator root, alpha^112
	// (consecutive roots alpha^112..alpha^143, alpha = 2). Symbols are
	// handled in the conventional polynomial basis; no dual-basis
	// conversion is applied to codeword bytes.
	FirstRoot = 112
)

// Codec decodes CCSDS RS(255,223) codewords. It is safe for concurrent use:
// all of its state is read-only Galois-field tables shared across calls.
type Codec struct {
	// Correction, when false, disables error correction; detection still
	// runs and reports Ok vs NotCorrected.
	Correction bool
	// Detection, when false, disables the codec entirely; Decode returns
	// the input unmodified with Integrity{Kind: Skipped}.
	Detection bool
}

// NewCodec returns a Codec with both detection and correction enabled.
func NewCodec() *Codec {
	return &Codec{Correction: true, Detection: true}
}

// Decode decodes a single full-length (len(codeword) == N) RS codeword,
// returning a corrected copy (or the original bytes, if uncorrectable or
// uncorrected) and the outcome. The input slice is never modified.
func (c *Codec) Decode(codeword []byte) ([]byte, Integrity) {
	if len(codeword) != N {
		return codeword, Integrity{Kind: Failed}
	}
	if !c.Detection {
		return codeword, Integrity{Kind: Skipped}
	}

	synd := syndromes(codeword)
	if allZero(synd) {
		return codeword, Integrity{Kind: Ok}
	}
	if !c.Correction {
		return codeword, Integrity{Kind: NotCorrected}
	}

	sigma, degSigma := berlekampMassey(synd)
	if degSigma == 0 || degSigma > MaxErrors {
		return codeword, Integrity{Kind: Uncorrectable}
	}

	positions := chienSearch(sigma, degSigma, len(codeword))
	if len(positions) != degSigma {
		// Chien search didn't find a root for every factor of sigma:
		// the error count must exceed our correction capability.
		return codeword, Integrity{Kind: Uncorrectable}
	}

	omega := errorEvaluator(synd, sigma, degSigma)
	corrected := append([]byte(nil), codeword...)
	if err := forneyCorrect(corrected, sigma, omega, positions); err != nil {
		return codeword, Integrity{Kind: Uncorrectable}
	}

	// Verify: a correct decode must leave zero syndromes.
	if !allZero(syndromes(corrected)) {
		return codeword, Integrity{Kind: Uncorrectable}
	}

	return corrected, Integrity{Kind: Corrected, N: len(positions)}
}

// DecodeShortened decodes a codeword shortened by virtualFill zero bytes:
// the codec conceptually prepends virtualFill zero symbols, decodes a
// full-length codeword, then strips them back off. Detection still applies
// to the full virtual codeword; per spec.md's Open Questions, when
// Correction is disabled the virtual fill is still applied for detection,
// but no correction is attempted.
func (c *Codec) DecodeShortened(data []byte, virtualFill int) ([]byte, Integrity) {
	if virtualFill < 0 || virtualFill+len(data) != N {
		return data, Integrity{Kind: Failed}
	}
	if virtualFill == 0 {
		return c.Decode(data)
	}
	full := make([]byte, N)
	copy(full[virtualFill:], data)

	decoded, integrity := c.Decode(full)
	return decoded[virtualFill:], integrity
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// syndromes evaluates the received codeword at alpha^(FirstRoot+j) for
// j in [0, NumRoots), using Horner's method. codeword[0] is the coefficient
// of the highest-degree term (data is transmitted MSB-first).
func syndromes(codeword []byte) []byte {
	synd := make([]byte, NumRoots)
	for j := 0; j < NumRoots; j++ {
		root := gfPowAlpha(FirstRoot + j)
		var s byte
		for _, d := range codeword {
			s = gfMul(s, root) ^ d
		}
		synd[j] = s
	}
	return synd
}

// berlekampMassey computes the error-locator polynomial sigma from the
// syndromes using the Berlekamp-Massey algorithm over GF(256). It returns
// sigma (coefficients, sigma[0] == 1) and its degree.
func berlekampMassey(synd []byte) (sigma []byte, deg int) {
	lambda := make([]byte, NumRoots+1)
	prev := make([]byte, NumRoots+1)
	lambda[0] = 1
	prev[0] = 1

	l := 0
	m := 1
	b := byte(1)

	for n := 0; n < NumRoots; n++ {
		delta := synd[n]
		for i := 1; i <= l; i++ {
			delta ^= gfMul(lambda[i], synd[n-i])
		}

		if delta == 0 {
			m++
			continue
		}

		t := append([]byte(nil), lambda...)
		coef := gfDiv(delta, b)
		for i := 0; i+m <= NumRoots; i++ {
			lambda[i+m] ^= gfMul(coef, prev[i])
		}

		if 2*l <= n {
			l = n + 1 - l
			prev = t
			b = delta
			m = 1
		} else {
			m++
		}
	}

	deg = l
	return lambda, deg
}

// chienSearch finds the roots of sigma by brute-force evaluation at every
// alpha^-i, i in [0, n), returning the corresponding error positions
// (0-indexed from the start of the codeword, i.e. position i means byte
// codeword[i] is in error).
func chienSearch(sigma []byte, degSigma, n int) []int {
	var positions []int
	for i := 0; i < n; i++ {
		// Evaluate sigma at alpha^-i == alpha^(255-i).
		x := gfPowAlpha(255 - i)
		var sum byte
		xp := byte(1)
		for j := 0; j <= degSigma; j++ {
			sum ^= gfMul(sigma[j], xp)
			xp = gfMul(xp, x)
		}
		if sum == 0 {
			// Root at alpha^-i locates an error at codeword index
			// n-1-i (position from the start, MSB-first layout).
			positions = append(positions, n-1-i)
		}
	}
	return positions
}

// errorEvaluator computes omega(x) = (S(x) * sigma(x)) mod x^NumRoots.
func errorEvaluator(synd, sigma []byte, degSigma int) []byte {
	omega := make([]byte, NumRoots)
	for i := 0; i < NumRoots; i++ {
		var sum byte
		for j := 0; j <= degSigma && j <= i; j++ {
			sum ^= gfMul(sigma[j], synd[i-j])
		}
		omega[i] = sum
	}
	return omega
}

// forneyCorrect applies Forney's algorithm to compute the error magnitude
// at each located position and XORs it into codeword in place.
func forneyCorrect(codeword []byte, sigma, omega []byte, positions []int) error {
	n := len(codeword)
	// sigma' is the formal derivative of sigma; over GF(2^m), the
	// derivative keeps only the odd-degree terms.
	for _, pos := range positions {
		// Xi = alpha^-(n-1-pos) is the root corresponding to this
		// position; recover i such that position = n-1-i.
		i := n - 1 - pos
		xInv := gfPowAlpha(255 - i)
		// The syndromes are evaluated at alpha^(FirstRoot+j), not
		// alpha^j, so the magnitude needs X_k^(1-FirstRoot), not X_k^1,
		// to cancel that offset back out.
		xPow := gfPowAlpha(i * (1 - FirstRoot))

		var numer byte
		xp := byte(1)
		for j := 0; j < len(omega); j++ {
			numer ^= gfMul(omega[j], xp)
			xp = gfMul(xp, xInv)
		}

		var denom byte
		xp = byte(1)
		for j := 1; j < len(sigma); j += 2 {
			denom ^= gfMul(sigma[j], xp)
			xp = gfMul(gfMul(xp, xInv), xInv)
		}
		if denom == 0 {
			return fmt.Errorf("rs: zero error-locator derivative at position %d", pos)
		}

		magnitude := gfMul(xPow, gfDiv(numer, denom))
		codeword[pos] ^= magnitude
	}
	return nil
}
