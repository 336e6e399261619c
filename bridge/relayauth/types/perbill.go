package types

import "math/bits"

// Billion is the denominator of a Perbill.
const Billion = 1_000_000_000

// Perbill is a ratio expressed in parts per billion.
type Perbill uint32

// One is the ratio of one.
const One Perbill = Billion

// FromPercent returns the ratio of the percentage. It saturates at one.
func FromPercent(p uint32) Perbill {
	if p >= 100 {
		return One
	}

	return Perbill(p * (Billion / 100))
}

// FromParts returns the ratio of the number of parts per billion. It
// saturates at one.
func FromParts(parts uint32) Perbill {
	if parts >= Billion {
		return One
	}

	return Perbill(parts)
}

// FromRational returns the ratio p/q rounded down. It saturates at one, which
// is also the result for a zero denominator.
func FromRational(p, q uint64) Perbill {
	if q == 0 || p >= q {
		return One
	}

	hi, lo := bits.Mul64(p, Billion)
	parts, _ := bits.Div64(hi, lo, q)

	return Perbill(parts)
}

// Parts returns the number of parts per billion.
func (p Perbill) Parts() uint32 {
	return uint32(p)
}
