package pcan

import "math/bits"

// ChecksumSum is the sum of all bytes modulo 256.
func ChecksumSum(data []byte) uint8 {
	var s uint8
	for _, b := range data {
		s += b
	}
	return s
}

// ChecksumNibble is the sum of every nibble of data modulo 16.
func ChecksumNibble(data []byte) uint8 {
	var s uint8
	for _, b := range data {
		s = (s + b>>4 + b&0xF) & 0xF
	}
	return s
}

// ChecksumNibbleNeg is the two's complement of ChecksumNibble in 4 bits.
func ChecksumNibbleNeg(data []byte) uint8 {
	return ((ChecksumNibble(data) ^ 0xF) + 1) & 0xF
}

// CounterUpdate increments the counter field of b selected by mask,
// wrapping inside the field and leaving other bits untouched.
func CounterUpdate(b, mask uint8) uint8 {
	shift := bits.TrailingZeros8(mask)
	c := ((b & mask) + 1<<shift) & mask
	return c | b&^mask
}

// CounterUpdateSkip is CounterUpdate that never leaves the field at skip
// (skip is given in field position, i.e. already masked).
func CounterUpdateSkip(b, mask, skip uint8) uint8 {
	b = CounterUpdate(b, mask)
	if b&mask == skip {
		b = CounterUpdate(b, mask)
	}
	return b
}

// WrapCounter returns c+1, or lo once c has reached hi.
func WrapCounter(c, lo, hi uint8) uint8 {
	if c >= hi {
		return lo
	}
	return c + 1
}
