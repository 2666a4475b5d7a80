/*
Package bitint holds the power-of-two helpers used to size FFT frames.

Both functions are O(1), allocation free and safe to call from the audio
callback.

	size := bitint.NextPowerOfTwo(1000) // 1024
	ok := bitint.IsPowerOfTwo(size)     // true

NextPowerOfTwo subtracts one before taking the bit length so that an exact
power of two maps to itself: Len(8-1) = 3 and 1<<3 = 8, whereas Len(8) would
give 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Zero and negative
// sizes return 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has a single bit set, so clearing the lowest set bit (n & (n-1)) yields 0.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// PreviousPowerOfTwo returns the largest power of two <= n, or 0 for n < 1.
func PreviousPowerOfTwo(n int) int {
	if n < 1 {
		return 0
	}
	return 1 << (bits.Len(uint(n)) - 1)
}
