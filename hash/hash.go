// Package hash implements the fast modular hash used to bucket conditioning contexts.
package hash

// Hash mixes n with salt s and reduces the result into the range [0, max).
func Hash(n uint32, s uint32, max uint32) uint32 {
	// mix input with salt using subtraction
	var m = uint32(n) - uint32(s)

	// xor shift with prime coefficients
	m ^= m << 2
	m ^= m << 3
	m ^= m >> 5
	m ^= m >> 7
	m ^= m << 11
	m ^= m << 13
	m ^= m >> 17
	m ^= m << 19

	// mix input with salt using addition
	m += s

	// multiply shift reduction instead of modulo
	// https://lemire.me/blog/2016/06/27/a-fast-alternative-to-the-modulo-reduction/
	return uint32((uint64(m) * uint64(max)) >> 32)
}

// Features chains Hash over a vector of quantized values and reduces the
// final state into [0, max). Each position uses its own salt, so permuted
// vectors land in different buckets.
func Features(values []uint32, salt uint32, max uint32) uint32 {
	var state = salt
	for i, v := range values {
		state = Hash(v^state, salt+uint32(i)*0x9E3779B9, 0xFFFFFFFF)
	}
	return Hash(state, salt, max)
}
