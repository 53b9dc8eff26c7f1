package stdlib

// Murmur3x64_128 is a direct transcription of the reference
// MurmurHash3_x64_128 algorithm (Austin Appleby's original C++), used
// both for `str.hash` and for hashing native command names so host
// registration order doesn't matter (§4.7, §6, testable property 7).
// No pack dependency implements this exact bit-for-bit algorithm, so it
// lives here rather than behind a third-party hashing library (see
// DESIGN.md).
func Murmur3x64_128(data []byte, seed uint32) (h1, h2 uint64) {
	const c1 = 0x87c37b91114253d5
	const c2 = 0x4cf5ad432745937f

	h1 = uint64(seed)
	h2 = uint64(seed)

	n := len(data)
	nblocks := n / 16
	for i := 0; i < nblocks; i++ {
		base := i * 16
		k1 := le64(data[base : base+8])
		k2 := le64(data[base+8 : base+16])

		k1 *= c1
		k1 = rotl64(k1, 31)
		k1 *= c2
		h1 ^= k1

		h1 = rotl64(h1, 27)
		h1 += h2
		h1 = h1*5 + 0x52dce729

		k2 *= c2
		k2 = rotl64(k2, 33)
		k2 *= c1
		h2 ^= k2

		h2 = rotl64(h2, 31)
		h2 += h1
		h2 = h2*5 + 0x38495ab5
	}

	tail := data[nblocks*16:]
	var k1, k2 uint64
	switch len(tail) {
	case 15:
		k2 ^= uint64(tail[14]) << 48
		fallthrough
	case 14:
		k2 ^= uint64(tail[13]) << 40
		fallthrough
	case 13:
		k2 ^= uint64(tail[12]) << 32
		fallthrough
	case 12:
		k2 ^= uint64(tail[11]) << 24
		fallthrough
	case 11:
		k2 ^= uint64(tail[10]) << 16
		fallthrough
	case 10:
		k2 ^= uint64(tail[9]) << 8
		fallthrough
	case 9:
		k2 ^= uint64(tail[8])
		k2 *= c2
		k2 = rotl64(k2, 33)
		k2 *= c1
		h2 ^= k2
		fallthrough
	case 8:
		k1 ^= uint64(tail[7]) << 56
		fallthrough
	case 7:
		k1 ^= uint64(tail[6]) << 48
		fallthrough
	case 6:
		k1 ^= uint64(tail[5]) << 40
		fallthrough
	case 5:
		k1 ^= uint64(tail[4]) << 32
		fallthrough
	case 4:
		k1 ^= uint64(tail[3]) << 24
		fallthrough
	case 3:
		k1 ^= uint64(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint64(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint64(tail[0])
		k1 *= c1
		k1 = rotl64(k1, 31)
		k1 *= c2
		h1 ^= k1
	}

	h1 ^= uint64(n)
	h2 ^= uint64(n)
	h1 += h2
	h2 += h1
	h1 = fmix64(h1)
	h2 = fmix64(h2)
	h1 += h2
	h2 += h1
	return h1, h2
}

func le64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

func rotl64(x uint64, r uint) uint64 {
	return (x << r) | (x >> (64 - r))
}

func fmix64(k uint64) uint64 {
	k ^= k >> 33
	k *= 0xff51afd7ed558ccd
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k ^= k >> 33
	return k
}

// Hash128AsWords splits a 128-bit murmur digest into four 32-bit
// unsigned words, low half first within each 64-bit lane, matching
// `str.hash`'s "four 32-bit numbers" return shape.
func Hash128AsWords(h1, h2 uint64) [4]uint32 {
	return [4]uint32{
		uint32(h1),
		uint32(h1 >> 32),
		uint32(h2),
		uint32(h2 >> 32),
	}
}

// StrHash computes str.hash(s, seed): MurmurHash3_x64_128 of s's UTF-8
// bytes with the given seed truncated to 32 bits, returned as the four
// 32-bit words the compiler's compile-time `str.hash` folding packs into
// a list literal, matching the VM-side `str.hash` native's return shape.
func StrHash(s string, seed int64) [4]uint32 {
	h1, h2 := Murmur3x64_128([]byte(s), uint32(seed))
	return Hash128AsWords(h1, h2)
}

// NativeHash computes the 64-bit name hash identifying a native
// command, independent of registration order (§6 "Native commands").
func NativeHash(qualifiedName string) uint64 {
	h1, _ := Murmur3x64_128([]byte(qualifiedName), 0)
	return h1
}

// AutoNativeHash computes the hash for an auto-native forward
// reference, seeded with the literal prefix "autonative." (§6
// "Auto-natives").
func AutoNativeHash(qualifiedName string) uint64 {
	return NativeHash("autonative." + qualifiedName)
}
