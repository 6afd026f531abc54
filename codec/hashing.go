package codec

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Twox64 xxhash64 with seed 0, little endian
func Twox64(data []byte) []byte {
	return twox(data, 1)
}

// Twox128 two xxhash64 rounds with seeds 0 and 1, concatenated little endian
func Twox128(data []byte) []byte {
	return twox(data, 2)
}

func twox(data []byte, rounds int) []byte {
	out := make([]byte, 0, 8*rounds)
	for seed := 0; seed < rounds; seed++ {
		d := xxhash.NewWithSeed(uint64(seed))
		_, _ = d.Write(data)
		out = binary.LittleEndian.AppendUint64(out, d.Sum64())
	}
	return out
}

// Blake2_128 16 byte blake2b
func Blake2_128(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	_, _ = h.Write(data)
	return h.Sum(nil)
}

// Blake2_128Concat blake2_128(data) ++ data
func Blake2_128Concat(data []byte) []byte {
	return append(Blake2_128(data), data...)
}

// Blake2_256 32 byte blake2b
func Blake2_256(data []byte) [32]byte {
	return blake2b.Sum256(data)
}
