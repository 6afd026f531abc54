package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// DefaultSS58Prefix generic substrate address format
const DefaultSS58Prefix uint16 = 42

const (
	ss58ChecksumLen = 2
	maxSS58Prefix   = 16383
)

var ss58Pre = []byte("SS58PRE")

// ss58 errors
var (
	ErrSS58Checksum = errors.New("ss58: checksum mismatch")
	ErrSS58Length   = errors.New("ss58: unsupported address length")
)

// SS58Encode encodes a 32 byte public key with the network prefix
func SS58Encode(pub []byte, prefix uint16) (string, error) {
	if len(pub) != 32 {
		return "", ErrSS58Length
	}
	var pre []byte
	switch {
	case prefix < 64:
		pre = []byte{byte(prefix)}
	case prefix <= maxSS58Prefix:
		pre = []byte{
			byte((prefix&0b0000_0000_1111_1100)>>2) | 0b0100_0000,
			byte(prefix>>8) | byte((prefix&0b11)<<6),
		}
	default:
		return "", fmt.Errorf("ss58: prefix %d out of range", prefix)
	}
	body := append(pre, pub...)
	return base58.Encode(append(body, ss58Checksum(body)...)), nil
}

// SS58Decode returns the public key and prefix of an address
func SS58Decode(address string) ([]byte, uint16, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, 0, fmt.Errorf("ss58: %w", err)
	}
	if len(raw) < 1 {
		return nil, 0, ErrSS58Length
	}
	var (
		prefix    uint16
		prefixLen int
	)
	switch {
	case raw[0] < 64:
		prefix, prefixLen = uint16(raw[0]), 1
	case raw[0] < 128:
		if len(raw) < 2 {
			return nil, 0, ErrSS58Length
		}
		lower := (raw[0] << 2) | (raw[1] >> 6)
		upper := raw[1] & 0b0011_1111
		prefix, prefixLen = uint16(lower)|uint16(upper)<<8, 2
	default:
		return nil, 0, fmt.Errorf("ss58: invalid prefix byte %#x", raw[0])
	}
	if len(raw) != prefixLen+32+ss58ChecksumLen {
		return nil, 0, ErrSS58Length
	}
	body := raw[:prefixLen+32]
	if !bytes.Equal(ss58Checksum(body), raw[prefixLen+32:]) {
		return nil, 0, ErrSS58Checksum
	}
	pub := make([]byte, 32)
	copy(pub, raw[prefixLen:prefixLen+32])
	return pub, prefix, nil
}

func ss58Checksum(body []byte) []byte {
	h, _ := blake2b.New512(nil)
	_, _ = h.Write(ss58Pre)
	_, _ = h.Write(body)
	return h.Sum(nil)[:ss58ChecksumLen]
}
