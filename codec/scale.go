// Package codec implements the SCALE primitives, hashers and extrinsic
// layout needed to talk to a Substrate style node.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// codec errors
var (
	ErrUnexpectedEOF  = errors.New("scale: unexpected end of input")
	ErrCompactTooLong = errors.New("scale: compact integer exceeds 64 bits")
)

const (
	compactSingleMax = 1<<6 - 1
	compactTwoMax    = 1<<14 - 1
	compactFourMax   = 1<<30 - 1
)

// EncodeCompact encodes v as a SCALE compact integer
func EncodeCompact(v uint64) []byte {
	switch {
	case v <= compactSingleMax:
		return []byte{byte(v << 2)}
	case v <= compactTwoMax:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v<<2)|0b01)
		return b
	case v <= compactFourMax:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v<<2)|0b10)
		return b
	}
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint64(raw, v)
	n := 8
	for n > 4 && raw[n-1] == 0 {
		n--
	}
	out := make([]byte, 0, n+1)
	out = append(out, byte(n-4)<<2|0b11)
	return append(out, raw[:n]...)
}

// EncodeCompactBig encodes arbitrary non negative integers (up to 67 bytes)
func EncodeCompactBig(v *big.Int) ([]byte, error) {
	if v.Sign() < 0 {
		return nil, fmt.Errorf("scale: negative compact %v", v)
	}
	if v.IsUint64() {
		return EncodeCompact(v.Uint64()), nil
	}
	be := v.Bytes()
	if len(be) > 67 {
		return nil, fmt.Errorf("scale: compact %v too large", v)
	}
	out := make([]byte, 0, len(be)+1)
	out = append(out, byte(len(be)-4)<<2|0b11)
	for i := len(be) - 1; i >= 0; i-- {
		out = append(out, be[i])
	}
	return out, nil
}

// DecodeCompact decodes a compact integer from the head of b and returns
// the value and the number of bytes consumed
func DecodeCompact(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrUnexpectedEOF
	}
	switch b[0] & 0b11 {
	case 0b00:
		return uint64(b[0] >> 2), 1, nil
	case 0b01:
		if len(b) < 2 {
			return 0, 0, ErrUnexpectedEOF
		}
		return uint64(binary.LittleEndian.Uint16(b) >> 2), 2, nil
	case 0b10:
		if len(b) < 4 {
			return 0, 0, ErrUnexpectedEOF
		}
		return uint64(binary.LittleEndian.Uint32(b) >> 2), 4, nil
	}
	n := int(b[0]>>2) + 4
	if n > 8 {
		return 0, 0, ErrCompactTooLong
	}
	if len(b) < 1+n {
		return 0, 0, ErrUnexpectedEOF
	}
	raw := make([]byte, 8)
	copy(raw, b[1:1+n])
	return binary.LittleEndian.Uint64(raw), 1 + n, nil
}

// EncodeU32 little endian
func EncodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// EncodeI64 little endian two's complement
func EncodeI64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

// DecodeInt decodes a little endian signed integer of 4 or 8 bytes
func DecodeInt(b []byte) (int64, error) {
	switch len(b) {
	case 8:
		return int64(binary.LittleEndian.Uint64(b)), nil
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(b))), nil
	default:
		return 0, fmt.Errorf("scale: cannot decode %d bytes as integer", len(b))
	}
}

// PrefixLength prepends the compact length of b
func PrefixLength(b []byte) []byte {
	out := EncodeCompact(uint64(len(b)))
	return append(out, b...)
}

// StripLength removes a compact length prefix and checks it matches
func StripLength(b []byte) ([]byte, error) {
	n, read, err := DecodeCompact(b)
	if err != nil {
		return nil, err
	}
	body := b[read:]
	if uint64(len(body)) != n {
		return nil, fmt.Errorf("scale: length prefix %d, have %d bytes", n, len(body))
	}
	return body, nil
}
