package codec

import (
	"errors"
	"fmt"

	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

// extrinsic format constants
const (
	ExtrinsicVersion = 4
	signedBit        = 0x80

	multiAddressID        = 0x00
	multiSignatureEd25519 = 0x00
	immortalEra           = 0x00

	// payloads longer than this are hashed before signing
	maxRawPayloadLen = 256

	SignatureLength = 64
)

// extrinsic errors
var (
	ErrUnsupportedExtrinsic = errors.New("extrinsic: unsupported version or format")
	ErrTrailingBytes        = errors.New("extrinsic: trailing bytes")
)

// CallIndex pallet and call position in the runtime metadata
type CallIndex struct {
	Pallet uint8
	Call   uint8
}

func (ci CallIndex) String() string {
	return fmt.Sprintf("%d.%d", ci.Pallet, ci.Call)
}

// ExecuteCall is qfPolkaVM.execute(contract, a, b, op)
type ExecuteCall struct {
	Index    CallIndex
	Contract types.Hash
	A        uint32
	B        uint32
	Op       types.Opcode
}

// NewExecuteCall from a validated request
func NewExecuteCall(index CallIndex, req *types.TransactionRequest) ExecuteCall {
	return ExecuteCall{
		Index:    index,
		Contract: req.Contract,
		A:        req.OperandA,
		B:        req.OperandB,
		Op:       req.Opcode,
	}
}

const executeCallLen = 2 + types.HashLength + 4 + 4 + 1

// Encode call index followed by the arguments
func (c ExecuteCall) Encode() []byte {
	b := make([]byte, 0, executeCallLen)
	b = append(b, c.Index.Pallet, c.Index.Call)
	b = append(b, c.Contract[:]...)
	b = append(b, EncodeU32(c.A)...)
	b = append(b, EncodeU32(c.B)...)
	return append(b, byte(c.Op))
}

// DecodeExecuteCall is the inverse of Encode
func DecodeExecuteCall(b []byte) (ExecuteCall, error) {
	var c ExecuteCall
	if len(b) < executeCallLen {
		return c, ErrUnexpectedEOF
	}
	if len(b) > executeCallLen {
		return c, ErrTrailingBytes
	}
	c.Index = CallIndex{Pallet: b[0], Call: b[1]}
	copy(c.Contract[:], b[2:34])
	c.A = uint32(b[34]) | uint32(b[35])<<8 | uint32(b[36])<<16 | uint32(b[37])<<24
	c.B = uint32(b[38]) | uint32(b[39])<<8 | uint32(b[40])<<16 | uint32(b[41])<<24
	c.Op = types.Opcode(b[42])
	if !c.Op.IsValid() {
		return c, fmt.Errorf("extrinsic: %w", &types.InvalidRequestError{Field: "opcode", Reason: c.Op.String()})
	}
	return c, nil
}

// SignedExtra carries the values signed alongside the call
type SignedExtra struct {
	Nonce              uint64
	Tip                uint64
	SpecVersion        uint32
	TransactionVersion uint32
	GenesisHash        types.Hash
}

// encodeExtra era ++ compact(nonce) ++ compact(tip)
func (e SignedExtra) encodeExtra() []byte {
	b := []byte{immortalEra}
	b = append(b, EncodeCompact(e.Nonce)...)
	return append(b, EncodeCompact(e.Tip)...)
}

// additionalSigned specVersion ++ txVersion ++ genesis ++ era block hash
// (immortal era checkpoints at genesis)
func (e SignedExtra) additionalSigned() []byte {
	b := make([]byte, 0, 8+2*types.HashLength)
	b = append(b, EncodeU32(e.SpecVersion)...)
	b = append(b, EncodeU32(e.TransactionVersion)...)
	b = append(b, e.GenesisHash[:]...)
	return append(b, e.GenesisHash[:]...)
}

// SigningPayload is call ++ extra ++ additional signed, before hashing
func SigningPayload(call []byte, extra SignedExtra) []byte {
	b := make([]byte, 0, len(call)+16+8+2*types.HashLength)
	b = append(b, call...)
	b = append(b, extra.encodeExtra()...)
	return append(b, extra.additionalSigned()...)
}

// PayloadToSign returns the bytes a signer signs: the payload itself or
// its blake2_256 hash when longer than 256 bytes
func PayloadToSign(payload []byte) []byte {
	if len(payload) > maxRawPayloadLen {
		h := Blake2_256(payload)
		return h[:]
	}
	return payload
}

// EncodeSignedExtrinsic builds the length prefixed v4 signed extrinsic
func EncodeSignedExtrinsic(signer types.Hash, signature []byte, call []byte, extra SignedExtra) ([]byte, error) {
	if len(signature) != SignatureLength {
		return nil, fmt.Errorf("extrinsic: signature length %d, want %d", len(signature), SignatureLength)
	}
	b := make([]byte, 0, 1+1+32+1+64+16+len(call))
	b = append(b, signedBit|ExtrinsicVersion)
	b = append(b, multiAddressID)
	b = append(b, signer[:]...)
	b = append(b, multiSignatureEd25519)
	b = append(b, signature...)
	b = append(b, extra.encodeExtra()...)
	b = append(b, call...)
	return PrefixLength(b), nil
}

// Extrinsic is a decoded signed extrinsic
type Extrinsic struct {
	Signer    types.Hash
	Signature []byte
	Nonce     uint64
	Tip       uint64
	Call      []byte
}

// DecodeExtrinsic decodes a length prefixed signed v4 extrinsic with an
// ed25519 signature and immortal era
func DecodeExtrinsic(encoded []byte) (*Extrinsic, error) {
	body, err := StripLength(encoded)
	if err != nil {
		return nil, err
	}
	if len(body) < 1+1+32+1+SignatureLength+1 {
		return nil, ErrUnexpectedEOF
	}
	if body[0] != signedBit|ExtrinsicVersion || body[1] != multiAddressID || body[34] != multiSignatureEd25519 {
		return nil, ErrUnsupportedExtrinsic
	}
	ext := &Extrinsic{Signature: make([]byte, SignatureLength)}
	copy(ext.Signer[:], body[2:34])
	copy(ext.Signature, body[35:35+SignatureLength])
	rest := body[35+SignatureLength:]
	if rest[0] != immortalEra {
		return nil, ErrUnsupportedExtrinsic
	}
	rest = rest[1:]
	var n int
	if ext.Nonce, n, err = DecodeCompact(rest); err != nil {
		return nil, err
	}
	rest = rest[n:]
	if ext.Tip, n, err = DecodeCompact(rest); err != nil {
		return nil, err
	}
	ext.Call = rest[n:]
	return ext, nil
}

// ExtrinsicHash is the blake2_256 of the encoded extrinsic
func ExtrinsicHash(encoded []byte) types.Hash {
	return types.Hash(Blake2_256(encoded))
}
