package keystore

import (
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
)

const (
	mnemonicEntropyBits = 128
	pbkdf2Rounds        = 2048
)

// KeyFromMnemonic derives the ed25519 key of a mnemonic the way substrate
// wallets do: the BIP-39 entropy (not the phrase) is stretched with
// PBKDF2-SHA512 and the first 32 bytes seed the key pair.
func KeyFromMnemonic(mnemonic, password string) (ed25519.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	defer zeroBytes(entropy)
	seed := pbkdf2.Key(entropy, []byte("mnemonic"+password), pbkdf2Rounds, 64, sha512.New)
	defer zeroBytes(seed)
	return ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize]), nil
}

// NewMnemonic a fresh 12 word phrase
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", err
	}
	defer zeroBytes(entropy)
	return bip39.NewMnemonic(entropy)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
