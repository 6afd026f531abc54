package keystore

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"

	"github.com/QuantumFusion-network/pvm-dapp-demo/codec"
)

var validKeyName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Generate creates a new account file in dir. With a passphrase the
// mnemonic is stored encrypted, otherwise in plain text for development.
// The mnemonic is returned so it can be backed up.
func Generate(dir, name string, passphrase []byte, prefix uint16) (kf *KeyFile, mnemonic, path string, err error) {
	if !validKeyName.MatchString(name) {
		return nil, "", "", errors.New("key name may only contain letters, digits, '.', '_' and '-'")
	}
	if prefix == 0 {
		prefix = codec.DefaultSS58Prefix
	}
	path = filepath.Join(dir, name+keyFileExt)
	if _, err = os.Stat(path); err == nil {
		return nil, "", "", os.ErrExist
	}

	if mnemonic, err = NewMnemonic(); err != nil {
		return nil, "", "", err
	}
	priv, err := KeyFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, "", "", err
	}
	kf = &KeyFile{Name: name}
	copy(kf.PublicKey[:], priv.Public().(ed25519.PublicKey))
	if kf.Address, err = codec.SS58Encode(kf.PublicKey[:], prefix); err != nil {
		return nil, "", "", err
	}
	if len(passphrase) > 0 {
		if kf.Encrypted, err = Seal([]byte(mnemonic), passphrase); err != nil {
			return nil, "", "", err
		}
	} else {
		kf.Mnemonic = mnemonic
	}

	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return nil, "", "", err
	}
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", "", err
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return nil, "", "", err
	}
	return kf, mnemonic, path, nil
}
