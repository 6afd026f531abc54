// Package keystore is a file backed wallet provider. Every *.json file in
// its directory holds one account, either as a development mnemonic or as
// an encrypted envelope unlocked with a passphrase file.
package keystore

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/QuantumFusion-network/pvm-dapp-demo/codec"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet"
)

const keyFileExt = ".json"

// keystore errors
var (
	ErrWrongPassphrase = errors.New("wrong keystore passphrase")
	ErrUnknownAddress  = errors.New("address not in keystore")
	ErrLocked          = errors.New("key is encrypted and no passphrase is configured")
	ErrOriginRejected  = errors.New("origin not allowed by keystore")
)

// KeyFile is the on disk format of one account
type KeyFile struct {
	Name      string     `json:"name"`
	Address   string     `json:"address"`
	PublicKey types.Hash `json:"publicKey"`
	Mnemonic  string     `json:"mnemonic,omitempty"`
	Password  string     `json:"password,omitempty"`
	Encrypted *Envelope  `json:"encrypted,omitempty"`
}

// Config keystore provider config
type Config struct {
	Name           string
	Dir            string
	PassphraseFile string
	SS58Prefix     uint16
	Origins        []string
}

type entry struct {
	path string
	file KeyFile
	priv ed25519.PrivateKey
}

// Store is a wallet.Provider over a key directory
type Store struct {
	cfg Config

	mu   sync.RWMutex
	keys map[string]*entry

	watcher *fsnotify.Watcher
	quit    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

var _ wallet.Provider = (*Store)(nil)

// Open loads every key file of cfg.Dir, creating the directory if needed
func Open(cfg Config) (*Store, error) {
	if cfg.Name == "" {
		cfg.Name = wallet.DefaultProvider
	}
	if cfg.SS58Prefix == 0 {
		cfg.SS58Prefix = codec.DefaultSS58Prefix
	}
	if cfg.Dir == "" {
		return nil, errors.New("keystore dir is empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, err
	}
	s := &Store{
		cfg:  cfg,
		keys: make(map[string]*entry),
		quit: make(chan struct{}),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Name provider name the store is registered under
func (s *Store) Name() string {
	return s.cfg.Name
}

// Enable grants origin access to the accounts
func (s *Store) Enable(ctx context.Context, origin string) (wallet.Injected, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.cfg.Origins) > 0 {
		allowed := false
		for _, o := range s.cfg.Origins {
			if o == "*" || strings.EqualFold(o, origin) {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrOriginRejected, origin)
		}
	}
	return s, nil
}

// Accounts lists accounts ordered by key file name
func (s *Store) Accounts(ctx context.Context) ([]wallet.InjectedAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.keys))
	for _, e := range s.keys {
		entries = append(entries, e)
	}
	s.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	accounts := make([]wallet.InjectedAccount, 0, len(entries))
	for _, e := range entries {
		accounts = append(accounts, wallet.InjectedAccount{
			Address:   e.file.Address,
			PublicKey: e.file.PublicKey,
			Name:      e.file.Name,
		})
	}
	return accounts, nil
}

// Signer the store signs itself
func (s *Store) Signer() wallet.Signer {
	return s
}

// SignPayload signs payload, hashing it first when longer than 256 bytes
func (s *Store) SignPayload(ctx context.Context, address string, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	priv, err := s.privateKey(address)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, codec.PayloadToSign(payload)), nil
}

func (s *Store) privateKey(address string) (ed25519.PrivateKey, error) {
	s.mu.RLock()
	var (
		found  *entry
		cached ed25519.PrivateKey
	)
	for _, e := range s.keys {
		if e.file.Address == address {
			found, cached = e, e.priv
			break
		}
	}
	s.mu.RUnlock()
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, address)
	}
	if cached != nil {
		return cached, nil
	}

	passphrase, err := s.passphrase()
	if err != nil {
		return nil, err
	}
	mnemonic, err := found.file.Encrypted.Open(passphrase)
	zeroBytes(passphrase)
	if err != nil {
		return nil, err
	}
	priv, err := KeyFromMnemonic(string(mnemonic), found.file.Password)
	zeroBytes(mnemonic)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(priv.Public().(ed25519.PublicKey), found.file.PublicKey[:]) {
		return nil, fmt.Errorf("key file %s does not match its public key", found.path)
	}
	s.mu.Lock()
	found.priv = priv
	s.mu.Unlock()
	return priv, nil
}

func (s *Store) passphrase() ([]byte, error) {
	if s.cfg.PassphraseFile == "" {
		return nil, ErrLocked
	}
	data, err := os.ReadFile(s.cfg.PassphraseFile)
	if err != nil {
		return nil, fmt.Errorf("read passphrase file: %w", err)
	}
	return bytes.TrimRight(data, "\r\n"), nil
}

// Reload rescans the directory
func (s *Store) Reload() error {
	matches, err := filepath.Glob(filepath.Join(s.cfg.Dir, "*"+keyFileExt))
	if err != nil {
		return err
	}
	keys := make(map[string]*entry, len(matches))
	for _, path := range matches {
		e, err := s.load(path)
		if err != nil {
			log.Warn("skip invalid key file", "file", path, "err", err)
			continue
		}
		keys[path] = e
	}
	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
	log.Info("keystore loaded", "dir", s.cfg.Dir, "accounts", len(keys))
	return nil
}

func (s *Store) load(path string) (*entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf KeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, err
	}
	e := &entry{path: path, file: kf}
	switch {
	case kf.Mnemonic != "":
		priv, err := KeyFromMnemonic(kf.Mnemonic, kf.Password)
		if err != nil {
			return nil, err
		}
		copy(e.file.PublicKey[:], priv.Public().(ed25519.PublicKey))
		e.file.Mnemonic = ""
		e.priv = priv
	case kf.Encrypted != nil:
		if kf.PublicKey.IsZero() {
			return nil, errors.New("encrypted key file without public key")
		}
	default:
		return nil, errors.New("key file has neither mnemonic nor encrypted envelope")
	}
	address, err := codec.SS58Encode(e.file.PublicKey[:], s.cfg.SS58Prefix)
	if err != nil {
		return nil, err
	}
	if kf.Address != "" && kf.Address != address {
		return nil, fmt.Errorf("address %s does not match key (%s)", kf.Address, address)
	}
	e.file.Address = address
	return e, nil
}

// Watch discovers key files installed, changed or removed after Open
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err = watcher.Add(s.cfg.Dir); err != nil {
		_ = watcher.Close()
		return err
	}
	s.watcher = watcher
	s.wg.Add(1)
	go s.startWatcher()
	return nil
}

func (s *Store) startWatcher() {
	log.Info("start keystore watch", "dir", s.cfg.Dir)
	defer func() {
		log.Info("stop keystore watch", "dir", s.cfg.Dir)
		s.wg.Done()
	}()

	for {
		select {
		case <-s.quit:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			log.Trace("keystore watch event", "event", ev)
			if !strings.HasSuffix(ev.Name, keyFileExt) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				if err := s.Reload(); err != nil {
					log.Warn("keystore reload failed", "err", err)
				}
			}
		case werr, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("keystore watch error", "err", werr)
		}
	}
}

// Close stops watching the directory
func (s *Store) Close() (err error) {
	s.once.Do(func() {
		close(s.quit)
		if s.watcher != nil {
			err = s.watcher.Close()
		}
		s.wg.Wait()
	})
	return err
}
