// Package identity derives the deterministic sequence of key pairs a user
// holds on the ledger and builds signed transactions with them.
package identity

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/campusledger/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. Changing any of these changes every address a
// password produces.
const (
	salt       = "0ffaa74d206930aaece253f090c88dbe6685b9e66ec49ad988d84fd7dff230d1"
	iterations = 10000
	keyLength  = 32
)

// ErrUnknownAddress is returned when the wallet doesn't hold the key for an
// address.
var ErrUnknownAddress = errors.New("address not owned by wallet")

// HashPassword returns the hash of the password the root secret is derived
// from. The password itself is never stored.
func HashPassword(password string) string {
	return signature.HashString(password)
}

// RootSecret derives the root secret from the password hash.
func RootSecret(passwordHash string) []byte {
	return derive([]byte(passwordHash))
}

// =============================================================================

// KeyPair is a single derived key.
type KeyPair struct {
	Index     int    `json:"index"`
	SecretKey string `json:"secretKey"`
	PublicKey string `json:"publicKey"`
}

// Wallet holds the root secret and every key pair derived from it so far.
type Wallet struct {
	mu       sync.RWMutex
	id       string
	secret   []byte
	keyPairs []KeyPair
}

// New constructs a wallet for the specified password.
func New(password string) *Wallet {
	return FromPasswordHash(HashPassword(password))
}

// FromPasswordHash constructs a wallet from a previously hashed password.
func FromPasswordHash(passwordHash string) *Wallet {
	secret := RootSecret(passwordHash)

	return &Wallet{
		id:     signature.HashBytes(secret)[:16],
		secret: secret,
	}
}

// ID returns an identifier for the wallet that doesn't reveal the secret.
func (w *Wallet) ID() string {
	return w.id
}

// GenerateAddress derives the next key pair and returns its address. The
// first key comes from the root secret, every later key from the private key
// before it.
func (w *Wallet) GenerateAddress() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	seed := w.secret
	if n := len(w.keyPairs); n > 0 {
		seed = derive([]byte(w.keyPairs[n-1].SecretKey))
	}

	privateKey, err := crypto.ToECDSA(seed)
	if err != nil {
		return "", fmt.Errorf("deriving key %d: %w", len(w.keyPairs), err)
	}

	kp := KeyPair{
		Index:     len(w.keyPairs) + 1,
		SecretKey: hex.EncodeToString(crypto.FromECDSA(privateKey)),
		PublicKey: signature.PublicKey(privateKey),
	}
	w.keyPairs = append(w.keyPairs, kp)

	return kp.PublicKey, nil
}

// GenerateAddresses makes sure at least n addresses have been derived and
// returns them in order.
func (w *Wallet) GenerateAddresses(n int) ([]string, error) {
	for len(w.Addresses()) < n {
		if _, err := w.GenerateAddress(); err != nil {
			return nil, err
		}
	}

	return w.Addresses()[:n], nil
}

// Addresses returns the derived addresses in derivation order.
func (w *Wallet) Addresses() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	addrs := make([]string, len(w.keyPairs))
	for i, kp := range w.keyPairs {
		addrs[i] = kp.PublicKey
	}

	return addrs
}

// SecretKeyFor returns the secret key for an address held by the wallet.
func (w *Wallet) SecretKeyFor(address string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, kp := range w.keyPairs {
		if kp.PublicKey == address {
			return kp.SecretKey, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownAddress, address)
}

// Sign signs the hash with the key for the address.
func (w *Wallet) Sign(address string, hash string) (string, error) {
	key, err := w.SecretKeyFor(address)
	if err != nil {
		return "", err
	}

	return signature.Sign(key, hash)
}

// =============================================================================

func derive(password []byte) []byte {
	return pbkdf2.Key(password, []byte(salt), iterations, keyLength, sha512.New)
}
