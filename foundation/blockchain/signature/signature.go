// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// ledgerStamp is mixed into every signed digest so signatures we produce are
// only valid for this ledger.
const ledgerStamp = "\x19Ledger Signed Message:\n32"

// =============================================================================

// Hash returns a unique string for the value. The text is the lowercase hex
// form of the sha256 digest with no prefix.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	return HashBytes(data)
}

// HashString returns the hash for the specified text.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// HashBytes returns the hash for the specified bytes.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// =============================================================================

// Sign uses the specified hex encoded private key to sign the hash.
func Sign(secretKey string, hash string) (string, error) {
	privateKey, err := crypto.HexToECDSA(secretKey)
	if err != nil {
		return "", err
	}

	return SignWithKey(privateKey, hash)
}

// SignWithKey uses the specified private key to sign the hash.
func SignWithKey(privateKey *ecdsa.PrivateKey, hash string) (string, error) {
	data := stamp(hash)

	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", err
	}

	// Check the public key extracted from the data and signature.
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(&privateKey.PublicKey), data, rs) {
		return "", errors.New("invalid signature")
	}

	return hex.EncodeToString(sig), nil
}

// Verify checks the signature was produced over the hash by the owner of the
// specified public key.
func Verify(publicKey string, sig string, hash string) bool {
	pub, err := hex.DecodeString(publicKey)
	if err != nil {
		return false
	}

	if _, err := crypto.DecompressPubkey(pub); err != nil {
		return false
	}

	raw, err := hex.DecodeString(sig)
	if err != nil || len(raw) != crypto.SignatureLength {
		return false
	}

	// Check the signature values are valid.
	r := new(big.Int).SetBytes(raw[:32])
	s := new(big.Int).SetBytes(raw[32:64])
	if !crypto.ValidateSignatureValues(raw[64], r, s, false) {
		return false
	}

	return crypto.VerifySignature(pub, stamp(hash), raw[:crypto.RecoveryIDOffset])
}

// PublicKey returns the compressed public key for the private key in hex.
// This is the address form used on the ledger.
func PublicKey(privateKey *ecdsa.PrivateKey) string {
	return hex.EncodeToString(crypto.CompressPubkey(&privateKey.PublicKey))
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents the hash with the ledger
// stamp embedded into the final digest.
func stamp(hash string) []byte {
	h := crypto.Keccak256([]byte(hash))
	return crypto.Keccak256([]byte(ledgerStamp), h)
}
