// Package keystore provides the symmetric key material for SecureDataTransfer
// messages, per peer node and key id.
package keystore

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/hkdf"

	"secure_ocpp_cp/internal/streamcipher"
)

const KeySize = 16

var (
	ErrKeyNotFound = errors.New("keystore: key not found")
	ErrInvalidKey  = errors.New("keystore: invalid key")
	// ErrCounterExhausted is returned once the counter space of a nonce is used up.
	// Installing a new key draws a fresh nonce.
	ErrCounterExhausted = errors.New("keystore: counter space exhausted")
)

// KeyStore resolves keys for peers. One symmetric key is shared per
// (node, keyID). Each EncryptionCounter call reserves the counter blocks
// c .. c+streamcipher.BlocksPerMessage-1 for one message, so two messages under
// the current nonce of a key never share keystream.
type KeyStore interface {
	EncryptionKey(destination string, keyID uint16) ([]byte, error)
	EncryptionNonce(destination string, keyID uint16) (uint64, error)
	EncryptionCounter(destination string, keyID uint16) (uint64, error)
	DecryptionKey(source string, keyID uint16) ([]byte, error)
}

// KeyInfo describes a key without its bytes.
type KeyInfo struct {
	Node    string
	KeyID   uint16
	Derived bool
	Nonce   uint64
	Counter uint64
}

// DeriveKey derives the key for (node, keyID) from a master secret with
// HKDF-SHA256.
func DeriveKey(master []byte, node string, keyID uint16) ([]byte, error) {
	if len(master) == 0 {
		return nil, fmt.Errorf("%w: empty master secret", ErrInvalidKey)
	}
	info := fmt.Sprintf("ocpp-securedata|%s|%d", node, keyID)
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// nextCounter reserves the block range following the one that starts at cur.
// The range must end below 2^64 so the cipher never carries into the nonce.
func nextCounter(cur uint64) (uint64, error) {
	if cur > math.MaxUint64-2*streamcipher.BlocksPerMessage+1 {
		return 0, ErrCounterExhausted
	}
	return cur + streamcipher.BlocksPerMessage, nil
}

func checkKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}
	return nil
}
