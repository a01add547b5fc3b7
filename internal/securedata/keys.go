package securedata

import (
	"fmt"

	"secure_ocpp_cp/internal/streamcipher"
)

// EncryptionKeys hands out the key material for messages sent to a node.
// Every EncryptionCounter call for a (destination, keyID) reserves the blocks
// c .. c+streamcipher.BlocksPerMessage-1 under the current nonce of that key;
// no other call may hand out a counter inside that range.
type EncryptionKeys interface {
	EncryptionKey(destination string, keyID uint16) ([]byte, error)
	EncryptionNonce(destination string, keyID uint16) (uint64, error)
	EncryptionCounter(destination string, keyID uint16) (uint64, error)
}

// DecryptionKeys resolves the key used by a node for messages it sent.
type DecryptionKeys interface {
	DecryptionKey(source string, keyID uint16) ([]byte, error)
}

type keyTriple struct {
	key            []byte
	nonce, counter uint64
}

func checkMessageSize(n uint64) error {
	if n > streamcipher.MaxMessageSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, n, uint64(streamcipher.MaxMessageSize))
	}
	return nil
}

// lookupEncryption resolves the key material for one message of size bytes.
func lookupEncryption(keys EncryptionKeys, destination string, keyID uint16, size int) (keyTriple, error) {
	var t keyTriple
	err := checkMessageSize(uint64(size))
	if err != nil {
		return t, err
	}
	if t.key, err = keys.EncryptionKey(destination, keyID); err != nil {
		return t, err
	}
	if t.nonce, err = keys.EncryptionNonce(destination, keyID); err != nil {
		return t, err
	}
	if t.counter, err = keys.EncryptionCounter(destination, keyID); err != nil {
		return t, err
	}
	return t, nil
}
