// Package streamcipher implements the AES-128-CTR transformation used by
// SecureDataTransfer messages.
//
// The 16 byte initial counter block is Nonce (8 bytes) || Counter (8 bytes),
// both big-endian. There is no authentication tag: integrity of a message is
// provided by its detached signatures, and a wrong key or altered ciphertext
// decrypts to garbage instead of failing.
//
// A message of n bytes consumes the counter blocks Counter .. Counter+Blocks(n)-1.
// Callers must never let two plaintexts under one key and nonce share a counter
// block. Key stores reserve BlocksPerMessage blocks per message for that.
package streamcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// KeySize is the AES-128 key size in bytes.
	KeySize = 16
	// IVSize is the size of the initial counter block.
	IVSize = aes.BlockSize

	// BlocksPerMessage is the counter range reserved for one message.
	BlocksPerMessage = 1 << 32
	// MaxMessageSize is the largest plaintext that fits in BlocksPerMessage blocks.
	MaxMessageSize = BlocksPerMessage * aes.BlockSize
)

var (
	ErrInvalidKey       = errors.New("streamcipher: invalid key")
	ErrEncryptionFailed = errors.New("streamcipher: encryption failed")
	ErrDecryptionFailed = errors.New("streamcipher: decryption failed")
)

// Error reports a failed cipher operation. It unwraps to both Kind and Cause,
// so errors.Is works against the sentinels above and the underlying error.
type Error struct {
	Op    string
	Kind  error
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Cause)
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Blocks returns the number of counter blocks a message of n bytes consumes.
func Blocks(n int) uint64 {
	return (uint64(n) + aes.BlockSize - 1) / aes.BlockSize
}

// IV builds the initial counter block from nonce and counter.
func IV(nonce, counter uint64) [IVSize]byte {
	var iv [IVSize]byte
	binary.BigEndian.PutUint64(iv[:8], nonce)
	binary.BigEndian.PutUint64(iv[8:], counter)
	return iv
}

// Encrypt returns the ciphertext of plaintext under key, nonce and counter.
// The result has the same length as plaintext.
func Encrypt(key []byte, nonce, counter uint64, plaintext []byte) ([]byte, error) {
	out, err := xorKeyStream(key, nonce, counter, plaintext)
	if err != nil {
		return nil, wrap("encrypt", ErrEncryptionFailed, err)
	}
	return out, nil
}

// Decrypt reverses Encrypt. Decrypting with the wrong key, nonce or counter
// succeeds and yields unrelated bytes.
func Decrypt(key []byte, nonce, counter uint64, ciphertext []byte) ([]byte, error) {
	out, err := xorKeyStream(key, nonce, counter, ciphertext)
	if err != nil {
		return nil, wrap("decrypt", ErrDecryptionFailed, err)
	}
	return out, nil
}

func wrap(op string, kind, err error) error {
	var cerr *Error
	if errors.As(err, &cerr) {
		cerr.Op = op
		return cerr
	}
	return &Error{Op: op, Kind: kind, Cause: err}
}

func xorKeyStream(key []byte, nonce, counter uint64, src []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, &Error{
			Kind:  ErrInvalidKey,
			Cause: fmt.Errorf("key is %d bytes, want %d", len(key), KeySize),
		}
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, len(src))
	if len(src) == 0 {
		return dst, nil
	}
	iv := IV(nonce, counter)
	cipher.NewCTR(block, iv[:]).XORKeyStream(dst, src)
	return dst, nil
}
