package signature

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
)

const (
	MethodEd25519 = "Ed25519"
	EncodingRaw   = "raw"
)

// ErrInvalidSignature is returned by Verify when a signature does not validate.
var ErrInvalidSignature = errors.New("signature: invalid signature")

// Signer produces a detached signature over a message pre-image.
type Signer interface {
	Sign(preimage []byte) (Signature, error)
}

// Verifier checks signatures over a message pre-image.
type Verifier interface {
	// Knows reports whether the verifier holds the key the signature names.
	Knows(sig Signature) bool
	Verify(preimage []byte, sig Signature) error
}

type Ed25519Signer struct {
	key ed25519.PrivateKey
}

func NewEd25519Signer(key ed25519.PrivateKey) (*Ed25519Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key is %d bytes, want %d", len(key), ed25519.PrivateKeySize)
	}
	return &Ed25519Signer{key: key}, nil
}

func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func (s *Ed25519Signer) Sign(preimage []byte) (Signature, error) {
	return Signature{
		KeyID:          []byte(s.PublicKey()),
		Value:          ed25519.Sign(s.key, preimage),
		SigningMethod:  MethodEd25519,
		EncodingMethod: EncodingRaw,
	}, nil
}

// Ed25519Verifier trusts a fixed list of public keys.
type Ed25519Verifier struct {
	trusted []ed25519.PublicKey
}

func NewEd25519Verifier(trusted ...ed25519.PublicKey) *Ed25519Verifier {
	return &Ed25519Verifier{trusted: trusted}
}

func (v *Ed25519Verifier) Knows(sig Signature) bool {
	if sig.SigningMethod != MethodEd25519 {
		return false
	}
	for _, pub := range v.trusted {
		if bytes.Equal(pub, sig.KeyID) {
			return true
		}
	}
	return false
}

func (v *Ed25519Verifier) Verify(preimage []byte, sig Signature) error {
	if !v.Knows(sig) {
		return fmt.Errorf("%w: untrusted key %s", ErrInvalidSignature, sig)
	}
	if !ed25519.Verify(ed25519.PublicKey(sig.KeyID), preimage, sig.Value) {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, sig)
	}
	return nil
}

// Verify checks sigs against preimage. Signatures from unknown keys are
// skipped, but at least one must come from a known key and every known one
// must validate.
func Verify(v Verifier, preimage []byte, sigs Set) error {
	checked := 0
	for _, sig := range sigs.items {
		if !v.Knows(sig) {
			continue
		}
		if err := v.Verify(preimage, sig); err != nil {
			return err
		}
		checked++
	}
	if checked == 0 {
		return fmt.Errorf("%w: no signature from a trusted key", ErrInvalidSignature)
	}
	return nil
}
