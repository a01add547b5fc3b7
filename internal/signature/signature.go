// Package signature holds the detached signatures appended to every binary
// OCPP message and the codec for the trailing signature list.
package signature

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"secure_ocpp_cp/internal/bincodec"
)

var (
	// ErrSignatureDecode is returned when an embedded signature does not decode.
	ErrSignatureDecode = errors.New("signature: cannot decode signature")
	// ErrTooManySignatures is returned when a list exceeds MaxCount.
	ErrTooManySignatures = errors.New("signature: too many signatures")
)

// MaxCount is the largest number of signatures the one byte count can carry.
const MaxCount = 255

// Signature is a detached signature over a binary message pre-image.
type Signature struct {
	// KeyID identifies the signing key, for Ed25519 the raw public key.
	KeyID          []byte
	Value          []byte
	SigningMethod  string
	EncodingMethod string
}

// Equal reports whether s and o carry the same bytes and methods.
func (s Signature) Equal(o Signature) bool {
	return bytes.Equal(s.KeyID, o.KeyID) &&
		bytes.Equal(s.Value, o.Value) &&
		s.SigningMethod == o.SigningMethod &&
		s.EncodingMethod == o.EncodingMethod
}

func (s Signature) String() string {
	id := hex.EncodeToString(s.KeyID)
	if len(id) > 16 {
		id = id[:16]
	}
	return fmt.Sprintf("%s/%s", s.SigningMethod, id)
}

// MarshalBinary encodes s as four uint16 length-prefixed fields.
func (s Signature) MarshalBinary() ([]byte, error) {
	w := bincodec.NewWriter(8 + len(s.KeyID) + len(s.Value) + len(s.SigningMethod) + len(s.EncodingMethod))
	if err := w.WriteBytes16(s.KeyID); err != nil {
		return nil, fmt.Errorf("key id: %w", err)
	}
	if err := w.WriteBytes16(s.Value); err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	if err := w.WriteString16(s.SigningMethod); err != nil {
		return nil, fmt.Errorf("signing method: %w", err)
	}
	if err := w.WriteString16(s.EncodingMethod); err != nil {
		return nil, fmt.Errorf("encoding method: %w", err)
	}
	return w.Bytes(), nil
}

// UnmarshalBinary decodes s from data, which must be consumed exactly.
func (s *Signature) UnmarshalBinary(data []byte) error {
	r := bincodec.NewReader(data)
	keyID, err := r.ReadBytes16()
	if err != nil {
		return fmt.Errorf("%w: key id: %w", ErrSignatureDecode, err)
	}
	value, err := r.ReadBytes16()
	if err != nil {
		return fmt.Errorf("%w: value: %w", ErrSignatureDecode, err)
	}
	signingMethod, err := r.ReadString16()
	if err != nil {
		return fmt.Errorf("%w: signing method: %w", ErrSignatureDecode, err)
	}
	encodingMethod, err := r.ReadString16()
	if err != nil {
		return fmt.Errorf("%w: encoding method: %w", ErrSignatureDecode, err)
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrSignatureDecode, r.Remaining())
	}
	*s = Signature{
		KeyID:          keyID,
		Value:          value,
		SigningMethod:  signingMethod,
		EncodingMethod: encodingMethod,
	}
	return nil
}
