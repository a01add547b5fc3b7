package securedata

import (
	"bytes"
	"fmt"

	"secure_ocpp_cp/internal/bincodec"
	"secure_ocpp_cp/internal/signature"
	"secure_ocpp_cp/internal/streamcipher"
)

// encrypted is the part of the frame shared by requests and responses:
//
//	Parameter  uint16
//	KeyID      uint16
//	Nonce      uint64
//	Counter    uint64
//	Ciphertext uint64 length + bytes
//	Signatures uint8 count + (uint16 length + bytes)*
type encrypted struct {
	parameter  uint16
	keyID      uint16
	nonce      uint64
	counter    uint64
	ciphertext []byte
	signatures signature.Set
}

const encryptedHeaderSize = 2 + 2 + 8 + 8 + 8 + 1

func newEncrypted(parameter, keyID uint16, nonce, counter uint64, ciphertext []byte, sigs signature.Set) encrypted {
	c := make([]byte, len(ciphertext))
	copy(c, ciphertext)
	return encrypted{
		parameter:  parameter,
		keyID:      keyID,
		nonce:      nonce,
		counter:    counter,
		ciphertext: c,
		signatures: sigs,
	}
}

func (e encrypted) encode(w *bincodec.Writer, includeSignatures bool) error {
	w.WriteUint16(e.parameter)
	w.WriteUint16(e.keyID)
	w.WriteUint64(e.nonce)
	w.WriteUint64(e.counter)
	w.WriteBytes64(e.ciphertext)
	sigs := e.signatures
	if !includeSignatures {
		sigs = signature.Set{}
	}
	return signature.Encode(w, sigs)
}

func decodeEncrypted(r *bincodec.Reader) (encrypted, error) {
	var e encrypted
	var err error
	if e.parameter, err = r.ReadUint16(); err != nil {
		return e, fmt.Errorf("parameter: %w", err)
	}
	if e.keyID, err = r.ReadUint16(); err != nil {
		return e, fmt.Errorf("key id: %w", err)
	}
	if e.nonce, err = r.ReadUint64(); err != nil {
		return e, fmt.Errorf("nonce: %w", err)
	}
	if e.counter, err = r.ReadUint64(); err != nil {
		return e, fmt.Errorf("counter: %w", err)
	}
	if e.ciphertext, err = r.ReadBytes64(); err != nil {
		return e, fmt.Errorf("ciphertext: %w", err)
	}
	if e.signatures, err = signature.Decode(r); err != nil {
		return e, err
	}
	return e, nil
}

func (e encrypted) decrypt(key []byte) ([]byte, error) {
	return streamcipher.Decrypt(key, e.nonce, e.counter, e.ciphertext)
}

func (e encrypted) equal(o encrypted) bool {
	return e.parameter == o.parameter &&
		e.keyID == o.keyID &&
		e.nonce == o.nonce &&
		e.counter == o.counter &&
		bytes.Equal(e.ciphertext, o.ciphertext) &&
		e.signatures.Equal(o.signatures)
}

func signAll(preimage []byte, sigs signature.Set, signers []signature.Signer) (signature.Set, error) {
	for i, s := range signers {
		sig, err := s.Sign(preimage)
		if err != nil {
			return sigs, fmt.Errorf("signer %d: %w", i, err)
		}
		sigs = sigs.With(sig)
	}
	return sigs, nil
}

func formationViolation(err error) error {
	return fmt.Errorf("%w: %w", ErrFormationViolation, err)
}

func signatureError(err error) error {
	return fmt.Errorf("%w: %w", ErrSignatureError, err)
}

func trailing(n int) error {
	return fmt.Errorf("%d trailing bytes", n)
}
