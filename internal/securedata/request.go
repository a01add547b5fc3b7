// Package securedata implements the SecureDataTransfer request and response
// messages: an AES-CTR encrypted opaque payload plus detached signatures,
// framed in the binary OCPP layout.
package securedata

import (
	"secure_ocpp_cp/internal/bincodec"
	"secure_ocpp_cp/internal/signature"
	"secure_ocpp_cp/internal/streamcipher"
)

// Request is an immutable SecureDataTransfer request.
type Request struct {
	env Envelope
	encrypted
}

// NewRequest builds a request around an already encrypted payload.
func NewRequest(env Envelope, parameter, keyID uint16, nonce, counter uint64, ciphertext []byte, sigs ...signature.Signature) *Request {
	return &Request{
		env:       env.clone(),
		encrypted: newEncrypted(parameter, keyID, nonce, counter, ciphertext, signature.NewSet(sigs...)),
	}
}

// Encrypt encrypts plaintext and builds a request signed by signers.
// The (key, nonce, counter) triple must not have been used before.
func Encrypt(env Envelope, parameter, keyID uint16, key []byte, nonce, counter uint64, plaintext []byte, signers ...signature.Signer) (*Request, error) {
	ciphertext, err := streamcipher.Encrypt(key, nonce, counter, plaintext)
	if err != nil {
		return nil, err
	}
	return NewRequest(env, parameter, keyID, nonce, counter, ciphertext).Sign(signers...)
}

// EncryptWith is Encrypt with key material taken from keys for env.Destination.
func EncryptWith(keys EncryptionKeys, env Envelope, parameter, keyID uint16, plaintext []byte, signers ...signature.Signer) (*Request, error) {
	t, err := lookupEncryption(keys, env.Destination, keyID, len(plaintext))
	if err != nil {
		return nil, err
	}
	return Encrypt(env, parameter, keyID, t.key, t.nonce, t.counter, plaintext, signers...)
}

// ParseRequest decodes a binary request. data must be consumed exactly.
func ParseRequest(data []byte, env Envelope) (*Request, error) {
	r := bincodec.NewReader(data)
	e, err := decodeEncrypted(r)
	if err != nil {
		return nil, formationViolation(err)
	}
	if r.Remaining() != 0 {
		return nil, formationViolation(trailing(r.Remaining()))
	}
	return &Request{env: env.clone(), encrypted: e}, nil
}

// TryParseRequest is ParseRequest reporting failure as text.
func TryParseRequest(data []byte, env Envelope) (*Request, string, bool) {
	req, err := ParseRequest(data, env)
	if err != nil {
		return nil, err.Error(), false
	}
	return req, "", true
}

// ToBinary encodes the request. Without signatures the count byte is zero,
// which is the pre-image signers sign.
func (r *Request) ToBinary(includeSignatures bool) ([]byte, error) {
	w := bincodec.NewWriter(encryptedHeaderSize + len(r.ciphertext))
	if err := r.encode(w, includeSignatures); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Sign returns a copy of r with signatures from signers added.
func (r *Request) Sign(signers ...signature.Signer) (*Request, error) {
	if len(signers) == 0 {
		return r, nil
	}
	preimage, err := r.ToBinary(false)
	if err != nil {
		return nil, err
	}
	sigs, err := signAll(preimage, r.signatures, signers)
	if err != nil {
		return nil, err
	}
	out := *r
	out.signatures = sigs
	return &out, nil
}

// VerifySignatures checks the request signatures with v.
func (r *Request) VerifySignatures(v signature.Verifier) error {
	preimage, err := r.ToBinary(false)
	if err != nil {
		return err
	}
	if err := signature.Verify(v, preimage, r.signatures); err != nil {
		return signatureError(err)
	}
	return nil
}

// Decrypt returns the plaintext under key. There is no integrity tag, so a
// wrong key yields garbage rather than an error.
func (r *Request) Decrypt(key []byte) ([]byte, error) {
	return r.decrypt(key)
}

// DecryptWith decrypts with the key source uses for r.KeyID().
func (r *Request) DecryptWith(keys DecryptionKeys, source string) ([]byte, error) {
	key, err := keys.DecryptionKey(source, r.keyID)
	if err != nil {
		return nil, err
	}
	return r.decrypt(key)
}

func (r *Request) Envelope() Envelope        { return r.env.clone() }
func (r *Request) RequestID() string         { return r.env.RequestID }
func (r *Request) Parameter() uint16         { return r.parameter }
func (r *Request) KeyID() uint16             { return r.keyID }
func (r *Request) Nonce() uint64             { return r.nonce }
func (r *Request) Counter() uint64           { return r.counter }
func (r *Request) Signatures() signature.Set { return r.signatures }

// Ciphertext returns a copy of the encrypted payload.
func (r *Request) Ciphertext() []byte {
	out := make([]byte, len(r.ciphertext))
	copy(out, r.ciphertext)
	return out
}

// Equal compares the request id and every framed field.
func (r *Request) Equal(o *Request) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.env.RequestID == o.env.RequestID && r.encrypted.equal(o.encrypted)
}
