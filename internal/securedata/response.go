package securedata

import (
	"fmt"

	"secure_ocpp_cp/internal/bincodec"
	"secure_ocpp_cp/internal/signature"
	"secure_ocpp_cp/internal/streamcipher"
)

// Response is an immutable SecureDataTransfer response. On the wire the
// encrypted section is preceded by
//
//	Status               uint16
//	AdditionalStatusInfo uint32 length + UTF-8
type Response struct {
	env        Envelope
	status     Status
	statusInfo string
	result     Result
	encrypted
}

// NewResponse builds a response to a message carried by reqEnv around an
// already encrypted payload. An empty ciphertext is valid.
func NewResponse(reqEnv Envelope, status Status, statusInfo string, parameter, keyID uint16, nonce, counter uint64, ciphertext []byte, sigs ...signature.Signature) *Response {
	return &Response{
		env:        reqEnv.reply(),
		status:     status,
		statusInfo: statusInfo,
		result:     Result{Code: ResultOK},
		encrypted:  newEncrypted(parameter, keyID, nonce, counter, ciphertext, signature.NewSet(sigs...)),
	}
}

// EncryptResponse encrypts plaintext as the reply to req, reusing its
// parameter and key id.
func EncryptResponse(req *Request, status Status, key []byte, nonce, counter uint64, plaintext []byte, signers ...signature.Signer) (*Response, error) {
	ciphertext, err := streamcipher.Encrypt(key, nonce, counter, plaintext)
	if err != nil {
		return nil, err
	}
	resp := NewResponse(req.env, status, "", req.parameter, req.keyID, nonce, counter, ciphertext)
	return resp.Sign(signers...)
}

// EncryptResponseWith is EncryptResponse with key material for the request
// source taken from keys.
func EncryptResponseWith(keys EncryptionKeys, req *Request, status Status, plaintext []byte, signers ...signature.Signer) (*Response, error) {
	t, err := lookupEncryption(keys, req.env.NetworkPath.Source(), req.keyID, len(plaintext))
	if err != nil {
		return nil, err
	}
	return EncryptResponse(req, status, t.key, t.nonce, t.counter, plaintext, signers...)
}

func reject(reqEnv Envelope, code ResultCode, description string) *Response {
	resp := NewResponse(reqEnv, StatusRejected, description, 0, 0, 0, 0, nil)
	resp.result = Result{Code: code, Description: description}
	return resp
}

// FormationViolation answers a message whose bytes failed structural validation.
func FormationViolation(reqEnv Envelope, description string) *Response {
	return reject(reqEnv, ResultFormationViolation, description)
}

// SignatureError answers a message whose signatures did not validate.
func SignatureError(reqEnv Envelope, description string) *Response {
	return reject(reqEnv, ResultSignatureError, description)
}

// Failed answers a message that could not be processed.
func Failed(reqEnv Envelope, description string) *Response {
	return reject(reqEnv, ResultFailed, description)
}

// ExceptionOccurred answers a message whose processing panicked or failed unexpectedly.
func ExceptionOccurred(reqEnv Envelope, cause any) *Response {
	return reject(reqEnv, ResultExceptionOccurred, fmt.Sprintf("exception occurred: %v", cause))
}

// Reject picks the rejection factory matching err.
func Reject(reqEnv Envelope, err error) *Response {
	res := ResultFromError(err)
	return reject(reqEnv, res.Code, res.Description)
}

// ParseResponse decodes a binary response. data must be consumed exactly.
func ParseResponse(data []byte, env Envelope) (*Response, error) {
	r := bincodec.NewReader(data)
	code, err := r.ReadUint16()
	if err != nil {
		return nil, formationViolation(fmt.Errorf("status: %w", err))
	}
	info, err := r.ReadString32()
	if err != nil {
		return nil, formationViolation(fmt.Errorf("additional status info: %w", err))
	}
	e, err := decodeEncrypted(r)
	if err != nil {
		return nil, formationViolation(err)
	}
	if r.Remaining() != 0 {
		return nil, formationViolation(trailing(r.Remaining()))
	}
	return &Response{
		env:        env.clone(),
		status:     Status(code),
		statusInfo: info,
		result:     Result{Code: ResultOK},
		encrypted:  e,
	}, nil
}

// TryParseResponse is ParseResponse reporting failure as text.
func TryParseResponse(data []byte, env Envelope) (*Response, string, bool) {
	resp, err := ParseResponse(data, env)
	if err != nil {
		return nil, err.Error(), false
	}
	return resp, "", true
}

// ToBinary encodes the response. See Request.ToBinary.
func (r *Response) ToBinary(includeSignatures bool) ([]byte, error) {
	w := bincodec.NewWriter(6 + len(r.statusInfo) + encryptedHeaderSize + len(r.ciphertext))
	w.WriteUint16(r.status.Code())
	if err := w.WriteString32(r.statusInfo); err != nil {
		return nil, err
	}
	if err := r.encode(w, includeSignatures); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Sign returns a copy of r with signatures from signers added.
func (r *Response) Sign(signers ...signature.Signer) (*Response, error) {
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

func (r *Response) VerifySignatures(v signature.Verifier) error {
	preimage, err := r.ToBinary(false)
	if err != nil {
		return err
	}
	if err := signature.Verify(v, preimage, r.signatures); err != nil {
		return signatureError(err)
	}
	return nil
}

// Decrypt returns the plaintext of the response payload under key.
func (r *Response) Decrypt(key []byte) ([]byte, error) {
	return r.decrypt(key)
}

// DecryptWith decrypts with the key source uses for r.KeyID().
func (r *Response) DecryptWith(keys DecryptionKeys, source string) ([]byte, error) {
	key, err := keys.DecryptionKey(source, r.keyID)
	if err != nil {
		return nil, err
	}
	return r.decrypt(key)
}

func (r *Response) Envelope() Envelope           { return r.env.clone() }
func (r *Response) RequestID() string            { return r.env.RequestID }
func (r *Response) Status() Status               { return r.status }
func (r *Response) AdditionalStatusInfo() string { return r.statusInfo }
func (r *Response) Parameter() uint16            { return r.parameter }
func (r *Response) KeyID() uint16                { return r.keyID }
func (r *Response) Nonce() uint64                { return r.nonce }
func (r *Response) Counter() uint64              { return r.counter }
func (r *Response) Signatures() signature.Set    { return r.signatures }

// Result is the outcome carried next to the status in the outer result
// envelope. It is not part of the binary frame.
func (r *Response) Result() Result { return r.result }

func (r *Response) Ciphertext() []byte {
	out := make([]byte, len(r.ciphertext))
	copy(out, r.ciphertext)
	return out
}

// Equal compares the request id and every framed field.
func (r *Response) Equal(o *Response) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.env.RequestID == o.env.RequestID &&
		r.status == o.status &&
		r.statusInfo == o.statusInfo &&
		r.encrypted.equal(o.encrypted)
}
