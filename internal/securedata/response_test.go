package securedata

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/require"

	"secure_ocpp_cp/internal/bincodec"
	"secure_ocpp_cp/internal/signature"
	"secure_ocpp_cp/internal/streamcipher"
)

func TestResponseWireLayout(t *testing.T) {
	resp := NewResponse(testEnv, StatusAccepted, "ok", 1, 2, 3, 4, nil)
	b, err := resp.ToBinary(true)
	require.NoError(t, err)

	want := []byte{
		0x00, 0x01, // status
		0, 0, 0, 2, 'o', 'k', // additional status info
		0x00, 0x01,
		0x00, 0x02,
		0, 0, 0, 0, 0, 0, 0, 3,
		0, 0, 0, 0, 0, 0, 0, 4,
		0, 0, 0, 0, 0, 0, 0, 0, // empty ciphertext
		0x00,
	}
	require.Equal(t, want, b)
}

func TestResponseEnvelope(t *testing.T) {
	resp := NewResponse(testEnv, StatusAccepted, "", 0, 0, 0, 0, nil)
	require.Equal(t, "req-1", resp.RequestID())
	require.Equal(t, "CP001", resp.Envelope().Destination)
	require.False(t, resp.Envelope().Timestamp.IsZero())
	require.True(t, resp.Result().OK())
}

func TestResponseRoundtrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x22}, streamcipher.KeySize)
	req, err := Encrypt(testEnv, 9, 4, key, 1, 1, []byte("question"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		reply   []byte
		signers []signature.Signer
	}{
		{
			name:  "accepted",
			reply: []byte(faker.Sentence()),
		},
		{
			name:    "accepted signed",
			reply:   []byte("answer"),
			signers: []signature.Signer{testSigner(t, 4)},
		},
		{
			name:  "empty reply",
			reply: []byte{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := EncryptResponse(req, StatusAccepted, key, 1, 2, tt.reply, tt.signers...)
			require.NoError(t, err)
			require.Equal(t, uint16(9), resp.Parameter())
			require.Equal(t, uint16(4), resp.KeyID())

			b, err := resp.ToBinary(true)
			require.NoError(t, err)
			parsed, err := ParseResponse(b, testEnv)
			require.NoError(t, err)
			require.True(t, resp.Equal(parsed))

			again, err := parsed.ToBinary(true)
			require.NoError(t, err)
			require.Equal(t, b, again)

			plaintext, err := parsed.Decrypt(key)
			require.NoError(t, err)
			require.True(t, bytes.Equal(tt.reply, plaintext))
		})
	}
}

func TestRejectionFactories(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		code ResultCode
	}{
		{"formation violation", FormationViolation(testEnv, "bad json"), ResultFormationViolation},
		{"signature error", SignatureError(testEnv, "bad signature"), ResultSignatureError},
		{"failed", Failed(testEnv, "no key"), ResultFailed},
		{"exception", ExceptionOccurred(testEnv, errors.New("boom")), ResultExceptionOccurred},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, StatusRejected, tt.resp.Status())
			require.Equal(t, tt.code, tt.resp.Result().Code)
			require.NotEmpty(t, tt.resp.Result().Description)
			require.NotEmpty(t, tt.resp.AdditionalStatusInfo())
			require.Empty(t, tt.resp.Ciphertext())

			b, err := tt.resp.ToBinary(true)
			require.NoError(t, err)
			parsed, err := ParseResponse(b, testEnv)
			require.NoError(t, err)
			require.Equal(t, StatusRejected, parsed.Status())
			require.Equal(t, tt.resp.AdditionalStatusInfo(), parsed.AdditionalStatusInfo())
		})
	}
}

func TestFormationViolationScenario(t *testing.T) {
	req := NewRequest(testEnv, 0, 0, 0, 0, nil)
	resp := FormationViolation(req.Envelope(), "bad json")
	require.Equal(t, StatusRejected, resp.Status())
	require.Equal(t, ResultFormationViolation, resp.Result().Code)
	require.Contains(t, resp.Result().String(), "bad json")
}

func TestRejectFromError(t *testing.T) {
	tests := []struct {
		err  error
		code ResultCode
	}{
		{fmt.Errorf("x: %w", bincodec.ErrTruncatedInput), ResultFormationViolation},
		{signature.ErrSignatureDecode, ResultFormationViolation},
		{ErrFormationViolation, ResultFormationViolation},
		{signature.ErrInvalidSignature, ResultSignatureError},
		{ErrSignatureError, ResultSignatureError},
		{streamcipher.ErrInvalidKey, ResultFailed},
		{ErrProcessingFailed, ResultFailed},
		{ErrTimeout, ResultTimeout},
		{errors.New("anything"), ResultFailed},
	}
	for _, tt := range tests {
		resp := Reject(testEnv, tt.err)
		require.Equal(t, StatusRejected, resp.Status(), tt.err.Error())
		require.Equal(t, tt.code, resp.Result().Code, tt.err.Error())
	}
	require.True(t, ResultFromError(nil).OK())
}

func TestResultErr(t *testing.T) {
	require.NoError(t, Result{Code: ResultOK}.Err())
	require.ErrorIs(t, FormationViolation(testEnv, "bad json").Result().Err(), ErrFormationViolation)
	require.ErrorIs(t, SignatureError(testEnv, "x").Result().Err(), ErrSignatureError)
	require.ErrorIs(t, Failed(testEnv, "x").Result().Err(), ErrProcessingFailed)
	require.ErrorIs(t, ExceptionOccurred(testEnv, "x").Result().Err(), ErrProcessingFailed)
	require.ErrorIs(t, Reject(testEnv, ErrTimeout).Result().Err(), ErrTimeout)

	wrapped := Reject(testEnv, fmt.Errorf("%w: %w", ErrProcessingFailed, errors.New("unsupported parameter")))
	require.Equal(t, ResultFailed, wrapped.Result().Code)
	require.Contains(t, wrapped.AdditionalStatusInfo(), "processing failed")
	require.Contains(t, wrapped.AdditionalStatusInfo(), "unsupported parameter")
}

func TestResponseTruncation(t *testing.T) {
	resp, err := EncryptResponse(NewRequest(testEnv, 1, 1, 0, 0, nil), StatusAccepted,
		make([]byte, 16), 5, 6, []byte("reply"), testSigner(t, 9))
	require.NoError(t, err)
	resp = NewResponse(testEnv, resp.Status(), "info", resp.Parameter(), resp.KeyID(),
		resp.Nonce(), resp.Counter(), resp.Ciphertext(), resp.Signatures().Items()...)
	b, err := resp.ToBinary(true)
	require.NoError(t, err)

	for n := 0; n < len(b); n++ {
		parsed, msg, ok := TryParseResponse(b[:n], testEnv)
		require.False(t, ok, "prefix %d", n)
		require.Nil(t, parsed)
		require.NotEmpty(t, msg)
	}
}

func TestResponseVendorStatusPreserved(t *testing.T) {
	resp := NewResponse(testEnv, Status(0x1234), "", 0, 0, 0, 0, nil)
	b, err := resp.ToBinary(true)
	require.NoError(t, err)
	parsed, err := ParseResponse(b, testEnv)
	require.NoError(t, err)
	require.Equal(t, Status(0x1234), parsed.Status())
	require.False(t, parsed.Status().IsKnown())
}

func TestResponseSignatureVerification(t *testing.T) {
	signer := testSigner(t, 6)
	req := NewRequest(testEnv, 1, 1, 0, 0, nil)
	resp, err := EncryptResponse(req, StatusAccepted, make([]byte, 16), 1, 1, []byte("r"), signer)
	require.NoError(t, err)
	require.NoError(t, resp.VerifySignatures(signature.NewEd25519Verifier(signer.PublicKey())))
	require.ErrorIs(t, resp.VerifySignatures(signature.NewEd25519Verifier()), ErrSignatureError)
}

func TestEncryptResponseWith(t *testing.T) {
	keys := &fakeKeys{key: bytes.Repeat([]byte{3}, 16), nonce: 8}
	req := NewRequest(testEnv, 2, 5, 0, 0, nil)
	resp, err := EncryptResponseWith(keys, req, StatusAccepted, []byte("pong"))
	require.NoError(t, err)
	require.Equal(t, uint64(8), resp.Nonce())
	require.Equal(t, uint64(streamcipher.BlocksPerMessage), resp.Counter())
	plaintext, err := resp.DecryptWith(keys, "CSMS")
	require.NoError(t, err)
	require.Equal(t, []byte("pong"), plaintext)
}
