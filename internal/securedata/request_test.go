package securedata

import (
	"bytes"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/require"

	"secure_ocpp_cp/internal/bincodec"
	"secure_ocpp_cp/internal/keystore"
	"secure_ocpp_cp/internal/signature"
	"secure_ocpp_cp/internal/streamcipher"
)

var testEnv = Envelope{
	RequestID:   "req-1",
	Destination: "CSMS",
	NetworkPath: NetworkPath{"CP001"},
	Timestamp:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
}

func testSigner(t *testing.T, seed byte) *signature.Ed25519Signer {
	t.Helper()
	s, err := signature.NewEd25519Signer(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize)))
	require.NoError(t, err)
	return s
}

func TestRequestWireLayout(t *testing.T) {
	req := NewRequest(testEnv, 0x0102, 0x0304, 0x05, 0x06, []byte{0xaa, 0xbb})
	b, err := req.ToBinary(true)
	require.NoError(t, err)

	want := []byte{
		0x01, 0x02, // parameter
		0x03, 0x04, // key id
		0, 0, 0, 0, 0, 0, 0, 0x05, // nonce
		0, 0, 0, 0, 0, 0, 0, 0x06, // counter
		0, 0, 0, 0, 0, 0, 0, 0x02, // ciphertext length
		0xaa, 0xbb,
		0x00, // signature count
	}
	require.Equal(t, want, b)
}

func TestHelloScenario(t *testing.T) {
	key := make([]byte, streamcipher.KeySize)
	req, err := Encrypt(testEnv, 0, 1, key, 1, 0, []byte("HELLO"))
	require.NoError(t, err)
	require.Len(t, req.Ciphertext(), 5)

	b, err := req.ToBinary(true)
	require.NoError(t, err)

	received, err := ParseRequest(b, testEnv)
	require.NoError(t, err)
	plaintext, err := received.Decrypt(key)
	require.NoError(t, err)
	require.Equal(t, []byte("HELLO"), plaintext)

	wrong, err := received.Decrypt(bytes.Repeat([]byte{1}, streamcipher.KeySize))
	require.NoError(t, err)
	require.NotEqual(t, []byte("HELLO"), wrong)
}

func TestRequestRoundtrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, streamcipher.KeySize)
	tests := []struct {
		name      string
		plaintext []byte
		signers   []signature.Signer
	}{
		{"empty", []byte{}, nil},
		{"no signatures", []byte(faker.Sentence()), nil},
		{"one signature", []byte(faker.Paragraph()), []signature.Signer{testSigner(t, 1)}},
		{"two signatures", []byte("payload"), []signature.Signer{testSigner(t, 1), testSigner(t, 2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Encrypt(testEnv, 7, 3, key, 42, 99, tt.plaintext, tt.signers...)
			require.NoError(t, err)
			require.Equal(t, len(tt.signers), req.Signatures().Len())

			b, err := req.ToBinary(true)
			require.NoError(t, err)
			again, err := req.ToBinary(true)
			require.NoError(t, err)
			require.Equal(t, b, again)

			parsed, err := ParseRequest(b, testEnv)
			require.NoError(t, err)
			require.True(t, req.Equal(parsed))
			require.Equal(t, uint16(7), parsed.Parameter())
			require.Equal(t, uint16(3), parsed.KeyID())
			require.Equal(t, uint64(42), parsed.Nonce())
			require.Equal(t, uint64(99), parsed.Counter())

			reencoded, err := parsed.ToBinary(true)
			require.NoError(t, err)
			require.Equal(t, b, reencoded)

			plaintext, err := parsed.Decrypt(key)
			require.NoError(t, err)
			require.True(t, bytes.Equal(tt.plaintext, plaintext))
		})
	}
}

func TestRequestWithoutSignatures(t *testing.T) {
	req, err := Encrypt(testEnv, 0, 0, make([]byte, 16), 1, 1, []byte("x"), testSigner(t, 1))
	require.NoError(t, err)

	full, err := req.ToBinary(true)
	require.NoError(t, err)
	preimage, err := req.ToBinary(false)
	require.NoError(t, err)
	require.Less(t, len(preimage), len(full))
	require.Equal(t, byte(0), preimage[len(preimage)-1])
	require.Equal(t, full[:len(preimage)-1], preimage[:len(preimage)-1])
}

func TestRequestTruncation(t *testing.T) {
	req, err := Encrypt(testEnv, 1, 2, make([]byte, 16), 3, 4, []byte("truncate me"), testSigner(t, 5))
	require.NoError(t, err)
	b, err := req.ToBinary(true)
	require.NoError(t, err)

	for n := 0; n < len(b); n++ {
		parsed, msg, ok := TryParseRequest(b[:n], testEnv)
		require.False(t, ok, "prefix %d", n)
		require.Nil(t, parsed)
		require.NotEmpty(t, msg)

		_, err := ParseRequest(b[:n], testEnv)
		require.ErrorIs(t, err, ErrFormationViolation)
	}
}

func TestRequestTrailingBytes(t *testing.T) {
	b, err := NewRequest(testEnv, 0, 0, 0, 0, nil).ToBinary(true)
	require.NoError(t, err)
	_, msg, ok := TryParseRequest(append(b, 0), testEnv)
	require.False(t, ok)
	require.Contains(t, msg, "trailing")
}

func TestRequestHugeCiphertextLength(t *testing.T) {
	w := bincodec.NewWriter(0)
	w.WriteUint16(0)
	w.WriteUint16(0)
	w.WriteUint64(0)
	w.WriteUint64(0)
	w.WriteUint64(1 << 62)
	_, err := ParseRequest(w.Bytes(), testEnv)
	require.ErrorIs(t, err, bincodec.ErrTruncatedInput)
}

func TestRequestBadSignature(t *testing.T) {
	b, err := NewRequest(testEnv, 0, 0, 0, 0, nil).ToBinary(true)
	require.NoError(t, err)
	b = b[:len(b)-1]
	b = append(b, 1, 0, 2, 0xff, 0xee)

	_, err = ParseRequest(b, testEnv)
	require.ErrorIs(t, err, signature.ErrSignatureDecode)
	require.ErrorIs(t, err, ErrFormationViolation)
}

func TestRequestSignatureVerification(t *testing.T) {
	signer := testSigner(t, 1)
	req, err := Encrypt(testEnv, 0, 1, make([]byte, 16), 1, 0, []byte("signed"), signer)
	require.NoError(t, err)

	b, err := req.ToBinary(true)
	require.NoError(t, err)
	parsed, err := ParseRequest(b, testEnv)
	require.NoError(t, err)
	require.NoError(t, parsed.VerifySignatures(signature.NewEd25519Verifier(signer.PublicKey())))

	// flip a ciphertext bit
	b[len(b)-1-2-signatureBlobLen(t, req)-1] ^= 0x01
	tampered, err := ParseRequest(b, testEnv)
	require.NoError(t, err)
	err = tampered.VerifySignatures(signature.NewEd25519Verifier(signer.PublicKey()))
	require.ErrorIs(t, err, ErrSignatureError)
	require.ErrorIs(t, err, signature.ErrInvalidSignature)
}

func signatureBlobLen(t *testing.T, req *Request) int {
	t.Helper()
	b, err := req.Signatures().Items()[0].MarshalBinary()
	require.NoError(t, err)
	return len(b)
}

func TestEncryptInvalidKey(t *testing.T) {
	req, err := Encrypt(testEnv, 0, 0, []byte("short"), 0, 0, []byte("x"))
	require.Nil(t, req)
	require.ErrorIs(t, err, streamcipher.ErrInvalidKey)
}

func TestSignAddsDistinctOnly(t *testing.T) {
	signer := testSigner(t, 3)
	req, err := Encrypt(testEnv, 0, 0, make([]byte, 16), 0, 0, []byte("x"), signer)
	require.NoError(t, err)
	again, err := req.Sign(signer)
	require.NoError(t, err)
	require.Equal(t, 1, again.Signatures().Len())
}

func TestRequestImmutable(t *testing.T) {
	ciphertext := []byte{1, 2, 3}
	path := NetworkPath{"CP001"}
	req := NewRequest(Envelope{NetworkPath: path}, 0, 0, 0, 0, ciphertext)
	ciphertext[0] = 9
	path[0] = "other"
	req.Ciphertext()[1] = 9

	require.Equal(t, []byte{1, 2, 3}, req.Ciphertext())
	require.Equal(t, "CP001", req.Envelope().NetworkPath.Source())
}

type fakeKeys struct {
	key     []byte
	nonce   uint64
	counter uint64
}

func (f *fakeKeys) EncryptionKey(string, uint16) ([]byte, error)  { return f.key, nil }
func (f *fakeKeys) EncryptionNonce(string, uint16) (uint64, error) { return f.nonce, nil }
func (f *fakeKeys) EncryptionCounter(string, uint16) (uint64, error) {
	f.counter += streamcipher.BlocksPerMessage
	return f.counter, nil
}
func (f *fakeKeys) DecryptionKey(string, uint16) ([]byte, error) { return f.key, nil }

func TestEncryptWith(t *testing.T) {
	keys := &fakeKeys{key: bytes.Repeat([]byte{5}, 16), nonce: 77}
	a, err := EncryptWith(keys, testEnv, 1, 2, []byte("first"))
	require.NoError(t, err)
	b, err := EncryptWith(keys, testEnv, 1, 2, []byte("second"))
	require.NoError(t, err)
	require.Equal(t, uint64(77), a.Nonce())
	require.NotEqual(t, a.Counter(), b.Counter())

	plaintext, err := b.DecryptWith(keys, "CP001")
	require.NoError(t, err)
	require.Equal(t, []byte("second"), plaintext)
}

func TestEncryptWithConsecutiveMessagesUseDisjointKeystream(t *testing.T) {
	keys := keystore.NewMemory()
	require.NoError(t, keys.SetKey("peer", 1, make([]byte, keystore.KeySize), 42))
	env := Envelope{Destination: "peer"}

	p1 := bytes.Repeat([]byte("A"), 32)
	p2 := bytes.Repeat([]byte("B"), 32)
	a, err := EncryptWith(keys, env, 1, 1, p1)
	require.NoError(t, err)
	b, err := EncryptWith(keys, env, 1, 1, p2)
	require.NoError(t, err)
	require.GreaterOrEqual(t, b.Counter()-a.Counter(), streamcipher.Blocks(len(p1)))

	c1, c2 := a.Ciphertext(), b.Ciphertext()
	xorCipher := make([]byte, 16)
	xorPlain := make([]byte, 16)
	for i := range xorCipher {
		xorCipher[i] = c1[16+i] ^ c2[i]
		xorPlain[i] = p1[16+i] ^ p2[i]
	}
	require.NotEqual(t, xorPlain, xorCipher)
}

func TestEncryptWithRejectsOversizedPlaintext(t *testing.T) {
	require.NoError(t, checkMessageSize(streamcipher.MaxMessageSize))
	require.ErrorIs(t, checkMessageSize(streamcipher.MaxMessageSize+1), ErrMessageTooLarge)
}

func TestNetworkPath(t *testing.T) {
	var empty NetworkPath
	require.Equal(t, "", empty.Source())
	p := NetworkPath{"a"}
	q := p.Append("b")
	require.Equal(t, NetworkPath{"a"}, p)
	require.Equal(t, NetworkPath{"a", "b"}, q)
	require.Equal(t, "a", q.Source())
}
