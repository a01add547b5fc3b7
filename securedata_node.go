package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"secure_ocpp_cp/internal/keystore"
	"secure_ocpp_cp/internal/signature"
	"secure_ocpp_cp/internal/transport"
)

var secureOpts transport.Options

func signerFromSeed(seedHex string) (*signature.Ed25519Signer, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, errors.Wrap(err, "signing seed")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return signature.NewEd25519Signer(ed25519.NewKeyFromSeed(seed))
}

func verifierFromKeys(keys []string) (*signature.Ed25519Verifier, error) {
	trusted := make([]ed25519.PublicKey, 0, len(keys))
	for _, k := range keys {
		pub, err := hex.DecodeString(k)
		if err != nil {
			return nil, errors.Wrapf(err, "trusted key %q", k)
		}
		if len(pub) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("trusted key %q must be %d bytes, got %d", k, ed25519.PublicKeySize, len(pub))
		}
		trusted = append(trusted, ed25519.PublicKey(pub))
	}
	return signature.NewEd25519Verifier(trusted...), nil
}

func setUpSecureData() error {
	sd := config.SecureData
	secureOpts = transport.Options{
		VendorID:  sd.VendorID,
		MessageID: sd.MessageID,
		Timeout:   sd.Timeout,
		Log:       appLogger,
		Keys:      keyStore,
	}
	if sd.SigningSeed != "" {
		signer, err := signerFromSeed(sd.SigningSeed)
		if err != nil {
			return err
		}
		secureOpts.Signers = []signature.Signer{signer}
		appLogger.WithField("public_key", hex.EncodeToString(signer.PublicKey())).
			Info("Secure data transfers will be signed")
	}
	if len(sd.TrustedKeys) > 0 {
		verifier, err := verifierFromKeys(sd.TrustedKeys)
		if err != nil {
			return err
		}
		secureOpts.Verifier = verifier
	}
	secureHandler = transport.NewHandler(config.ChargePointID, echoProcessor, secureOpts)
	return nil
}

func newSecureClient(dt transport.DataTransferer) *transport.Client {
	return transport.NewClient(config.ChargePointID, dt, secureOpts)
}

// echoProcessor answers every secure payload with the payload itself.
func echoProcessor(_ context.Context, source string, parameter uint16, plaintext []byte) ([]byte, error) {
	appLogger.WithField("source", source).
		WithField("parameter", parameter).
		WithField("size", len(plaintext)).
		Info("Secure data received")
	return plaintext, nil
}

func sendSecureData(ctx context.Context, parameter, keyID uint16, plaintext []byte) (*transport.Reply, error) {
	if secureClient == nil {
		return nil, errors.New("charge point not started")
	}
	return secureClient.Transfer(ctx, config.SecureData.Peer, parameter, keyID, plaintext)
}

func defaultSecureParameter() uint16 {
	v, err := GetKeyValue(SecureDataTransferParameter)
	if err != nil || v == "" {
		return config.SecureData.Parameter
	}
	p, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return config.SecureData.Parameter
	}
	return uint16(p)
}

// parseSecureDataKey parses "<keyId>:<hex key>".
// parseSecureDataKey parses "<keyId>:<hex key>". An empty key means removal
// and is returned as nil.
func parseSecureDataKey(value string) (uint16, []byte, error) {
	idText, keyText, ok := strings.Cut(value, ":")
	if !ok {
		return 0, nil, fmt.Errorf("expected <keyId>:<hex key>")
	}
	id, err := strconv.ParseUint(strings.TrimSpace(idText), 10, 16)
	if err != nil {
		return 0, nil, errors.Wrap(err, "key id")
	}
	keyText = strings.TrimSpace(keyText)
	if keyText == "" {
		return uint16(id), nil, nil
	}
	key, err := hex.DecodeString(keyText)
	if err != nil {
		return 0, nil, errors.Wrap(err, "key")
	}
	if len(key) != keystore.KeySize {
		return 0, nil, fmt.Errorf("key must be %d bytes, got %d", keystore.KeySize, len(key))
	}
	return uint16(id), key, nil
}

type secureKeyInstaller interface {
	InstallKey(node string, keyID uint16, key []byte) error
	RemoveKey(node string, keyID uint16) error
}

// applySecureDataKey installs or, for "<keyId>:", removes a key of node.
func applySecureDataKey(ks secureKeyInstaller, node, value string) error {
	keyID, secret, err := parseSecureDataKey(value)
	if err != nil {
		return err
	}
	if secret == nil {
		return ks.RemoveKey(node, keyID)
	}
	return ks.InstallKey(node, keyID, secret)
}

func installedKeyIDs() (string, error) {
	keys, err := keyStore.Keys()
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.Node == config.SecureData.Peer && !k.Derived {
			ids = append(ids, strconv.Itoa(int(k.KeyID)))
		}
	}
	return strings.Join(ids, ","), nil
}
