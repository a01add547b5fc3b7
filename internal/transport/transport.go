// Package transport carries SecureDataTransfer frames inside OCPP 1.6
// DataTransfer messages.
package transport

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"secure_ocpp_cp/internal/keystore"
	"secure_ocpp_cp/internal/signature"
)

const (
	DefaultVendorID  = "org.openchargealliance.securedata"
	DefaultMessageID = "SecureDataTransfer"
	DefaultTimeout   = 30 * time.Second
)

var (
	// ErrRejectedByPeer is returned when the peer refused the DataTransfer itself.
	ErrRejectedByPeer = errors.New("transport: data transfer rejected by peer")
	// ErrNotAccepted is returned when the SecureDataTransfer response is not Accepted.
	ErrNotAccepted = errors.New("transport: secure data transfer not accepted")
	// ErrBadFrame is returned when the DataTransfer data is not a base64 frame.
	ErrBadFrame = errors.New("transport: malformed frame")
)

// DataTransferer sends an OCPP 1.6 DataTransfer and waits for its
// confirmation. ocpp16.ChargePoint satisfies it.
type DataTransferer interface {
	DataTransfer(vendorId string, props ...func(request *core.DataTransferRequest)) (*core.DataTransferConfirmation, error)
}

// Options configure both directions of the carrier.
type Options struct {
	VendorID  string
	MessageID string
	// Timeout bounds a Send when the context has no earlier deadline.
	Timeout time.Duration
	Log     logrus.FieldLogger
	Signers []signature.Signer
	// Verifier, when set, requires valid signatures on received messages.
	Verifier signature.Verifier
	Keys     keystore.KeyStore
}

func (o Options) withDefaults() Options {
	if o.VendorID == "" {
		o.VendorID = DefaultVendorID
	}
	if o.MessageID == "" {
		o.MessageID = DefaultMessageID
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	return o
}

func encodeFrame(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeFrame(data interface{}) ([]byte, error) {
	switch v := data.(type) {
	case string:
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
		return b, nil
	case []byte:
		return v, nil
	case nil:
		return nil, fmt.Errorf("%w: no data", ErrBadFrame)
	default:
		return nil, fmt.Errorf("%w: data is %T", ErrBadFrame, data)
	}
}
