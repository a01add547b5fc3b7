package transport

import (
	"context"
	"time"

	"github.com/nats-io/nuid"
	"github.com/pkg/errors"

	"secure_ocpp_cp/internal/securedata"
)

// Client encrypts, signs and sends payloads to peers and decrypts their replies.
type Client struct {
	nodeID string
	sender *Sender
	opts   Options
}

// NewClient returns a client sending as nodeID. opts.Keys is required.
func NewClient(nodeID string, dt DataTransferer, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{nodeID: nodeID, sender: NewSender(dt, opts), opts: opts}
}

// Reply is the outcome of a Transfer.
type Reply struct {
	Request   *securedata.Request
	Response  *securedata.Response
	Plaintext []byte
}

// Transfer sends plaintext to destination encrypted under keyID. A response
// that is not Accepted is returned together with an error wrapping ErrNotAccepted.
func (c *Client) Transfer(ctx context.Context, destination string, parameter, keyID uint16, plaintext []byte) (*Reply, error) {
	env := securedata.Envelope{
		RequestID:   nuid.Next(),
		Destination: destination,
		NetworkPath: securedata.NetworkPath{c.nodeID},
		Timestamp:   time.Now().UTC(),
	}
	req, err := securedata.EncryptWith(c.opts.Keys, env, parameter, keyID, plaintext, c.opts.Signers...)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt secure data transfer")
	}
	resp, err := c.sender.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	reply := &Reply{Request: req, Response: resp}

	if resp.Status() != securedata.StatusAccepted {
		return reply, errors.Wrapf(ErrNotAccepted, "status %s: %s", resp.Status(), resp.AdditionalStatusInfo())
	}
	if c.opts.Verifier != nil {
		if err := resp.VerifySignatures(c.opts.Verifier); err != nil {
			return reply, err
		}
	}
	reply.Plaintext, err = resp.DecryptWith(c.opts.Keys, destination)
	if err != nil {
		return reply, errors.Wrap(err, "decrypt secure data transfer response")
	}
	c.opts.Log.WithField("destination", destination).
		WithField("key_id", keyID).
		WithField("request_id", env.RequestID).
		Info("Secure data transfer accepted")
	return reply, nil
}
