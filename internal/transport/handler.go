package transport

import (
	"context"
	"fmt"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/nats-io/nuid"
	"github.com/sirupsen/logrus"

	"secure_ocpp_cp/internal/securedata"
)

// Processor handles a decrypted payload and returns the plaintext reply.
type Processor func(ctx context.Context, source string, parameter uint16, plaintext []byte) ([]byte, error)

// Handler answers inbound secure data transfers. Every frame it receives is
// answered with a parseable response.
type Handler struct {
	nodeID  string
	process Processor
	opts    Options
}

// NewHandler returns a handler for nodeID. opts.Keys is required.
func NewHandler(nodeID string, process Processor, opts Options) *Handler {
	return &Handler{nodeID: nodeID, process: process, opts: opts.withDefaults()}
}

// Matches reports whether request is a secure data transfer for this carrier.
func (h *Handler) Matches(request *core.DataTransferRequest) bool {
	return request.VendorId == h.opts.VendorID
}

// HandleDataTransfer answers a DataTransfer received from source. The OCPP
// call id is not exposed to core handlers, so the request gets a local id
// for logging; the sender correlates the confirmation with its own request.
func (h *Handler) HandleDataTransfer(source string, request *core.DataTransferRequest) (*core.DataTransferConfirmation, error) {
	if !h.Matches(request) {
		return core.NewDataTransferConfirmation(core.DataTransferStatusUnknownVendorId), nil
	}
	if request.MessageId != h.opts.MessageID {
		return core.NewDataTransferConfirmation(core.DataTransferStatusUnknownMessageId), nil
	}
	env := securedata.Envelope{
		RequestID:   nuid.Next(),
		Destination: h.nodeID,
		NetworkPath: securedata.NetworkPath{source},
	}

	var resp *securedata.Response
	frame, err := decodeFrame(request.Data)
	if err != nil {
		resp = securedata.FormationViolation(env, err.Error())
	} else {
		resp = h.Respond(context.Background(), env, frame)
	}

	b, err := resp.ToBinary(true)
	if err != nil {
		h.opts.Log.WithError(err).Error("Cannot encode secure data transfer response")
		b, _ = securedata.Failed(env, "response encoding failed").ToBinary(true)
	}
	conf := core.NewDataTransferConfirmation(core.DataTransferStatusAccepted)
	conf.Data = encodeFrame(b)
	return conf, nil
}

// Respond parses, verifies, decrypts and processes frame.
func (h *Handler) Respond(ctx context.Context, env securedata.Envelope, frame []byte) (resp *securedata.Response) {
	source := env.NetworkPath.Source()
	log := h.opts.Log.WithFields(logrus.Fields{"source": source, "request_id": env.RequestID})
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Secure data transfer processing panicked")
			resp = h.sign(securedata.ExceptionOccurred(env, r))
		}
	}()

	req, err := securedata.ParseRequest(frame, env)
	if err != nil {
		log.WithError(err).Warn("Malformed secure data transfer")
		return h.sign(securedata.FormationViolation(env, err.Error()))
	}
	log = log.WithFields(logrus.Fields{
		"key_id":    req.KeyID(),
		"parameter": req.Parameter(),
		"nonce":     req.Nonce(),
		"counter":   req.Counter(),
	})

	if h.opts.Verifier != nil {
		if err := req.VerifySignatures(h.opts.Verifier); err != nil {
			log.WithError(err).Warn("Secure data transfer signature check failed")
			return h.sign(securedata.SignatureError(env, err.Error()))
		}
	}

	plaintext, err := req.DecryptWith(h.opts.Keys, source)
	if err != nil {
		log.WithError(err).Warn("Cannot decrypt secure data transfer")
		return h.sign(securedata.Reject(env, err))
	}

	reply, err := h.process(ctx, source, req.Parameter(), plaintext)
	if err != nil {
		log.WithError(err).Warn("Secure data transfer processing failed")
		return h.sign(securedata.Reject(env, fmt.Errorf("%w: %w", securedata.ErrProcessingFailed, err)))
	}

	resp, err = securedata.EncryptResponseWith(h.opts.Keys, req, securedata.StatusAccepted, reply, h.opts.Signers...)
	if err != nil {
		log.WithError(err).Error("Cannot encrypt secure data transfer response")
		return h.sign(securedata.Reject(env, err))
	}
	log.Info("Secure data transfer accepted")
	return resp
}

func (h *Handler) sign(resp *securedata.Response) *securedata.Response {
	signed, err := resp.Sign(h.opts.Signers...)
	if err != nil {
		h.opts.Log.WithError(err).Warn("Cannot sign rejection")
		return resp
	}
	return signed
}
