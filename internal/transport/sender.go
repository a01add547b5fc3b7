package transport

import (
	"context"
	"fmt"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/pkg/errors"

	"secure_ocpp_cp/internal/securedata"
)

// Sender frames requests and waits for the correlated response.
type Sender struct {
	dt   DataTransferer
	opts Options
}

func NewSender(dt DataTransferer, opts Options) *Sender {
	return &Sender{dt: dt, opts: opts.withDefaults()}
}

type transferResult struct {
	conf *core.DataTransferConfirmation
	err  error
}

// Send transmits req and parses the response. It returns an error wrapping
// securedata.ErrTimeout when ctx ends first. Sending the same request again
// re-transmits byte-identical data.
func (s *Sender) Send(ctx context.Context, req *securedata.Request) (*securedata.Response, error) {
	frame, err := req.ToBinary(true)
	if err != nil {
		return nil, errors.Wrap(err, "encode secure data transfer request")
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	done := make(chan transferResult, 1)
	go func() {
		conf, err := s.dt.DataTransfer(s.opts.VendorID, func(r *core.DataTransferRequest) {
			r.MessageId = s.opts.MessageID
			r.Data = encodeFrame(frame)
		})
		done <- transferResult{conf: conf, err: err}
	}()

	log := s.opts.Log.WithField("request_id", req.RequestID()).
		WithField("key_id", req.KeyID()).
		WithField("parameter", req.Parameter())

	var res transferResult
	select {
	case <-ctx.Done():
		log.WithError(ctx.Err()).Warn("Secure data transfer timed out")
		return nil, fmt.Errorf("%w: %w", securedata.ErrTimeout, ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return nil, errors.Wrap(res.err, "send data transfer")
	}
	if res.conf == nil {
		return nil, errors.Wrap(ErrBadFrame, "empty data transfer confirmation")
	}
	if res.conf.Status != core.DataTransferStatusAccepted {
		return nil, errors.Wrapf(ErrRejectedByPeer, "status %s", res.conf.Status)
	}

	data, err := decodeFrame(res.conf.Data)
	if err != nil {
		return nil, err
	}
	env := req.Envelope()
	respEnv := securedata.Envelope{
		RequestID:   env.RequestID,
		Destination: env.NetworkPath.Source(),
		NetworkPath: securedata.NetworkPath{env.Destination},
	}
	resp, err := securedata.ParseResponse(data, respEnv)
	if err != nil {
		log.WithError(err).Error("Invalid secure data transfer response")
		return nil, errors.Wrap(err, "parse secure data transfer response")
	}
	log.WithField("status", resp.Status()).Debug("Secure data transfer response received")
	return resp, nil
}
