package securedata

import (
	"errors"

	"secure_ocpp_cp/internal/bincodec"
	"secure_ocpp_cp/internal/signature"
)

// ResultCode is the machine readable outcome of a SecureDataTransfer.
type ResultCode string

const (
	ResultOK                 ResultCode = "OK"
	ResultFormationViolation ResultCode = "FormationViolation"
	ResultSignatureError     ResultCode = "SignatureError"
	ResultFailed             ResultCode = "Failed"
	ResultExceptionOccurred  ResultCode = "ExceptionOccurred"
	ResultTimeout            ResultCode = "Timeout"
)

type Result struct {
	Code        ResultCode
	Description string
}

func (r Result) OK() bool {
	return r.Code == ResultOK
}

func (r Result) String() string {
	if r.Description == "" {
		return string(r.Code)
	}
	return string(r.Code) + ": " + r.Description
}

// Err returns the sentinel matching the result code, or nil for OK.
func (r Result) Err() error {
	switch r.Code {
	case ResultOK, "":
		return nil
	case ResultFormationViolation:
		return ErrFormationViolation
	case ResultSignatureError:
		return ErrSignatureError
	case ResultTimeout:
		return ErrTimeout
	}
	return ErrProcessingFailed
}

// ErrTimeout is matched by ResultFromError for transports that gave up waiting.
var ErrTimeout = errors.New("securedata: timeout")

// ResultFromError projects a failure onto a result code.
func ResultFromError(err error) Result {
	if err == nil {
		return Result{Code: ResultOK}
	}
	res := Result{Description: err.Error()}
	switch {
	case errors.Is(err, ErrFormationViolation),
		errors.Is(err, bincodec.ErrTruncatedInput),
		errors.Is(err, signature.ErrSignatureDecode):
		res.Code = ResultFormationViolation
	case errors.Is(err, ErrSignatureError),
		errors.Is(err, signature.ErrInvalidSignature):
		res.Code = ResultSignatureError
	case errors.Is(err, ErrTimeout):
		res.Code = ResultTimeout
	case errors.Is(err, ErrProcessingFailed):
		res.Code = ResultFailed
	default:
		// cipher and key store failures
		res.Code = ResultFailed
	}
	return res
}
