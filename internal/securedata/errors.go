package securedata

import "errors"

var (
	// ErrFormationViolation marks received bytes that fail structural validation.
	ErrFormationViolation = errors.New("securedata: formation violation")
	// ErrSignatureError marks a message whose signatures do not validate.
	ErrSignatureError = errors.New("securedata: signature error")
	// ErrProcessingFailed is the catch-all for failures unrelated to parsing or crypto.
	ErrProcessingFailed = errors.New("securedata: processing failed")
	// ErrMessageTooLarge marks a plaintext longer than one reserved counter range.
	ErrMessageTooLarge = errors.New("securedata: message too large")
)
