package bincodec

import "errors"

var (
	// ErrTruncatedInput is returned when a read needs more bytes than remain in the buffer.
	ErrTruncatedInput = errors.New("bincodec: truncated input")
	// ErrFieldTooLarge is returned when a blob does not fit its length prefix.
	ErrFieldTooLarge = errors.New("bincodec: field too large for length prefix")
)
