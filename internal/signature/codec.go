package signature

import (
	"fmt"

	"secure_ocpp_cp/internal/bincodec"
)

// Encode appends the signature list to w: a one byte count followed by every
// signature as a uint16 length-prefixed blob.
func Encode(w *bincodec.Writer, sigs Set) error {
	if sigs.Len() > MaxCount {
		return fmt.Errorf("%w: %d, max %d", ErrTooManySignatures, sigs.Len(), MaxCount)
	}
	w.WriteUint8(uint8(sigs.Len()))
	for i, sig := range sigs.items {
		b, err := sig.MarshalBinary()
		if err != nil {
			return fmt.Errorf("signature %d: %w", i, err)
		}
		if err := w.WriteBytes16(b); err != nil {
			return fmt.Errorf("signature %d: %w", i, err)
		}
	}
	return nil
}

// Decode reads a signature list from r. Any failing signature aborts the
// whole list.
func Decode(r *bincodec.Reader) (Set, error) {
	count, err := r.ReadUint8()
	if err != nil {
		return Set{}, fmt.Errorf("signature count: %w", err)
	}
	if count == 0 {
		return Set{}, nil
	}
	items := make([]Signature, 0, count)
	for i := 0; i < int(count); i++ {
		b, err := r.ReadBytes16()
		if err != nil {
			return Set{}, fmt.Errorf("signature %d: %w", i, err)
		}
		var sig Signature
		if err := sig.UnmarshalBinary(b); err != nil {
			return Set{}, fmt.Errorf("signature %d: %w", i, err)
		}
		for _, have := range items {
			if have.Equal(sig) {
				return Set{}, fmt.Errorf("%w: signature %d is a duplicate", ErrSignatureDecode, i)
			}
		}
		items = append(items, sig)
	}
	// Order is kept as received so re-encoding reproduces the same bytes.
	return Set{items: items}, nil
}
