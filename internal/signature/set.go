package signature

// Set is an insertion-ordered collection of distinct signatures.
type Set struct {
	items []Signature
}

// NewSet returns a set holding sigs, skipping duplicates.
func NewSet(sigs ...Signature) Set {
	var s Set
	for _, sig := range sigs {
		s = s.With(sig)
	}
	return s
}

// With returns a copy of s with sig appended, or s unchanged if an equal
// signature is already present.
func (s Set) With(sig Signature) Set {
	if s.Contains(sig) {
		return s
	}
	items := make([]Signature, len(s.items), len(s.items)+1)
	copy(items, s.items)
	return Set{items: append(items, sig)}
}

func (s Set) Contains(sig Signature) bool {
	for _, have := range s.items {
		if have.Equal(sig) {
			return true
		}
	}
	return false
}

func (s Set) Len() int {
	return len(s.items)
}

// Items returns the signatures in insertion order.
func (s Set) Items() []Signature {
	out := make([]Signature, len(s.items))
	copy(out, s.items)
	return out
}

// Equal reports whether both sets hold the same signatures in the same order.
func (s Set) Equal(o Set) bool {
	if len(s.items) != len(o.items) {
		return false
	}
	for i := range s.items {
		if !s.items[i].Equal(o.items[i]) {
			return false
		}
	}
	return true
}
