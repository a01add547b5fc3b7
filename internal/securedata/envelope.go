package securedata

import (
	"slices"
	"time"
)

// NetworkPath is the ordered list of networking node ids a message passed
// through, starting at its origin.
type NetworkPath []string

// Source returns the originating node, or "" for an empty path.
func (p NetworkPath) Source() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Append returns a copy of p with hop added.
func (p NetworkPath) Append(hop string) NetworkPath {
	out := make(NetworkPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, hop)
}

// Envelope is the routing and correlation metadata owned by the messaging
// layer. It is not part of the binary frame.
type Envelope struct {
	// RequestID correlates a response with its request on the sending node.
	// The binary frame does not carry it, so a receiver assigns its own.
	RequestID   string
	Destination string
	NetworkPath NetworkPath
	Timestamp   time.Time
}

func (e Envelope) clone() Envelope {
	e.NetworkPath = slices.Clone(e.NetworkPath)
	return e
}

// reply returns the envelope of a response to a message carried by e.
func (e Envelope) reply() Envelope {
	return Envelope{
		RequestID:   e.RequestID,
		Destination: e.NetworkPath.Source(),
		Timestamp:   time.Now().UTC(),
	}
}
