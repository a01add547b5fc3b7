package keystore

import (
	"fmt"
	"slices"
	"sync"
)

type keyRef struct {
	node  string
	keyID uint16
}

type memoryEntry struct {
	key     []byte
	nonce   uint64
	counter uint64
}

// Memory is an in-process KeyStore.
type Memory struct {
	mu      sync.Mutex
	entries map[keyRef]*memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[keyRef]*memoryEntry)}
}

// SetKey installs key for (node, keyID) with the given nonce and resets the counter.
func (m *Memory) SetKey(node string, keyID uint16, key []byte, nonce uint64) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[keyRef{node, keyID}] = &memoryEntry{key: slices.Clone(key), nonce: nonce}
	return nil
}

func (m *Memory) entry(node string, keyID uint16) (*memoryEntry, error) {
	e, ok := m.entries[keyRef{node, keyID}]
	if !ok {
		return nil, fmt.Errorf("%w: node %q key %d", ErrKeyNotFound, node, keyID)
	}
	return e, nil
}

func (m *Memory) EncryptionKey(destination string, keyID uint16) ([]byte, error) {
	return m.DecryptionKey(destination, keyID)
}

func (m *Memory) DecryptionKey(source string, keyID uint16) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(source, keyID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(e.key), nil
}

func (m *Memory) EncryptionNonce(destination string, keyID uint16) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(destination, keyID)
	if err != nil {
		return 0, err
	}
	return e.nonce, nil
}

func (m *Memory) EncryptionCounter(destination string, keyID uint16) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(destination, keyID)
	if err != nil {
		return 0, err
	}
	next, err := nextCounter(e.counter)
	if err != nil {
		return 0, fmt.Errorf("%w: node %q key %d", err, destination, keyID)
	}
	e.counter = next
	return next, nil
}

// Keys lists the installed keys ordered by node and key id.
func (m *Memory) Keys() []KeyInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]KeyInfo, 0, len(m.entries))
	for ref, e := range m.entries {
		out = append(out, KeyInfo{Node: ref.node, KeyID: ref.keyID, Nonce: e.nonce, Counter: e.counter})
	}
	slices.SortFunc(out, func(a, b KeyInfo) int {
		if a.Node != b.Node {
			if a.Node < b.Node {
				return -1
			}
			return 1
		}
		return int(a.KeyID) - int(b.KeyID)
	})
	return out
}
