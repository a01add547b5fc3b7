package keystore

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix     = "securedata/key/"
	noncePrefix   = "securedata/nonce/"
	counterPrefix = "securedata/counter/"

	maxTxnRetries = 16
)

// Badger is a KeyStore persisted in a badger database. Installed keys take
// precedence; without one, keys are derived from the master secret when it
// is set.
type Badger struct {
	mu     sync.Mutex
	db     *badger.DB
	master []byte
	log    logrus.FieldLogger
}

func NewBadger(db *badger.DB, masterSecret []byte, log logrus.FieldLogger) *Badger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Badger{db: db, master: masterSecret, log: log}
}

func entryKey(prefix, node string, keyID uint16) []byte {
	return []byte(fmt.Sprintf("%s%s/%d", prefix, node, keyID))
}

// InstallKey stores key for (node, keyID). A fresh random nonce is drawn and
// the counter restarts, so a new key never continues an old keystream.
func (b *Badger) InstallKey(node string, keyID uint16, key []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	nonce, err := randomNonce()
	if err != nil {
		return err
	}
	err = b.update(func(txn *badger.Txn) error {
		if err := txn.Set(entryKey(keyPrefix, node, keyID), key); err != nil {
			return err
		}
		if err := txn.Set(entryKey(noncePrefix, node, keyID), []byte(strconv.FormatUint(nonce, 10))); err != nil {
			return err
		}
		return txn.Set(entryKey(counterPrefix, node, keyID), []byte("0"))
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "install key %d for %s", keyID, node)
	}
	b.log.WithField("node", node).WithField("key_id", keyID).Info("Secure data key installed")
	return nil
}

// RemoveKey deletes the installed key and its nonce/counter state.
func (b *Badger) RemoveKey(node string, keyID uint16) error {
	return b.update(func(txn *badger.Txn) error {
		for _, prefix := range []string{keyPrefix, noncePrefix, counterPrefix} {
			if err := txn.Delete(entryKey(prefix, node, keyID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys lists the keys installed or used so far, without key bytes.
func (b *Badger) Keys() ([]KeyInfo, error) {
	seen := map[string]*KeyInfo{}
	var order []string
	err := b.db.View(func(txn *badger.Txn) error {
		for _, prefix := range []string{keyPrefix, noncePrefix, counterPrefix} {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(prefix)
			it := txn.NewIterator(opts)
			for it.Rewind(); it.Valid(); it.Next() {
				item := it.Item()
				ref := strings.TrimPrefix(string(item.Key()), prefix)
				info, ok := seen[ref]
				if !ok {
					node, keyID, err := splitRef(ref)
					if err != nil {
						it.Close()
						return err
					}
					info = &KeyInfo{Node: node, KeyID: keyID, Derived: true}
					seen[ref] = info
					order = append(order, ref)
				}
				v, err := item.ValueCopy(nil)
				if err != nil {
					it.Close()
					return err
				}
				switch prefix {
				case keyPrefix:
					info.Derived = false
				case noncePrefix:
					info.Nonce, _ = strconv.ParseUint(string(v), 10, 64)
				case counterPrefix:
					info.Counter, _ = strconv.ParseUint(string(v), 10, 64)
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]KeyInfo, 0, len(order))
	for _, ref := range order {
		out = append(out, *seen[ref])
	}
	return out, nil
}

func splitRef(ref string) (string, uint16, error) {
	i := strings.LastIndexByte(ref, '/')
	if i < 0 {
		return "", 0, fmt.Errorf("keystore: malformed entry %q", ref)
	}
	id, err := strconv.ParseUint(ref[i+1:], 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("keystore: malformed entry %q: %w", ref, err)
	}
	return ref[:i], uint16(id), nil
}

func (b *Badger) EncryptionKey(destination string, keyID uint16) ([]byte, error) {
	return b.key(destination, keyID)
}

func (b *Badger) DecryptionKey(source string, keyID uint16) ([]byte, error) {
	return b.key(source, keyID)
}

func (b *Badger) key(node string, keyID uint16) ([]byte, error) {
	var key []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(keyPrefix, node, keyID))
		if err != nil {
			return err
		}
		key, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case err == nil:
		return key, nil
	case !errors.Is(err, badger.ErrKeyNotFound):
		return nil, pkgerrors.Wrapf(err, "read key %d for %s", keyID, node)
	case len(b.master) == 0:
		return nil, fmt.Errorf("%w: node %q key %d", ErrKeyNotFound, node, keyID)
	}
	return DeriveKey(b.master, node, keyID)
}

// EncryptionNonce returns the persisted nonce, drawing a random one on first use.
func (b *Badger) EncryptionNonce(destination string, keyID uint16) (uint64, error) {
	candidate, err := randomNonce()
	if err != nil {
		return 0, err
	}
	var nonce uint64
	err = b.update(func(txn *badger.Txn) error {
		k := entryKey(noncePrefix, destination, keyID)
		if err := setIfNotExistsTX(txn, k, strconv.FormatUint(candidate, 10)); err != nil {
			return err
		}
		nonce, err = getUintTX(txn, k)
		return err
	})
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "nonce for key %d of %s", keyID, destination)
	}
	return nonce, nil
}

// EncryptionCounter atomically reserves the next block range and returns its
// first counter.
func (b *Badger) EncryptionCounter(destination string, keyID uint16) (uint64, error) {
	var counter uint64
	err := b.update(func(txn *badger.Txn) error {
		var err error
		counter, err = reserveCounterTX(txn, entryKey(counterPrefix, destination, keyID))
		return err
	})
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "counter for key %d of %s", keyID, destination)
	}
	return counter, nil
}

// update runs fn in a read-write transaction. Writers in this process are
// serialized; conflicts with other writers are retried.
func (b *Badger) update(fn func(txn *badger.Txn) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		b.log.WithField("attempt", i+1).Debug("keystore transaction conflict, retrying")
	}
	return err
}

func randomNonce() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, pkgerrors.Wrap(err, "draw nonce")
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func getUintTX(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(v), 10, 64)
}

func reserveCounterTX(txn *badger.Txn, key []byte) (uint64, error) {
	n, err := getUintTX(txn, key)
	if err != nil {
		return 0, err
	}
	if n, err = nextCounter(n); err != nil {
		return 0, err
	}
	return n, txn.Set(key, []byte(strconv.FormatUint(n, 10)))
}

func setIfNotExistsTX(txn *badger.Txn, key []byte, value string) error {
	_, err := txn.Get(key)
	if err == nil {
		return nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return txn.Set(key, []byte(value))
}
