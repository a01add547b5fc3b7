package main

import (
	"errors"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

func GetKeyValue(key string) (string, error) {
	value := ""
	err := db.View(func(txn *badger.Txn) error {
		val, err := GetKeyValueTX(txn, key)
		if err != nil {
			return err
		}
		value = val
		return nil
	})
	return value, err
}

// GetKeyValueTX returns "" for a missing key.
func GetKeyValueTX(txn *badger.Txn, key string) (string, error) {
	val, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	v, err := val.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func SetKeyValue(key, value string) error {
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
}

func MustGetIntKey(key string) int {
	var i int
	db.View(func(txn *badger.Txn) error {
		i = MustGetIntKeyTX(txn, key)
		return nil
	})
	return i
}

func MustGetIntKeyTX(txn *badger.Txn, key string) int {
	v, err := GetKeyValueTX(txn, key)
	if err != nil {
		return 0
	}
	i, _ := strconv.Atoi(v)
	return i
}

func SetIfNotExistsTX(txn *badger.Txn, key, value string) error {
	_, err := txn.Get([]byte(key))
	if err == nil {
		return nil
	}
	return txn.Set([]byte(key), []byte(value))
}
