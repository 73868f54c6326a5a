package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BadgerDB stores the ledger keyspace in a Badger database on disk.
// All writes go through transactions, so a token record and its index
// entries are never torn by a crash mid-write.
type BadgerDB struct {
	db *badger.DB
}

// ledgerOptions tunes Badger for token records: small JSON documents,
// written on each lifecycle transition, read on every query. Values
// stay in the LSM tree rather than the value log, and the value log is
// kept small since nothing here approaches its threshold.
func ledgerOptions(path string) badger.Options {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's logger bypasses the component loggers.
	opts.ValueThreshold = 1 << 20
	opts.ValueLogFileSize = 64 << 20
	return opts
}

// NewBadger opens (creating if needed) the ledger database at path.
// The directory lock makes concurrent daemons on one data directory
// fail fast instead of corrupting the ledger.
func NewBadger(path string) (*BadgerDB, error) {
	db, err := badger.Open(ledgerOptions(path))
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "Cannot acquire directory lock") ||
			strings.Contains(msg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("ledger database at %s is locked by another process (is another issuerd instance running?): %w", path, err)
		}
		return nil, fmt.Errorf("open ledger database at %s: %w", path, err)
	}
	return &BadgerDB{db: db}, nil
}

// Get returns the value stored under key.
func (b *BadgerDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("key not found")
	}
	if err != nil {
		return nil, fmt.Errorf("ledger db get: %w", err)
	}
	return val, nil
}

// Put stores or replaces a key in a single transaction.
func (b *BadgerDB) Put(key, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("ledger db put: %w", err)
	}
	return nil
}

// Delete removes a key. Absent keys are not an error.
func (b *BadgerDB) Delete(key []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("ledger db delete: %w", err)
	}
	return nil
}

// Has reports whether a key exists without copying its value.
func (b *BadgerDB) Has(key []byte) (bool, error) {
	var exists bool
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ledger db has: %w", err)
	}
	return exists, nil
}

// ForEach walks every key under prefix in one read transaction, so
// token listings see a consistent snapshot of the ledger.
func (b *BadgerDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if err := item.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close flushes and closes the database.
func (b *BadgerDB) Close() error {
	return b.db.Close()
}
