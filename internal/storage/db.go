// Package storage provides the key-value layer under the token ledger.
//
// The ledger owns three prefixes within a DB: tok/ for token records,
// aid/ for the asset-id index, and meta/ for counters. The interface
// is small on purpose: durable deployments use Badger, tests use the
// in-memory backend, and PrefixDB namespaces the ledger keyspace
// inside a shared database.
package storage

// DB is a key-value store holding the ledger keyspace.
type DB interface {
	// Get returns the value stored under key, or an error when the key
	// is absent.
	Get(key []byte) ([]byte, error)

	// Put stores or replaces a key.
	Put(key, value []byte) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// Has reports whether a key exists.
	Has(key []byte) (bool, error)

	// ForEach visits every key under prefix. The callback receives
	// copies of the key and value; a non-nil error from fn stops the
	// walk and is returned.
	ForEach(prefix []byte, fn func(key, value []byte) error) error

	Close() error
}
