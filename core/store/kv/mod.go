// Package kv defines the key/value database the chain commits its blocks to.
//
// The database is split in buckets, and every access happens inside a
// transaction that is either read-only or writable. The package provides the
// persistent implementation on top of bbolt.
package kv

import "go.dedis.ch/relay/core/store"

// Bucket is a set of keys of the database.
type Bucket interface {
	// Get returns the value of the key, or nil when it is not set.
	Get(key []byte) []byte

	// Set writes the value of the key.
	Set(key, value []byte) error

	// Delete removes the key. A missing key is not an error.
	Delete(key []byte) error
}

// ReadableTx is a read-only transaction.
type ReadableTx interface {
	// GetBucket returns the bucket, or nil when it has never been created.
	GetBucket(name []byte) Bucket
}

// WritableTx is a transaction that can create buckets and write in them.
type WritableTx interface {
	store.Transaction

	ReadableTx

	// GetBucketOrCreate returns the bucket, creating it first if needed.
	GetBucketOrCreate(name []byte) (Bucket, error)
}

// DB is a key/value database.
type DB interface {
	// View runs the function in a read-only transaction.
	View(fn func(ReadableTx) error) error

	// Update runs the function in a writable transaction, which is committed
	// only when the function returns no error.
	Update(fn func(WritableTx) error) error

	// Close releases the database. Any later transaction fails.
	Close() error
}
