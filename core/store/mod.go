// Package store defines the primitives of a simple key/value storage.
//
// The relay modules never see the database directly: every call and every
// block hook receives a snapshot that belongs to a single database
// transaction. The writes are applied only if the transaction commits.
package store

// Readable is a store that can be read.
type Readable interface {
	// Get returns the value of the key, or nil when the key is not set.
	Get(key []byte) ([]byte, error)
}

// Writable is a store that can be written.
type Writable interface {
	Set(key []byte, value []byte) error

	// Delete removes the key. Removing a key that is not set does nothing.
	Delete(key []byte) error
}

// Snapshot is the view of a transaction in progress. Its writes are visible to
// the following reads of the same snapshot only.
type Snapshot interface {
	Readable
	Writable
}

// Transaction is the part of a database transaction exposed to the layers
// above the storage.
type Transaction interface {
	// OnCommit registers a function called once the transaction is
	// committed. It is never called when the transaction is rolled back.
	OnCommit(func())
}
