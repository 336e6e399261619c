// Package mem implements an in-memory key/value database.
//
// Updates are staged on a copy of the touched buckets and only merged into the
// database when the transaction function succeeds, so a failing update leaves
// no partial writes behind.
package mem

import (
	"sync"

	"go.dedis.ch/relay/core/store/kv"
	"golang.org/x/xerrors"
)

// DB is an in-memory implementation of a key/value database.
//
// - implements kv.DB
type DB struct {
	sync.RWMutex

	buckets map[string]map[string][]byte
	closed  bool
}

// NewDB creates a new empty database.
func NewDB() *DB {
	return &DB{
		buckets: make(map[string]map[string][]byte),
	}
}

// View implements kv.DB. It executes the read-only function on the current
// state of the database.
func (db *DB) View(fn func(kv.ReadableTx) error) error {
	db.RLock()
	defer db.RUnlock()

	if db.closed {
		return xerrors.New("database closed")
	}

	return fn(&tx{parent: db, staged: map[string]map[string][]byte{}})
}

// Update implements kv.DB. The writes of the function are applied only if it
// returns nil, after which the commit callbacks are executed.
func (db *DB) Update(fn func(kv.WritableTx) error) error {
	db.Lock()

	if db.closed {
		db.Unlock()
		return xerrors.New("database closed")
	}

	txn := &tx{
		parent:   db,
		staged:   map[string]map[string][]byte{},
		writable: true,
	}

	err := fn(txn)
	if err != nil {
		db.Unlock()
		return err
	}

	for name, bucket := range txn.staged {
		db.buckets[name] = bucket
	}

	db.Unlock()

	for _, callback := range txn.onCommit {
		callback()
	}

	return nil
}

// Close implements kv.DB. Any later transaction fails.
func (db *DB) Close() error {
	db.Lock()
	db.closed = true
	db.Unlock()

	return nil
}

// tx is a transaction over the in-memory database. A bucket is copied the
// first time it is accessed.
//
// - implements kv.ReadableTx
// - implements kv.WritableTx
type tx struct {
	parent   *DB
	staged   map[string]map[string][]byte
	writable bool
	onCommit []func()
}

// GetBucket implements kv.ReadableTx.
func (t *tx) GetBucket(name []byte) kv.Bucket {
	values := t.lookup(string(name))
	if values == nil {
		return nil
	}

	return &bucket{values: values, writable: t.writable}
}

// GetBucketOrCreate implements kv.WritableTx.
func (t *tx) GetBucketOrCreate(name []byte) (kv.Bucket, error) {
	if len(name) == 0 {
		return nil, xerrors.New("bucket name required")
	}

	if !t.writable {
		return nil, xerrors.New("transaction is read-only")
	}

	values := t.lookup(string(name))
	if values == nil {
		values = make(map[string][]byte)
		t.staged[string(name)] = values
	}

	return &bucket{values: values, writable: true}, nil
}

// OnCommit implements store.Transaction.
func (t *tx) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

func (t *tx) lookup(name string) map[string][]byte {
	values, found := t.staged[name]
	if found {
		return values
	}

	committed, found := t.parent.buckets[name]
	if !found {
		return nil
	}

	if !t.writable {
		return committed
	}

	values = make(map[string][]byte, len(committed))
	for k, v := range committed {
		values[k] = v
	}

	t.staged[name] = values

	return values
}

// bucket is an in-memory bucket. A bucket of a read-only transaction rejects
// the writes.
//
// - implements kv.Bucket
type bucket struct {
	values   map[string][]byte
	writable bool
}

// Get implements kv.Bucket.
func (b *bucket) Get(key []byte) []byte {
	return b.values[string(key)]
}

// Set implements kv.Bucket.
func (b *bucket) Set(key, value []byte) error {
	if !b.writable {
		return xerrors.New("transaction is read-only")
	}

	b.values[string(key)] = append([]byte{}, value...)

	return nil
}

// Delete implements kv.Bucket.
func (b *bucket) Delete(key []byte) error {
	if !b.writable {
		return xerrors.New("transaction is read-only")
	}

	delete(b.values, string(key))

	return nil
}
