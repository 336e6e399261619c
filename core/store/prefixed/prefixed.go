// Package prefixed isolates users of a shared snapshot by hashing each key
// with a namespace. Two relay instances wired for different external chains
// use the same database this way.
package prefixed

import (
	"crypto/sha256"
	"encoding/binary"

	"go.dedis.ch/relay/core/store"
)

// namespace maps the keys of a store into the namespace. The writable part is
// nil for a read-only view.
//
// - implements store.Snapshot
type namespace struct {
	name []byte
	r    store.Readable
	w    store.Writable
}

// NewSnapshot returns a view of the snapshot restricted to the namespace.
func NewSnapshot(name string, snap store.Snapshot) store.Snapshot {
	return namespace{name: []byte(name), r: snap, w: snap}
}

// NewReadable returns a read-only view of the store restricted to the
// namespace.
func NewReadable(name string, r store.Readable) store.Readable {
	return namespace{name: []byte(name), r: r}
}

// Get implements store.Readable.
func (n namespace) Get(key []byte) ([]byte, error) {
	return n.r.Get(NewPrefixedKey(n.name, key))
}

// Set implements store.Writable.
func (n namespace) Set(key []byte, value []byte) error {
	return n.w.Set(NewPrefixedKey(n.name, key), value)
}

// Delete implements store.Writable.
func (n namespace) Delete(key []byte) error {
	return n.w.Delete(NewPrefixedKey(n.name, key))
}

// NewPrefixedKey returns the sha256 digest of the namespace followed by the
// key, each one preceded by its length on two bytes.
func NewPrefixedKey(name, key []byte) []byte {
	buffer := make([]byte, 0, 4+len(name)+len(key))

	buffer = binary.LittleEndian.AppendUint16(buffer, uint16(len(name)))
	buffer = append(buffer, name...)
	buffer = binary.LittleEndian.AppendUint16(buffer, uint16(len(key)))
	buffer = append(buffer, key...)

	digest := sha256.Sum256(buffer)

	return digest[:]
}
