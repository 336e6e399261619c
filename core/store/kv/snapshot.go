package kv

import (
	"go.dedis.ch/relay/core/store"
	"golang.org/x/xerrors"
)

// bucketSnapshot is a snapshot bound to a bucket and the lifetime of its
// transaction.
//
// - implements store.Snapshot
type bucketSnapshot struct {
	bucket Bucket
}

// NewSnapshot returns a snapshot that reads and writes in the bucket. A nil
// bucket is read as empty and refuses writes.
func NewSnapshot(bucket Bucket) store.Snapshot {
	return bucketSnapshot{bucket: bucket}
}

// Get implements store.Readable. The value is copied as some engines only
// guarantee it for the lifetime of the transaction.
func (s bucketSnapshot) Get(key []byte) ([]byte, error) {
	if s.bucket == nil {
		return nil, nil
	}

	value := s.bucket.Get(key)
	if value == nil {
		return nil, nil
	}

	return append([]byte{}, value...), nil
}

// Set implements store.Writable.
func (s bucketSnapshot) Set(key, value []byte) error {
	if s.bucket == nil {
		return xerrors.New("bucket not found")
	}

	return s.bucket.Set(key, value)
}

// Delete implements store.Writable.
func (s bucketSnapshot) Delete(key []byte) error {
	if s.bucket == nil {
		return xerrors.New("bucket not found")
	}

	return s.bucket.Delete(key)
}
