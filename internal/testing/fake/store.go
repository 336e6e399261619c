package fake

// InMemorySnapshot is a snapshot backed by a map. The errors, when set, are
// returned by the matching operation.
//
// - implements store.Snapshot
type InMemorySnapshot struct {
	values map[string][]byte

	ErrRead   error
	ErrWrite  error
	ErrDelete error
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *InMemorySnapshot {
	return &InMemorySnapshot{values: map[string][]byte{}}
}

// NewBadSnapshot returns an empty snapshot that fails every operation with
// the fake error.
func NewBadSnapshot() *InMemorySnapshot {
	snap := NewSnapshot()
	snap.ErrRead = fakeErr
	snap.ErrWrite = fakeErr
	snap.ErrDelete = fakeErr

	return snap
}

// Get implements store.Readable.
func (snap *InMemorySnapshot) Get(key []byte) ([]byte, error) {
	if snap.ErrRead != nil {
		return nil, snap.ErrRead
	}

	return snap.values[string(key)], nil
}

// Set implements store.Writable.
func (snap *InMemorySnapshot) Set(key, value []byte) error {
	if snap.ErrWrite == nil {
		snap.values[string(key)] = value
	}

	return snap.ErrWrite
}

// Delete implements store.Writable.
func (snap *InMemorySnapshot) Delete(key []byte) error {
	if snap.ErrDelete == nil {
		delete(snap.values, string(key))
	}

	return snap.ErrDelete
}

// Len returns the number of keys set.
func (snap *InMemorySnapshot) Len() int {
	return len(snap.values)
}
