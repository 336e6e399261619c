package kv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestBoltDB_UpdateAndView(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	defer db.Close()

	err = db.Update(func(txn WritableTx) error {
		bucket, err := txn.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		return bucket.Set([]byte("ping"), []byte("pong"))
	})
	require.NoError(t, err)

	err = db.View(func(txn ReadableTx) error {
		bucket := txn.GetBucket([]byte("bucket"))
		require.NotNil(t, bucket)
		require.Equal(t, []byte("pong"), bucket.Get([]byte("ping")))

		require.Nil(t, txn.GetBucket([]byte("unknown")))

		return nil
	})
	require.NoError(t, err)

	err = db.Update(func(txn WritableTx) error {
		_, err := txn.GetBucketOrCreate(nil)
		return err
	})
	require.EqualError(t, err, "failed to create bucket: bucket name required")
}

func TestBoltDB_Update_Rollback(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	defer db.Close()

	committed := false

	err = db.Update(func(txn WritableTx) error {
		txn.OnCommit(func() { committed = true })

		bucket, err := txn.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)
		require.NoError(t, bucket.Set([]byte("ping"), []byte("pong")))

		return xerrors.New("oops")
	})
	require.EqualError(t, err, "oops")
	require.False(t, committed)

	err = db.View(func(txn ReadableTx) error {
		require.Nil(t, txn.GetBucket([]byte("bucket")))
		return nil
	})
	require.NoError(t, err)

	err = db.Update(func(txn WritableTx) error {
		txn.OnCommit(func() { committed = true })
		return nil
	})
	require.NoError(t, err)
	require.True(t, committed)
}

func TestBoltBucket_Get_Set_Delete(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	defer db.Close()

	err = db.Update(func(txn WritableTx) error {
		b, err := txn.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		require.NoError(t, b.Set([]byte("ping"), []byte("pong")))
		require.Equal(t, []byte("pong"), b.Get([]byte("ping")))
		require.Nil(t, b.Get([]byte("pong")))

		require.NoError(t, b.Delete([]byte("ping")))
		require.Nil(t, b.Get([]byte("ping")))

		return nil
	})
	require.NoError(t, err)
}

func TestSnapshot(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	defer db.Close()

	err = db.Update(func(txn WritableTx) error {
		b, err := txn.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		snap := NewSnapshot(b)
		require.NoError(t, snap.Set([]byte("ping"), []byte("pong")))

		value, err := snap.Get([]byte("ping"))
		require.NoError(t, err)
		require.Equal(t, []byte("pong"), value)

		require.NoError(t, snap.Delete([]byte("ping")))

		value, err = snap.Get([]byte("ping"))
		require.NoError(t, err)
		require.Nil(t, value)

		return nil
	})
	require.NoError(t, err)

	snap := NewSnapshot(nil)

	value, err := snap.Get([]byte("ping"))
	require.NoError(t, err)
	require.Nil(t, value)

	require.EqualError(t, snap.Set([]byte("ping"), nil), "bucket not found")
	require.EqualError(t, snap.Delete([]byte("ping")), "bucket not found")
}
