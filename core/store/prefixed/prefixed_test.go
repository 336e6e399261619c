package prefixed

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/relay/internal/testing/fake"
)

func TestSnapshot_Isolation(t *testing.T) {
	parent := fake.NewSnapshot()

	a := NewSnapshot("a", parent)
	b := NewSnapshot("b", parent)

	require.NoError(t, a.Set([]byte("key"), []byte("A")))
	require.NoError(t, b.Set([]byte("key"), []byte("B")))
	require.Equal(t, 2, parent.Len())

	value, err := a.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("A"), value)

	value, err = NewReadable("b", parent).Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("B"), value)

	require.NoError(t, a.Delete([]byte("key")))

	value, err = a.Get([]byte("key"))
	require.NoError(t, err)
	require.Nil(t, value)
	require.Equal(t, 1, parent.Len())
}

func TestNewPrefixedKey(t *testing.T) {
	key := NewPrefixedKey([]byte("ab"), []byte("c"))
	require.Len(t, key, 32)

	require.NotEqual(t, key, NewPrefixedKey([]byte("a"), []byte("bc")))
	require.Equal(t, key, NewPrefixedKey([]byte("ab"), []byte("c")))
}
