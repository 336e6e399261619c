package txn

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/relay/core/access"
)

func TestCall_Getters(t *testing.T) {
	call := NewCall(access.Signed("alice"),
		Arg{Key: "a", Value: []byte("1")},
		Arg{Key: "b", Value: []byte("2")},
		Arg{Key: "a", Value: []byte("3")},
	)

	require.Equal(t, access.Signed("alice"), call.GetOrigin())
	require.Equal(t, []byte("3"), call.GetArg("a"))
	require.Equal(t, []byte("2"), call.GetArg("b"))
	require.Nil(t, call.GetArg("c"))
}
