package access

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestOrigin_String(t *testing.T) {
	require.Equal(t, "root", Root().String())
	require.Equal(t, "signed(alice)", Signed("alice").String())
	require.Equal(t, "none", None().String())
}

func TestOrigin_Getters(t *testing.T) {
	o := Signed("alice")
	require.Equal(t, KindSigned, o.GetKind())
	require.Equal(t, AccountID("alice"), o.GetAccount())

	require.Equal(t, KindNone, None().GetKind())
	require.Equal(t, AccountID(""), Root().GetAccount())
}

func TestEnsureSigned(t *testing.T) {
	account, err := EnsureSigned(Signed("alice"))
	require.NoError(t, err)
	require.Equal(t, AccountID("alice"), account)

	_, err = EnsureSigned(Root())
	require.EqualError(t, err, "expected signed, got root: bad origin")
	require.True(t, xerrors.Is(err, ErrBadOrigin))
}

func TestRootPredicate_EnsureOrigin(t *testing.T) {
	p := EnsureRoot()

	require.NoError(t, p.EnsureOrigin(Root()))
	require.EqualError(t, p.EnsureOrigin(Signed("bob")),
		"expected root, got signed(bob): bad origin")
	require.EqualError(t, p.EnsureOrigin(None()), "expected root, got none: bad origin")
}

func TestMembersPredicate_EnsureOrigin(t *testing.T) {
	p := EnsureMembers("alice", "bob")

	require.NoError(t, p.EnsureOrigin(Root()))
	require.NoError(t, p.EnsureOrigin(Signed("alice")))
	require.EqualError(t, p.EnsureOrigin(Signed("carol")),
		"carol is not a member: bad origin")
	require.EqualError(t, p.EnsureOrigin(None()),
		"expected root or member, got none: bad origin")
}

func TestAnyPredicate_EnsureOrigin(t *testing.T) {
	p := EnsureAny(EnsureRoot(), EnsureMembers("alice"))

	require.NoError(t, p.EnsureOrigin(Root()))
	require.NoError(t, p.EnsureOrigin(Signed("alice")))

	err := p.EnsureOrigin(Signed("bob"))
	require.EqualError(t, err, "no predicate matches signed(bob): bad origin")
	require.True(t, xerrors.Is(err, ErrBadOrigin))
}
