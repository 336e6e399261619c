// Package txn defines the abstraction of transactions.
//
// A transaction is the input of a dispatchable call. It carries the origin
// that is used for access control and the arguments of the call.
package txn

import "go.dedis.ch/relay/core/access"

// Transaction is what triggers a contract execution by passing it as part of
// the input.
type Transaction interface {
	// GetOrigin returns the origin that submitted the transaction.
	GetOrigin() access.Origin

	// GetArg is a getter for the arguments of the transaction.
	GetArg(key string) []byte
}

// Arg is a generic argument that can be stored in a transaction.
type Arg struct {
	Key   string
	Value []byte
}

// Call is the default implementation of a transaction.
//
// - implements txn.Transaction
type Call struct {
	origin access.Origin
	args   map[string][]byte
}

// NewCall creates a new transaction submitted by the origin with the list of
// arguments. A later argument overrides an earlier one with the same key.
func NewCall(origin access.Origin, args ...Arg) Call {
	call := Call{
		origin: origin,
		args:   make(map[string][]byte, len(args)),
	}

	for _, arg := range args {
		call.args[arg.Key] = arg.Value
	}

	return call
}

// GetOrigin implements txn.Transaction.
func (c Call) GetOrigin() access.Origin {
	return c.origin
}

// GetArg implements txn.Transaction. It returns nil if the argument does not
// exist.
func (c Call) GetArg(key string) []byte {
	return c.args[key]
}
