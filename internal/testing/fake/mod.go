// Package fake provides fake implementations of the relay collaborators for
// the unit tests.
package fake

import "golang.org/x/xerrors"

// fakeErr is the error returned by the bad fakes.
var fakeErr = xerrors.New("fake error")

// GetError returns the error returned by the bad fakes.
func GetError() error {
	return fakeErr
}

// Err returns the expected error message of a wrapped fake error.
func Err(msg string) string {
	return msg + ": " + fakeErr.Error()
}
