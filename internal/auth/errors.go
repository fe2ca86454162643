// Package auth verifies admin credentials and guards every lot-scoped
// call. A successful login yields a signed, self-contained session bound
// to one lot; the guard resolves a presented session back to that lot.
package auth

import "errors"

var (
	// ErrMissingCredential means no session credential was presented.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential covers a wrong secret at login and a bad,
	// tampered or expired session on a guarded call.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrAdminNotFound means no admin has the given username.
	ErrAdminNotFound = errors.New("admin not found")
	// ErrUsernameTaken is returned by Register for an existing username.
	ErrUsernameTaken = errors.New("username already taken")
)
