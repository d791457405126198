package domain

import "errors"

// Failure taxonomy surfaced by the identity and reservation engine. Handlers
// map these to HTTP statuses; everything else is an internal error.
var (
	// ErrDuplicateIdentity means the email or username is already taken
	// within the same account kind's namespace.
	ErrDuplicateIdentity = errors.New("email or username already registered")

	// ErrNotFound is returned for lookups that resolve to nothing.
	ErrNotFound = errors.New("not found")

	// ErrNoChallenge means no live OTP challenge is bound to the session,
	// or the bound account does not match the caller.
	ErrNoChallenge = errors.New("no verification challenge for this session")

	// ErrExpired means the challenge or token outlived its window.
	ErrExpired = errors.New("verification code expired")

	// ErrMismatch means the submitted code differs from the live challenge.
	ErrMismatch = errors.New("verification code does not match")

	// ErrConflict means a booking would overlap an existing confirmed
	// booking on the same listing.
	ErrConflict = errors.New("dates conflict with an existing confirmed booking")

	// ErrDanglingSession means a session token resolved to an account that
	// no longer exists. Callers treat this as "not authenticated".
	ErrDanglingSession = errors.New("session refers to a deleted account")

	// ErrUnauthorized means the caller is not allowed to see or mutate the
	// resource.
	ErrUnauthorized = errors.New("not authorized")

	// ErrTimeout means a storage operation exceeded its deadline; nothing
	// was committed.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidCredentials covers both unknown identifier and wrong
	// password, deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid username/email or password")

	// ErrNotVerified means the account exists but has not completed email
	// verification yet.
	ErrNotVerified = errors.New("account email is not verified")
)
