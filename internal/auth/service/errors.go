package service

import "errors"

// Typed failures surfaced unmodified to the HTTP boundary, which maps each
// to a status code and a user-safe message. Raw store or mailer errors are
// logged server-side and never leave the service layer inside these.
var (
	// ErrEmailTaken reports a registration attempt with an existing email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials deliberately collapses "unknown email" and
	// "wrong password" into one failure to avoid user enumeration.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthorized covers bad/expired/missing tokens and expired sessions.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound reports a missing user, code, or session target.
	ErrNotFound = errors.New("not found")

	// ErrTooManyRequests reports the password-reset request throttle.
	ErrTooManyRequests = errors.New("too many requests")

	// ErrBadRequest reports malformed input or a failed dependent update.
	ErrBadRequest = errors.New("bad request")

	// ErrEmailDelivery reports a mandatory email send that returned no
	// provider message id.
	ErrEmailDelivery = errors.New("email delivery failed")
)
