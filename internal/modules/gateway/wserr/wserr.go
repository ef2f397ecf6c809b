// Package wserr holds the closed set of reasons a gateway connection can be
// rejected for and the client-facing message rendered for each.
package wserr

import (
	"errors"

	"github.com/mx-space/wsgateway/internal/pkg/jwt"
)

// Reason classifies an admission failure.
type Reason int

const (
	MissingToken Reason = iota + 1
	ExpiredToken
	InvalidToken
	Unauthorized
	TooManyConnections
)

var messages = map[Reason]string{
	MissingToken:       "Authentication token missing.",
	ExpiredToken:       "Authentication token expired.",
	InvalidToken:       "Invalid authentication token",
	Unauthorized:       "Unauthorized",
	TooManyConnections: "Too many connections.",
}

var names = map[Reason]string{
	MissingToken:       "MissingToken",
	ExpiredToken:       "ExpiredToken",
	InvalidToken:       "InvalidToken",
	Unauthorized:       "Unauthorized",
	TooManyConnections: "TooManyConnections",
}

// Message is the fixed text sent to the client. Unknown reasons render as Unauthorized.
func (r Reason) Message() string {
	if msg, ok := messages[r]; ok {
		return msg
	}
	return messages[Unauthorized]
}

func (r Reason) String() string {
	if name, ok := names[r]; ok {
		return name
	}
	return "Unknown"
}

// Error is an admission failure. Cause is for server logs only.
type Error struct {
	Reason Reason
	Cause  error
}

// New wraps cause with a rejection reason.
func New(reason Reason, cause error) *Error {
	return &Error{Reason: reason, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return "gateway: " + e.Reason.String()
	}
	return "gateway: " + e.Reason.String() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// Payload is the body of the `error` event.
type Payload struct {
	Message string `json:"message"`
}

// FromVerifyError maps a verification failure onto a reason. Timeouts and
// anything not recognised collapse to Unauthorized.
func FromVerifyError(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ExpiredToken
	case errors.Is(err, jwt.ErrInvalid):
		return InvalidToken
	default:
		return Unauthorized
	}
}

// ReasonOf extracts the reason carried by err, defaulting to Unauthorized.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return FromVerifyError(err)
}

// Render returns the client payload for err. Internal details never leak.
func Render(err error) Payload {
	return Payload{Message: ReasonOf(err).Message()}
}
