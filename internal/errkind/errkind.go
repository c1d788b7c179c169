// Package errkind classifies failures so retry policy can be attached to
// error kinds instead of string matching at every call site.
package errkind

import (
	"context"
	"errors"
	"net"
	"strings"
)

type Kind int

const (
	Unknown Kind = iota
	// Transient marks a remote call that timed out without indicating real
	// failure. Read-only node queries are retried on this kind.
	Transient
	// Rejected marks a transaction the node refused (bad nonce, insufficient
	// funds, malformed payload). Never retried.
	Rejected
	// Configuration marks a missing or unreadable startup value. Fatal.
	Configuration
	// InvalidInput marks malformed caller input. Fatal, nothing written.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Rejected:
		return "rejected"
	case Configuration:
		return "configuration"
	case InvalidInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil || e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Of reports the kind attached to err, walking the wrap chain.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsTransient reports whether err looks like a remote-call timeout. Errors
// coming out of go-ethereum and net/http are not wrapped with a Kind, so this
// also checks the usual timeout signals.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if Of(err) == Transient {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout")
}
