/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "fmt"

// Kind classifies a rejected command. Every kind is local to the connection
// that issued the command and never changes room state.
type Kind string

const (
	KindComposition   Kind = "composition"
	KindAuthorization Kind = "authorization"
	KindDuplicate     Kind = "duplicate"
	KindCapacity      Kind = "capacity"
	KindNotFound      Kind = "notFound"
	KindStarted       Kind = "started"
	KindPhase         Kind = "phase"
	KindInvalid       Kind = "invalid"
)

// Error is returned by every guarded operation in this package.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, game.ErrDuplicate).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrComposition   = &Error{Kind: KindComposition}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrDuplicate     = &Error{Kind: KindDuplicate}
	ErrCapacity      = &Error{Kind: KindCapacity}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrStarted       = &Error{Kind: KindStarted}
	ErrPhase         = &Error{Kind: KindPhase}
	ErrInvalid       = &Error{Kind: KindInvalid}
)

func errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
