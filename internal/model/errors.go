package model

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Kind classifies a verification failure
type Kind string

const (
	KindInput       Kind = "input"       // Caller supplied bad text or a bad store
	KindConfig      Kind = "config"      // Invalid or unknown configuration
	KindUnavailable Kind = "unavailable" // Collaborator temporarily failed; retry the whole call
	KindMalformed   Kind = "malformed"   // Collaborator returned data that will never parse
	KindNotFound    Kind = "not_found"   // Lookup of an unknown chunk
)

// Error is the typed error returned across package boundaries
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the whole call may succeed
func (e *Error) Temporary() bool {
	return e.Kind == KindUnavailable
}

// E builds a typed error wrapping err with eris context
func E(kind Kind, op string, err error) error {
	if err == nil {
		err = eris.New(string(kind))
	} else {
		err = eris.Wrap(err, op)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Inputf returns an input error
func Inputf(op, format string, args ...any) error {
	return &Error{Kind: KindInput, Op: op, Err: eris.Errorf(format, args...)}
}

// Configf returns a configuration error
func Configf(op, format string, args ...any) error {
	return &Error{Kind: KindConfig, Op: op, Err: eris.Errorf(format, args...)}
}

// Malformedf returns a malformed-data error
func Malformedf(op, format string, args ...any) error {
	return &Error{Kind: KindMalformed, Op: op, Err: eris.Errorf(format, args...)}
}

// Unavailable wraps a collaborator failure as temporary
func Unavailable(op string, err error) error {
	return E(KindUnavailable, op, err)
}

// NotFound returns a lookup miss for the given chunk ID
func NotFound(op, id string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: eris.Errorf("chunk %q", id)}
}

// KindOf returns the kind of the first typed error in the chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsTemporary reports whether err is a temporary collaborator failure
func IsTemporary(err error) bool {
	return IsKind(err, KindUnavailable)
}

// IsNotFound reports whether err is a chunk lookup miss
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}
