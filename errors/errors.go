package errors

import (
	// Go Internal Packages
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error so callers can decide between retrying,
// dead-lettering or recording a failure state.
type Kind uint8

const (
	Other Kind = iota
	Invalid
	NotFound
	Conflict
	Gateway
	Persistence
	Internal
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Gateway:
		return "gateway"
	case Persistence:
		return "persistence"
	case Internal:
		return "internal"
	}
	return "other"
}

var (
	ErrLeaseHeld = stderrors.New("lease is held by another owner")
	ErrDuplicate = stderrors.New("duplicate record")
)

type Error struct {
	Kind     Kind
	Code     string
	Msg      string
	Err      error
	Rejected bool
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Code != "" {
		b.WriteString(" [")
		b.WriteString(e.Code)
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a kinded error wrapping err (which may be nil).
func E(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// Is reports whether err carries the given kind.
func Is(kind Kind, err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// CodeOf returns the failure code carried by err, falling back to its kind.
func CodeOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return strings.ToUpper(KindOf(err).String())
}

// GatewayErr marks a transient external call failure (timeout, 5xx, network).
func GatewayErr(code, msg string, err error) error {
	return &Error{Kind: Gateway, Code: code, Msg: msg, Err: err}
}

// GatewayRejectedErr marks a definitive refusal by the counterparty.
func GatewayRejectedErr(code, msg string) error {
	return &Error{Kind: Gateway, Code: code, Msg: msg, Rejected: true}
}

// IsRejected reports whether err is a counterparty refusal.
func IsRejected(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == Gateway && e.Rejected
}

// MessageOf returns the human readable part of err without the code suffix.
func MessageOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		if e.Err != nil {
			return e.Msg + ": " + e.Err.Error()
		}
		return e.Msg
	}
	return err.Error()
}

func PersistenceErr(msg string, err error) error {
	return E(Persistence, msg, err)
}

func NotFoundErr(what, id string) error {
	return E(NotFound, fmt.Sprintf("%s %s not found", what, id), nil)
}

// Re-exports so callers importing this package do not need the stdlib one too.
var (
	As     = stderrors.As
	New    = stderrors.New
	Join   = stderrors.Join
	Unwrap = stderrors.Unwrap
)

// IsErr is stdlib errors.Is.
func IsErr(err, target error) bool { return stderrors.Is(err, target) }

// ValidationErrors collects field level problems before failing once.
type ValidationErrors struct {
	fields map[string][]string
}

func ValidationErrs() *ValidationErrors {
	return &ValidationErrors{fields: map[string][]string{}}
}

func (v *ValidationErrors) Add(field, msg string) {
	v.fields[field] = append(v.fields[field], msg)
}

func (v *ValidationErrors) Len() int { return len(v.fields) }

// Err returns nil when nothing was added.
func (v *ValidationErrors) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(v.fields[k], ", ")))
	}
	return E(Invalid, strings.Join(parts, "; "), nil)
}
