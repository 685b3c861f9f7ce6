package registry

import "fmt"

// Kind classifies the errors the registry can return. Every error crossing
// the registry boundary carries exactly one kind, and callers (e.g. the HTTP
// layer) map kinds to statuses. Errors are never retried inside the registry;
// they propagate to the caller unchanged.
type Kind int

const (
	// KindUnknown is the zero kind, used for errors the registry did not
	// originate.
	KindUnknown Kind = iota

	// KindValidation covers malformed requests: both or neither of
	// Content/URL supplied, bad base64, bad version-range syntax.
	KindValidation

	// KindNotFound means the requested package identifier does not exist.
	KindNotFound

	// KindConflict means the derived identifier already exists at
	// publication time.
	KindConflict

	// KindUpstream covers infrastructure failures: blob store, metadata
	// store, remote archive fetch, and origin resolution errors.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	}
	return "unknown"
}

// Error is the error type returned by the registry. It pairs a Kind with a
// message and, optionally, the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError makes a registry error with the given kind and formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError makes a registry error wrapping err.
func WrapError(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindUnknown if err did not come from
// this package.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}
