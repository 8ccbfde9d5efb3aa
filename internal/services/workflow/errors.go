package workflow

import "fmt"

// Kind classifies a workflow failure so the HTTP layer can map it to
// a status code without inspecting message text.
type Kind string

const (
	KindNotFound          Kind = "not_found"          // referenced entity absent
	KindValidation        Kind = "validation_error"   // malformed input (bad date, unknown enum value)
	KindInvalidTransition Kind = "invalid_transition" // status move not in the allowed graph
	KindForbidden         Kind = "forbidden"          // capability missing
	KindConflict          Kind = "conflict"           // uniqueness or cross-entity integrity violation
	KindInternal          Kind = "internal_error"     // store/transaction failure
)

// Error is the structured error returned by every workflow operation.
// For KindInternal the wrapped store error is kept for logs but the
// Message stays generic; all other kinds carry human-readable detail
// the caller can act on.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

func notFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func invalidTransition(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", err: err}
}

// KindOf extracts the Kind from a workflow error; non-workflow errors
// report KindInternal.
func KindOf(err error) Kind {
	if werr, ok := err.(*Error); ok {
		return werr.Kind
	}
	return KindInternal
}
