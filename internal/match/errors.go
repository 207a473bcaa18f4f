package match

import "errors"

// Code classifies engine failures.
type Code string

const (
	// CodeValidation marks malformed player input. State is unchanged.
	CodeValidation Code = "validation"
	// CodeProvider marks a failed fact request. The turn stays in
	// PhaseAcquiring and the caller may retry.
	CodeProvider Code = "provider"
	// CodePersistence marks a failed save, load or delete.
	CodePersistence Code = "persistence"
	// CodeContractViolation marks an intent the current phase does not
	// accept. It indicates a caller bug.
	CodeContractViolation Code = "contract_violation"
	// CodeBusy marks an intent received while a fact request is outstanding.
	CodeBusy Code = "busy"
	// CodeNotFound marks a missing or unreadable match record.
	CodeNotFound Code = "not_found"
)

// Error is the engine's error type.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrProvider          = &Error{Code: CodeProvider, Message: "fact provider failed"}
	ErrPersistence       = &Error{Code: CodePersistence, Message: "persistence failed"}
	ErrContractViolation = &Error{Code: CodeContractViolation, Message: "contract violation"}
	ErrBusy              = &Error{Code: CodeBusy, Message: "fact request in progress"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "match not found"}
)

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func wrapError(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there
// is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
