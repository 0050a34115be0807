package dpd

import (
	"errors"
	"fmt"

	"github.com/tournevent/dpd/pkg/dpd/schema"
)

// Kind classifies an Error.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindNotInitialized    Kind = "not_initialized"
	KindNetwork           Kind = "network"
	KindProcedureNotFound Kind = "procedure_not_found"
	KindValidation        Kind = "validation"
	KindService           Kind = "service"
)

// Error codes. Codes reported by DPD itself (SOAP fault codes) are kept
// verbatim and do not appear here.
const (
	CodeConfiguration     = "CONFIGURATION_ERROR"
	CodeNotInitialized    = "NOT_INITIALIZED"
	CodeNetwork           = "NETWORK_ERROR"
	CodeProcedureNotFound = "PROCEDURE_NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeAPIError          = "API_ERROR"
	CodeInvalidResponse   = "INVALID_RESPONSE"
	CodeRetriesExhausted  = "RETRIES_EXHAUSTED"
	CodeServiceFailure    = "SERVICE_ERROR"
	CodeCancelled         = "CANCELLED"
)

// Error represents every failure surfaced by the DPD client.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Procedure string
	Attempts  int
	// Details holds the upstream response for API errors.
	Details    any
	Violations []schema.Violation
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("dpd %s error (%s): %s", e.Kind, e.Code, e.Message)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind, and on Code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithProcedure records the remote procedure the error relates to.
func (e *Error) WithProcedure(name string) *Error {
	e.Procedure = name
	return e
}

// WithAttempts records how many attempts were made.
func (e *Error) WithAttempts(n int) *Error {
	e.Attempts = n
	return e
}

// WithDetails attaches the raw upstream payload.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// WithViolations attaches schema violations.
func (e *Error) WithViolations(vs []schema.Violation) *Error {
	e.Violations = vs
	return e
}

// NewConfigurationError reports an invalid client configuration.
func NewConfigurationError(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Code: CodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewNotInitializedError reports use of the client before Initialize.
func NewNotInitializedError(what string) *Error {
	return &Error{
		Kind:    KindNotInitialized,
		Code:    CodeNotInitialized,
		Message: what + " is not initialized; call Initialize first",
	}
}

// NewNetworkError reports a transport failure. Network errors are retryable.
func NewNetworkError(message string, cause error) *Error {
	return &Error{Kind: KindNetwork, Code: CodeNetwork, Message: message, Retryable: true, Cause: cause}
}

// NewProcedureNotFoundError reports a procedure the endpoint does not expose.
func NewProcedureNotFoundError(procedure string) *Error {
	return &Error{
		Kind:      KindProcedureNotFound,
		Code:      CodeProcedureNotFound,
		Message:   fmt.Sprintf("procedure %q is not exposed by the service", procedure),
		Procedure: procedure,
	}
}

// NewValidationError reports caller input that fails its contract.
func NewValidationError(message string, vs []schema.Violation) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message, Violations: vs}
}

// NewServiceError reports an application-level failure of the remote service.
func NewServiceError(code, message string) *Error {
	return &Error{Kind: KindService, Code: code, Message: message}
}

// Sentinel errors for errors.Is checks.
var (
	ErrConfiguration     = &Error{Kind: KindConfiguration}
	ErrNotInitialized    = &Error{Kind: KindNotInitialized}
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrProcedureNotFound = &Error{Kind: KindProcedureNotFound}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrService           = &Error{Kind: KindService}

	ErrAPI              = &Error{Kind: KindService, Code: CodeAPIError}
	ErrInvalidResponse  = &Error{Kind: KindService, Code: CodeInvalidResponse}
	ErrRetriesExhausted = &Error{Kind: KindService, Code: CodeRetriesExhausted}
)

// IsTransient returns true if the error is worth retrying.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// KindOf returns the kind of err, or "" if err is not a DPD error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
