package soap

import (
	"fmt"
	"net/http"
	"strings"
)

// Fault is a SOAP 1.1 fault returned by the service.
type Fault struct {
	Code       string
	String     string
	Actor      string
	Detail     string
	StatusCode int
}

func (f *Fault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

// ErrorCode returns the fault code.
func (f *Fault) ErrorCode() string {
	return f.Code
}

// StatusError is a non-2xx HTTP response without a SOAP fault.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func newStatusError(resp *http.Response, body []byte) *StatusError {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 512 {
		snippet = snippet[:512]
	}
	return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: snippet}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %s", e.Status)
}

// Temporary reports whether the status suggests a retry may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}
