package invoke

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/tournevent/dpd/pkg/dpd"
)

// temporary is implemented by transport errors that know whether a retry
// can help, such as HTTP 5xx and 429 responses.
type temporary interface {
	Temporary() bool
}

// coded is implemented by remote faults carrying their own error code.
type coded interface {
	ErrorCode() string
}

// Classify maps an attempt error to the client error taxonomy. ctx is the
// caller's context; when it is done the failure is never retryable.
func Classify(ctx context.Context, err error) *dpd.Error {
	if ctx.Err() != nil {
		return cancelled("", ctx.Err())
	}

	var de *dpd.Error
	if errors.As(err, &de) {
		cp := *de
		return &cp
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return dpd.NewNetworkError("attempt timed out", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return dpd.NewNetworkError("transport failure", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return dpd.NewNetworkError("transport failure", err)
	}

	var tmp temporary
	if errors.As(err, &tmp) && tmp.Temporary() {
		return dpd.NewNetworkError("temporary service failure", err)
	}

	code := dpd.CodeServiceFailure
	var c coded
	if errors.As(err, &c) && c.ErrorCode() != "" {
		code = c.ErrorCode()
	}
	return dpd.NewServiceError(code, "remote procedure failed").WithCause(err)
}

func cancelled(procedure string, cause error) *dpd.Error {
	e := dpd.NewNetworkError("call cancelled", cause).WithProcedure(procedure)
	e.Code = dpd.CodeCancelled
	e.Retryable = false
	return e
}
