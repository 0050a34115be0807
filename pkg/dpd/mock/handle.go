// Package mock provides an in-memory DPD connection handle for testing and
// offline use.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/invoke"
	"github.com/tournevent/dpd/pkg/dpd/session"
)

// Responder produces the raw response of one procedure call.
type Responder func(args map[string]any) (any, error)

// Call is a recorded procedure call.
type Call struct {
	Procedure string
	Args      map[string]any
}

// Handle is a mock connection handle answering with canned DPD responses.
type Handle struct {
	kind dpd.ServiceKind

	// OnCall, if set, is consulted before the canned responder. Returning
	// a nil response and nil error falls through to the canned answer.
	OnCall func(ctx context.Context, procedure string, args map[string]any) (any, error)
	// SimulateLatency delays every call.
	SimulateLatency time.Duration
	// SimulateErrors, if set, is returned by every call.
	SimulateErrors error

	mu         sync.Mutex
	responders map[string]Responder
	calls      []Call
}

// New creates a mock handle exposing the canned procedures of kind.
func New(kind dpd.ServiceKind) *Handle {
	h := &Handle{kind: kind, responders: map[string]Responder{}}
	switch kind {
	case dpd.PUDO:
		h.responders["findParcelShops"] = findParcelShops
		h.responders["getParcelShop"] = getParcelShop
	default:
		g := &generator{}
		h.responders["generatePackagesNumbersV9"] = g.packages
		h.responders["generateInternationalPackageNumbersV1"] = g.packages
		h.responders["generateSpedLabelsV4"] = document
		h.responders["generateProtocolV2"] = document
		h.responders["generateDomesticReturnLabelV1"] = document
		h.responders["generateReturnLabelV1"] = document
		h.responders["packagesPickupCallV4"] = pickup
		h.responders["getParcelStatus"] = parcelStatus
		h.responders["getPostcodeInfo"] = postcodeInfo
	}
	return h
}

// Kind returns the service kind the handle imitates.
func (h *Handle) Kind() dpd.ServiceKind {
	return h.kind
}

// Set replaces or adds the responder of a procedure.
func (h *Handle) Set(procedure string, r Responder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responders[procedure] = r
}

// Remove drops a procedure from the handle.
func (h *Handle) Remove(procedure string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.responders, procedure)
}

// HasProcedure reports whether the handle answers procedure.
func (h *Handle) HasProcedure(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.responders[name]
	return ok
}

// Procedures returns the answered procedure names, sorted.
func (h *Handle) Procedures() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.responders))
	for name := range h.responders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call records the call and returns the canned response.
func (h *Handle) Call(ctx context.Context, procedure string, args map[string]any) (any, error) {
	h.mu.Lock()
	h.calls = append(h.calls, Call{Procedure: procedure, Args: args})
	r, ok := h.responders[procedure]
	h.mu.Unlock()

	if h.SimulateLatency > 0 {
		timer := time.NewTimer(h.SimulateLatency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if h.SimulateErrors != nil {
		return nil, h.SimulateErrors
	}
	if h.OnCall != nil {
		resp, err := h.OnCall(ctx, procedure, args)
		if resp != nil || err != nil {
			return resp, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("mock: no responder for %s", procedure)
	}
	return r(args)
}

// Calls returns the recorded calls in order.
func (h *Handle) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.calls...)
}

// CallCount returns how often procedure was called.
func (h *Handle) CallCount(procedure string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c.Procedure == procedure {
			n++
		}
	}
	return n
}

// Dialer returns a session dialer that hands out h for any URL.
func (h *Handle) Dialer() session.Dialer {
	return session.DialerFunc(func(ctx context.Context, url string, opts session.DialOptions) (invoke.Handle, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return h, nil
	})
}

// Set of handles for a whole session.
type Set struct {
	ObjServices *Handle
	XMLServices *Handle
	PUDO        *Handle
}

// NewSet creates handles for every service kind.
func NewSet() *Set {
	return &Set{
		ObjServices: New(dpd.ObjServices),
		XMLServices: New(dpd.XMLServices),
		PUDO:        New(dpd.PUDO),
	}
}

// Options wires the handles into a session manager.
func (s *Set) Options() []session.Option {
	handles := []*Handle{s.ObjServices, s.XMLServices, s.PUDO}
	opts := make([]session.Option, 0, len(handles))
	for _, h := range handles {
		opts = append(opts, session.WithDialer(h.Kind(), h.Dialer()))
	}
	return opts
}

// ErrUnavailable is a transient failure usable with SimulateErrors.
var ErrUnavailable = &unavailableError{}

type unavailableError struct{}

func (*unavailableError) Error() string   { return "mock: service unavailable" }
func (*unavailableError) Temporary() bool { return true }

// Credentials are used by offline clients configured without any.
var Credentials = dpd.Credentials{Login: "mock", Password: "mock", MasterFID: "1495"}
