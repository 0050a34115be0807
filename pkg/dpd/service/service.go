// Package service implements the DPD domain services on top of the
// invoker: Domestic, International, Returns, Tracking and PUDO.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/invoke"
	"github.com/tournevent/dpd/pkg/dpd/schema"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Sessions hands out connection handles. It is implemented by
// *session.Manager.
type Sessions interface {
	Handle(kind dpd.ServiceKind) (invoke.Handle, error)
}

// Config holds what every service call needs besides the session.
type Config struct {
	Credentials dpd.Credentials
	Policy      invoke.Policy
}

// Services groups the domain services of one client.
type Services struct {
	Domestic      *Domestic
	International *International
	Returns       *Returns
	Tracking      *Tracking
	PUDO          *PUDO
}

// New creates the services. They share sessions, invoker and logger.
func New(cfg Config, sessions Sessions, invoker *invoke.Invoker, logger *otelzap.Logger) *Services {
	c := &caller{
		creds:    cfg.Credentials,
		policy:   cfg.Policy,
		sessions: sessions,
		invoker:  invoker,
		logger:   logger,
	}
	return &Services{
		Domestic:      &Domestic{c},
		International: &International{c},
		Returns:       &Returns{c},
		Tracking:      &Tracking{c},
		PUDO:          &PUDO{c},
	}
}

type caller struct {
	creds    dpd.Credentials
	policy   invoke.Policy
	sessions Sessions
	invoker  *invoke.Invoker
	logger   *otelzap.Logger
}

// call checks args against the request contract, invokes the procedure and
// returns the response body after the API status check.
func (c *caller) call(ctx context.Context, proc Procedure, args map[string]any) (any, error) {
	if vs := schema.Validate(proc.Request, args); len(vs) > 0 {
		return nil, dpd.NewValidationError("invalid "+proc.Name+" arguments", vs).WithProcedure(proc.Name)
	}

	h, err := c.sessions.Handle(proc.Service)
	if err != nil {
		return nil, err
	}

	raw, err := c.invoker.Invoke(ctx, h, proc.Name, args, c.policy)
	if err != nil {
		return nil, err
	}

	body := unwrapReturn(raw)
	if err := checkStatus(proc, body); err != nil {
		c.logger.Warn("DPD API reported an error",
			zap.String("procedure", proc.Name),
			zap.Error(err),
		)
		return nil, err
	}
	return body, nil
}

// invokeAs calls proc and decodes the validated response into its record.
func invokeAs[T any](ctx context.Context, c *caller, proc Procedure, args map[string]any) (T, error) {
	var zero T
	body, err := c.call(ctx, proc, args)
	if err != nil {
		return zero, err
	}

	rec, err := proc.decode(proc.Response, body)
	if err != nil {
		var failure *schema.Failure
		if errors.As(err, &failure) {
			c.logger.Error("Invalid DPD response",
				zap.String("procedure", proc.Name),
				zap.Int("violations", len(failure.Violations)),
				zap.Error(err),
			)
			return zero, dpd.NewServiceError(dpd.CodeInvalidResponse, "invalid "+proc.Name+" response").
				WithProcedure(proc.Name).
				WithViolations(failure.Violations).
				WithDetails(body).
				WithCause(err)
		}
		return zero, err
	}
	out, ok := rec.(T)
	if !ok {
		return zero, fmt.Errorf("%s decodes to %T, not %T", proc.Name, rec, zero)
	}
	return out, nil
}

// unwrapReturn strips the "return" element SOAP responses are wrapped in.
func unwrapReturn(raw any) any {
	m, ok := raw.(map[string]any)
	if !ok || len(m) != 1 {
		return raw
	}
	if inner, ok := m["return"]; ok {
		return inner
	}
	return raw
}

// checkStatus fails when the response carries a Status other than OK.
func checkStatus(proc Procedure, body any) error {
	m, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	status, ok := m["Status"].(string)
	if !ok || status == "" || status == "OK" {
		return nil
	}
	info, _ := m["StatusInfo"].(string)
	if info == "" {
		info = status
	}
	return dpd.NewServiceError(dpd.CodeAPIError, "DPD API error: "+info).
		WithProcedure(proc.Name).
		WithDetails(body)
}

// checkInput validates caller input before anything is sent.
func checkInput(what string, contract schema.Type, v any) error {
	err := schema.Check(contract, v)
	if err == nil {
		return nil
	}
	var failure *schema.Failure
	if errors.As(err, &failure) {
		return dpd.NewValidationError("invalid "+what, failure.Violations)
	}
	return dpd.NewValidationError("invalid "+what, nil).WithCause(err)
}

// tree converts a typed value to a generic argument tree.
func tree(v any) (map[string]any, error) {
	t, err := schema.Encode(schema.Any(), v)
	if err != nil {
		return nil, err
	}
	m, ok := t.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", t)
	}
	return m, nil
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func labelDefaults(opts dpd.LabelOptions) dpd.LabelOptions {
	if opts.Format == "" {
		opts.Format = dpd.FormatPDF
	}
	if opts.PageFormat == "" {
		opts.PageFormat = dpd.PageA4
	}
	return opts
}
