// Package invoke calls remote DPD procedures with bounded retry.
package invoke

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Handle is a connection to a set of remote procedures.
type Handle interface {
	HasProcedure(name string) bool
	Call(ctx context.Context, procedure string, args map[string]any) (any, error)
}

// Policy bounds the retries of one invocation.
type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// BaseDelay is multiplied by the attempt number to get the wait before it.
	BaseDelay time.Duration
	// Timeout limits each attempt. Zero means no per-attempt limit.
	Timeout time.Duration
}

// Attempts returns the maximum number of attempts under the policy.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Backoff returns the wait before attempt k (1-indexed).
func Backoff(base time.Duration, k int) time.Duration {
	if k < 2 {
		return 0
	}
	return base * time.Duration(k)
}

// Recorder receives invocation metrics.
type Recorder interface {
	RecordAttempt(procedure, outcome string, duration time.Duration)
	RecordRetry(procedure string)
}

// Attempt outcomes reported to the Recorder.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
)

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(string, string, time.Duration) {}

func (nopRecorder) RecordRetry(string) {}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Invoker executes remote procedures. It keeps no per-call state, so one
// Invoker may serve any number of concurrent calls.
type Invoker struct {
	logger   *otelzap.Logger
	tracer   trace.Tracer
	recorder Recorder
	sleep    SleepFunc
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(inv *Invoker) {
		if r != nil {
			inv.recorder = r
		}
	}
}

// WithSleep replaces the function used to wait between attempts.
func WithSleep(fn SleepFunc) Option {
	return func(inv *Invoker) {
		if fn != nil {
			inv.sleep = fn
		}
	}
}

// New creates an Invoker. A nil tracer disables tracing.
func New(logger *otelzap.Logger, tracer trace.Tracer, opts ...Option) *Invoker {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("dpd")
	}
	inv := &Invoker{
		logger:   logger,
		tracer:   tracer,
		recorder: nopRecorder{},
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke calls procedure on h and returns its raw response. Each
// invocation gets a request id, logged and set on its span.
//
// Transient failures are retried up to p.MaxRetries times, waiting
// Backoff(p.BaseDelay, k) before attempt k. Any other failure is returned
// on first occurrence.
func (inv *Invoker) Invoke(ctx context.Context, h Handle, procedure string, args map[string]any, p Policy) (any, error) {
	if !h.HasProcedure(procedure) {
		return nil, dpd.NewProcedureNotFoundError(procedure)
	}

	requestID := uuid.NewString()
	ctx, span := inv.tracer.Start(ctx, "dpd.invoke "+procedure,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("dpd.procedure", procedure),
			attribute.String("dpd.request_id", requestID),
			attribute.Int("dpd.max_retries", p.MaxRetries),
		),
	)
	defer span.End()

	log := inv.logger.Ctx(ctx)
	attempts := p.Attempts()
	var last *dpd.Error

	for k := 1; k <= attempts; k++ {
		if k > 1 {
			delay := Backoff(p.BaseDelay, k)
			log.Warn("Retrying DPD procedure",
				zap.String("procedure", procedure),
				zap.String("request_id", requestID),
				zap.Int("attempt", k),
				zap.Duration("delay", delay),
				zap.Error(last),
			)
			inv.recorder.RecordRetry(procedure)
			if err := inv.sleep(ctx, delay); err != nil {
				return nil, inv.fail(span, cancelled(procedure, err).WithAttempts(k-1))
			}
		}

		span.AddEvent("attempt", trace.WithAttributes(attribute.Int("dpd.attempt", k)))
		start := time.Now()
		result, err := inv.attempt(ctx, h, procedure, args, p.Timeout)
		elapsed := time.Since(start)

		if err == nil {
			inv.recorder.RecordAttempt(procedure, OutcomeSuccess, elapsed)
			log.Debug("DPD procedure succeeded",
				zap.String("procedure", procedure),
				zap.String("request_id", requestID),
				zap.Int("attempt", k),
				zap.Duration("duration", elapsed),
			)
			span.SetAttributes(attribute.Int("dpd.attempts", k))
			return result, nil
		}

		classified := Classify(ctx, err).WithProcedure(procedure)
		if !classified.Retryable {
			inv.recorder.RecordAttempt(procedure, OutcomePermanent, elapsed)
			log.Error("DPD procedure failed",
				zap.String("procedure", procedure),
				zap.String("request_id", requestID),
				zap.Int("attempt", k),
				zap.String("code", classified.Code),
				zap.Error(err),
			)
			return nil, inv.fail(span, classified.WithAttempts(k))
		}
		inv.recorder.RecordAttempt(procedure, OutcomeTransient, elapsed)
		last = classified.WithAttempts(k)
	}

	exhausted := dpd.NewServiceError(dpd.CodeRetriesExhausted,
		fmt.Sprintf("procedure %s failed after %d attempts", procedure, attempts)).
		WithProcedure(procedure).
		WithAttempts(attempts).
		WithCause(last)
	log.Error("DPD procedure retries exhausted",
		zap.String("procedure", procedure),
		zap.String("request_id", requestID),
		zap.Int("attempts", attempts),
		zap.Error(last),
	)
	return nil, inv.fail(span, exhausted)
}

func (inv *Invoker) attempt(ctx context.Context, h Handle, procedure string, args map[string]any, timeout time.Duration) (any, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return h.Call(ctx, procedure, args)
}

func (inv *Invoker) fail(span trace.Span, err *dpd.Error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Code)
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
