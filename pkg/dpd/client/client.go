// Package client is the entry point of the DPD SDK. It validates
// configuration, opens the session and exposes the domain services.
package client

import (
	"context"
	"net/http"
	"time"

	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/invoke"
	"github.com/tournevent/dpd/pkg/dpd/mock"
	"github.com/tournevent/dpd/pkg/dpd/service"
	"github.com/tournevent/dpd/pkg/dpd/session"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Config holds DPD client configuration.
type Config struct {
	Credentials dpd.Credentials
	Environment dpd.Environment
	// Timeout bounds the handshake and each call attempt.
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// Kinds lists the services opened by Initialize. Defaults to
	// ObjServices and PUDO.
	Kinds   []dpd.ServiceKind
	UseMock bool
}

// DefaultConfig returns a demo configuration with default limits.
func DefaultConfig(creds dpd.Credentials) Config {
	return Config{
		Credentials: creds,
		Environment: dpd.Demo,
		Timeout:     dpd.DefaultTimeout,
		MaxRetries:  dpd.DefaultMaxRetries,
		RetryDelay:  dpd.DefaultRetryDelay,
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.Environment != dpd.Production && c.Environment != dpd.Demo {
		return dpd.NewConfigurationError("unknown environment %q", c.Environment)
	}
	if c.Timeout < dpd.MinTimeout || c.Timeout > dpd.MaxTimeout {
		return dpd.NewConfigurationError("timeout %s out of range [%s, %s]", c.Timeout, dpd.MinTimeout, dpd.MaxTimeout)
	}
	if c.MaxRetries < 0 || c.MaxRetries > dpd.MaxRetriesLimit {
		return dpd.NewConfigurationError("max retries %d out of range [0, %d]", c.MaxRetries, dpd.MaxRetriesLimit)
	}
	if c.RetryDelay < 0 {
		return dpd.NewConfigurationError("retry delay must not be negative")
	}
	if c.UseMock {
		return nil
	}
	if c.Credentials.Login == "" || c.Credentials.Password == "" || c.Credentials.MasterFID == "" {
		return dpd.NewConfigurationError("login, password and master FID are required")
	}
	return nil
}

// Policy returns the retry policy derived from the configuration.
func (c Config) Policy() invoke.Policy {
	return invoke.Policy{MaxRetries: c.MaxRetries, BaseDelay: c.RetryDelay, Timeout: c.Timeout}
}

// Client is the DPD SDK client. Services are usable after Initialize.
type Client struct {
	Domestic      *service.Domestic
	International *service.International
	Returns       *service.Returns
	Tracking      *service.Tracking
	PUDO          *service.PUDO

	config   Config
	sessions *session.Manager
	mocks    *mock.Set
	logger   *otelzap.Logger
	tracer   trace.Tracer
}

type options struct {
	httpClient *http.Client
	recorder   invoke.Recorder
	sleep      invoke.SleepFunc
	mocks      *mock.Set
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the HTTP client used by the SOAP and REST transports.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRecorder sets the invocation metrics recorder.
func WithRecorder(r invoke.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithSleep replaces the retry wait, mainly for tests.
func WithSleep(fn invoke.SleepFunc) Option {
	return func(o *options) { o.sleep = fn }
}

// WithMocks serves the session from the given mock handles. It implies
// UseMock.
func WithMocks(set *mock.Set) Option {
	return func(o *options) { o.mocks = set }
}

// New creates a DPD client. No network access happens until Initialize.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.mocks != nil {
		cfg.UseMock = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.UseMock && cfg.Credentials == (dpd.Credentials{}) {
		cfg.Credentials = mock.Credentials
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("dpd")
	}

	var sessOpts []session.Option
	if o.httpClient != nil {
		sessOpts = append(sessOpts, session.WithHTTPClient(o.httpClient))
	}
	if cfg.UseMock {
		if o.mocks == nil {
			o.mocks = mock.NewSet()
		}
		sessOpts = append(sessOpts, o.mocks.Options()...)
	}

	sessions := session.New(session.Config{
		Environment: cfg.Environment,
		Credentials: cfg.Credentials,
		Timeout:     cfg.Timeout,
		Kinds:       cfg.Kinds,
	}, logger, sessOpts...)

	invoker := invoke.New(logger, tracer, invoke.WithRecorder(o.recorder), invoke.WithSleep(o.sleep))
	svc := service.New(service.Config{Credentials: cfg.Credentials, Policy: cfg.Policy()}, sessions, invoker, logger)

	return &Client{
		Domestic:      svc.Domestic,
		International: svc.International,
		Returns:       svc.Returns,
		Tracking:      svc.Tracking,
		PUDO:          svc.PUDO,
		config:        cfg,
		sessions:      sessions,
		mocks:         o.mocks,
		logger:        logger,
		tracer:        tracer,
	}, nil
}

// Initialize opens the DPD session. It must be called once before any
// service is used.
func (c *Client) Initialize(ctx context.Context) error {
	c.logger.Info("Initializing DPD client",
		zap.String("environment", string(c.config.Environment)),
		zap.Bool("mock", c.config.UseMock),
	)
	return c.sessions.Open(ctx)
}

// Initialized reports whether Initialize has succeeded.
func (c *Client) Initialized() bool {
	return c.sessions.Initialized()
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Mocks returns the mock handles of an offline client, or nil.
func (c *Client) Mocks() *mock.Set {
	return c.mocks
}
