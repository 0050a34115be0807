// Package session resolves DPD endpoints and owns the connection handles
// shared by all services of one client.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/invoke"
	"github.com/tournevent/dpd/pkg/dpd/rest"
	"github.com/tournevent/dpd/pkg/dpd/soap"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DialOptions are passed to a Dialer.
type DialOptions struct {
	Timeout     time.Duration
	Credentials dpd.Credentials
}

// Dialer opens a connection handle to url.
type Dialer interface {
	Dial(ctx context.Context, url string, opts DialOptions) (invoke.Handle, error)
}

// DialerFunc adapts a function to a Dialer.
type DialerFunc func(ctx context.Context, url string, opts DialOptions) (invoke.Handle, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, url string, opts DialOptions) (invoke.Handle, error) {
	return f(ctx, url, opts)
}

// SOAPDialer dials a WSDL described service.
func SOAPDialer(client *http.Client) Dialer {
	return DialerFunc(func(ctx context.Context, url string, opts DialOptions) (invoke.Handle, error) {
		return soap.Dial(ctx, url, soap.Options{HTTPClient: client, Timeout: opts.Timeout})
	})
}

// RESTDialer dials the PUDO JSON API with basic auth.
func RESTDialer(client *http.Client) Dialer {
	return DialerFunc(func(ctx context.Context, url string, opts DialOptions) (invoke.Handle, error) {
		return rest.Dial(ctx, url, rest.Options{
			HTTPClient: client,
			Login:      opts.Credentials.Login,
			Password:   opts.Credentials.Password,
			Timeout:    opts.Timeout,
		})
	})
}

// Config describes the session to open.
type Config struct {
	Environment dpd.Environment
	Credentials dpd.Credentials
	Timeout     time.Duration
	// Kinds lists the services to connect to. Defaults to ObjServices and PUDO.
	Kinds []dpd.ServiceKind
}

// Manager opens the connection handles of a session once and hands them
// out read-only afterwards.
type Manager struct {
	cfg     Config
	dialers map[dpd.ServiceKind]Dialer
	logger  *otelzap.Logger

	mu      sync.RWMutex
	handles map[dpd.ServiceKind]invoke.Handle
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer overrides the dialer used for a service kind.
func WithDialer(kind dpd.ServiceKind, d Dialer) Option {
	return func(m *Manager) {
		m.dialers[kind] = d
	}
}

// WithHTTPClient sets the HTTP client of the default dialers.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.dialers[dpd.ObjServices] = SOAPDialer(client)
		m.dialers[dpd.XMLServices] = SOAPDialer(client)
		m.dialers[dpd.PUDO] = RESTDialer(client)
	}
}

// New creates a Manager. No network access happens until Open.
func New(cfg Config, logger *otelzap.Logger, opts ...Option) *Manager {
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = []dpd.ServiceKind{dpd.ObjServices, dpd.PUDO}
	}
	m := &Manager{
		cfg: cfg,
		dialers: map[dpd.ServiceKind]Dialer{
			dpd.ObjServices: SOAPDialer(nil),
			dpd.XMLServices: SOAPDialer(nil),
			dpd.PUDO:        RESTDialer(nil),
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Endpoint resolves the URL of kind in the configured environment.
func (m *Manager) Endpoint(kind dpd.ServiceKind) (string, error) {
	return dpd.ResolveEndpoint(m.cfg.Environment, kind)
}

// Open performs the handshakes of all configured services. It must be
// called exactly once; a failed Open leaves the Manager uninitialized and
// may be retried.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handles != nil {
		return dpd.NewConfigurationError("session is already open")
	}

	type target struct {
		kind   dpd.ServiceKind
		url    string
		dialer Dialer
	}
	targets := make([]target, 0, len(m.cfg.Kinds))
	for _, kind := range m.cfg.Kinds {
		url, err := m.Endpoint(kind)
		if err != nil {
			return err
		}
		d, ok := m.dialers[kind]
		if !ok {
			return dpd.NewConfigurationError("no dialer for service %q", kind)
		}
		targets = append(targets, target{kind: kind, url: url, dialer: d})
	}

	opts := DialOptions{Timeout: m.cfg.Timeout, Credentials: m.cfg.Credentials}
	handles := make(map[dpd.ServiceKind]invoke.Handle, len(targets))
	var hmu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			start := time.Now()
			m.logger.Info("Opening DPD session",
				zap.String("service", string(t.kind)),
				zap.String("endpoint", t.url),
			)
			h, err := t.dialer.Dial(gctx, t.url, opts)
			if err != nil {
				m.logger.Error("DPD handshake failed",
					zap.String("service", string(t.kind)),
					zap.Error(err),
				)
				return dpd.NewNetworkError("opening "+string(t.kind)+" session at "+t.url, err)
			}
			m.logger.Info("DPD session opened",
				zap.String("service", string(t.kind)),
				zap.Duration("duration", time.Since(start)),
			)
			hmu.Lock()
			handles[t.kind] = h
			hmu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.handles = handles
	return nil
}

// Initialized reports whether Open has succeeded.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handles != nil
}

// Handle returns the handle for kind. It never touches the network.
func (m *Manager) Handle(kind dpd.ServiceKind) (invoke.Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.handles == nil {
		return nil, dpd.NewNotInitializedError("DPD session")
	}
	h, ok := m.handles[kind]
	if !ok {
		return nil, dpd.NewNotInitializedError(string(kind) + " service")
	}
	return h, nil
}
