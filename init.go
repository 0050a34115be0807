package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tournevent/dpd/internal/config"
	"github.com/tournevent/dpd/internal/telemetry"
	"github.com/tournevent/dpd/pkg/dpd/client"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// app is the per-command runtime: configuration, telemetry and an
// initialized DPD client.
type app struct {
	cfg      *config.Config
	logger   *otelzap.Logger
	registry *prometheus.Registry
	tracer   trace.Tracer
	client   *client.Client
	shutdown func(context.Context) error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.mock {
		cfg.UseMock = true
	}
	if flags.env != "" {
		cfg.Environment = flags.env
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, nil
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.OTELEnabled {
		return nil, noop, nil
	}
	tracer, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
	if err != nil {
		return nil, noop, err
	}
	return tracer, shutdown, nil
}

// newApp builds the runtime of cmd and opens the DPD session.
func newApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	tracer, shutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	}

	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry(), tracer: tracer, shutdown: shutdown}
	if err := a.open(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// open creates the DPD client and opens its session. On failure the
// telemetry of a is released.
func (a *app) open(ctx context.Context) error {
	c, err := client.New(a.cfg.Client(), a.logger, a.tracer,
		client.WithRecorder(telemetry.NewMetrics(a.registry)),
	)
	if err == nil {
		err = c.Initialize(ctx)
	}
	if err != nil {
		a.Close(ctx)
		return err
	}
	a.client = c
	return nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("Failed to shut down tracer", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// readInput decodes a YAML (or JSON) file into v using v's json tags.
// Unknown keys are rejected.
func readInput(path string, v any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var raw any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return fmt.Errorf("parsing input %s: %w", path, err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      v,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decoding input %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
