package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/client"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the CLI.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" yaml:"logLevel"`

	// DPD
	Login       string        `envconfig:"DPD_LOGIN" yaml:"login"`
	Password    string        `envconfig:"DPD_PASSWORD" yaml:"password"`
	MasterFID   string        `envconfig:"DPD_MASTER_FID" yaml:"masterFid"`
	Environment string        `envconfig:"DPD_ENVIRONMENT" default:"demo" yaml:"environment"`
	Timeout     time.Duration `envconfig:"DPD_TIMEOUT" default:"30s" yaml:"timeout"`
	MaxRetries  int           `envconfig:"DPD_MAX_RETRIES" default:"3" yaml:"maxRetries"`
	RetryDelay  time.Duration `envconfig:"DPD_RETRY_DELAY" default:"1s" yaml:"retryDelay"`
	UseMock     bool          `envconfig:"DPD_USE_MOCK" default:"false" yaml:"useMock"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false" yaml:"otelEnabled"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318" yaml:"otelEndpoint"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"dpd-cli" yaml:"serviceName"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1" yaml:"version"`
}

// Load reads configuration from environment variables. When path is not
// empty the YAML file at path overrides the keys it sets.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Client returns the DPD client configuration.
func (c *Config) Client() client.Config {
	return client.Config{
		Credentials: dpd.Credentials{
			Login:     c.Login,
			Password:  c.Password,
			MasterFID: c.MasterFID,
		},
		Environment: dpd.Environment(c.Environment),
		Timeout:     c.Timeout,
		MaxRetries:  c.MaxRetries,
		RetryDelay:  c.RetryDelay,
		UseMock:     c.UseMock,
	}
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("dpd.environment", c.Environment),
		attribute.String("dpd.master_fid", c.MasterFID),
		attribute.Bool("dpd.mock", c.UseMock),
	}
}
