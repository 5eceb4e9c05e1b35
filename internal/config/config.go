// Package config loads the scanner configuration from an optional YAML file
// and the environment.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
	"github.com/rshade/cloud-scanner-aws/internal/impact"
	"github.com/rshade/cloud-scanner-aws/internal/inventory"
	"github.com/rshade/cloud-scanner-aws/internal/logging"
)

// Environment variables read by ApplyEnv.
const (
	EnvBoaviztaURL = "BOAVIZTA_API_URL"
	EnvPort        = "CLOUD_SCANNER_PORT"
	EnvLogLevel    = "CLOUD_SCANNER_LOG_LEVEL"
	EnvAWSRegion   = "AWS_REGION"
	EnvAWSProfile  = "AWS_PROFILE"
)

const (
	// DefaultBoaviztaURL is the public Boavizta API.
	DefaultBoaviztaURL = "https://api.boavizta.org"

	// DefaultPort is the HTTP port of the serve command.
	DefaultPort = 8000
)

// Config is the scanner configuration.
type Config struct {
	BoaviztaURL       string         `yaml:"boavizta_url"`
	Port              int            `yaml:"port"`
	AWS               AWSConfig      `yaml:"aws"`
	Timeouts          TimeoutConfig  `yaml:"timeouts"`
	ImpactConcurrency int            `yaml:"impact_concurrency"`
	Logging           logging.Config `yaml:"logging"`
}

// AWSConfig selects the region and shared-config profile.
type AWSConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

// TimeoutConfig bounds outbound calls.
type TimeoutConfig struct {
	// Vendor bounds each EC2 and CloudWatch call.
	Vendor time.Duration `yaml:"vendor"`

	// Impact bounds each Boavizta query.
	Impact time.Duration `yaml:"impact"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BoaviztaURL: DefaultBoaviztaURL,
		Port:        DefaultPort,
		Timeouts: TimeoutConfig{
			Vendor: inventory.DefaultCallTimeout,
			Impact: impact.DefaultTimeout,
		},
		ImpactConcurrency: impact.DefaultConcurrency,
		Logging:           logging.DefaultConfig(),
	}
}

// Load reads a YAML file on top of Default. An empty path or a missing file
// yields the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, apperrors.Wrap(apperrors.KindConfig, "failed to read config file", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Default(), apperrors.Wrap(apperrors.KindConfig, "failed to parse config file "+path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables read through getenv. Invalid values
// are logged and ignored.
func (c *Config) ApplyEnv(getenv func(string) string, logger zerolog.Logger) {
	if v := strings.TrimSpace(getenv(EnvBoaviztaURL)); v != "" {
		c.BoaviztaURL = v
	}
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		if port, err := strconv.Atoi(v); err == nil && ValidPort(port) {
			c.Port = port
		} else {
			logger.Warn().Str("value", v).Msg("invalid " + EnvPort + ", using default")
		}
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		if _, err := logging.ParseLevel(v); err == nil {
			c.Logging.Level = v
		} else {
			logger.Warn().Str("value", v).Msg("invalid " + EnvLogLevel + ", using default")
		}
	}
	if v := strings.TrimSpace(getenv(EnvAWSRegion)); v != "" {
		c.AWS.Region = v
	}
	if v := strings.TrimSpace(getenv(EnvAWSProfile)); v != "" {
		c.AWS.Profile = v
	}
}

// Validate reports the first invalid setting as a Config error.
func (c Config) Validate() error {
	if _, err := impact.ParseBaseURL(c.BoaviztaURL); err != nil {
		return err
	}
	if !ValidPort(c.Port) {
		return apperrors.Newf(apperrors.KindConfig, "invalid port %d", c.Port)
	}
	if c.Timeouts.Vendor <= 0 || c.Timeouts.Impact <= 0 {
		return apperrors.New(apperrors.KindConfig, "timeouts must be positive")
	}
	if c.ImpactConcurrency <= 0 {
		return apperrors.Newf(apperrors.KindConfig, "impact_concurrency must be positive, got %d", c.ImpactConcurrency)
	}
	return c.Logging.Validate()
}

// ValidPort reports whether port is a usable TCP port number.
func ValidPort(port int) bool {
	return port > 0 && port <= 65535
}
