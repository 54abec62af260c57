package core

import (
	"strings"
	"time"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentIntegration = "integration"
)

const (
	// DefaultStatusCodeOK is the network's canonical "accepted" outcome code.
	DefaultStatusCodeOK = "00"
	// DefaultStatusCodeRetry is the sentinel the network reports for a
	// transient validation state that should be re-attempted.
	DefaultStatusCodeRetry = "78"
	// DefaultStatusCodeUnknown is recorded when a terminal failure carries
	// no network-assigned code.
	DefaultStatusCodeUnknown = "unknown"
)

type SecretsConfig struct {
	Integrity           string `koanf:"integrity" mapstructure:"integrity"`
	Authorize           string `koanf:"authorize" mapstructure:"authorize"`
	Chargeback          string `koanf:"chargeback" mapstructure:"chargeback"`
	ChargebackAutomatic string `koanf:"chargeback_automatic" mapstructure:"chargeback_automatic"`
}

type StatusCodesConfig struct {
	OK      string `koanf:"ok" mapstructure:"ok"`
	Retry   string `koanf:"retry" mapstructure:"retry"`
	Unknown string `koanf:"unknown" mapstructure:"unknown"`
}

type APIConfig struct {
	// BaseURL overrides the environment-derived network endpoint.
	BaseURL string        `koanf:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type ReconcileConfig struct {
	Interval   time.Duration `koanf:"interval" mapstructure:"interval"`
	RetryLimit int           `koanf:"retry_limit" mapstructure:"retry_limit"`
	RetryDelay time.Duration `koanf:"retry_delay" mapstructure:"retry_delay"`
}

// Config is the explicit configuration value passed into each component.
// There is no process-wide provider; hosts construct one Config and hand it
// to NewProcessor/NewScheduler/client.New by value.
type Config struct {
	ServiceName string            `koanf:"service_name" mapstructure:"service_name"`
	Environment string            `koanf:"environment" mapstructure:"environment"`
	API         APIConfig         `koanf:"api" mapstructure:"api"`
	Secrets     SecretsConfig     `koanf:"secrets" mapstructure:"secrets"`
	StatusCodes StatusCodesConfig `koanf:"status_codes" mapstructure:"status_codes"`
	Reconcile   ReconcileConfig   `koanf:"reconcile" mapstructure:"reconcile"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "paytoken",
		Environment: EnvironmentIntegration,
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		StatusCodes: StatusCodesConfig{
			OK:      DefaultStatusCodeOK,
			Retry:   DefaultStatusCodeRetry,
			Unknown: DefaultStatusCodeUnknown,
		},
		Reconcile: ReconcileConfig{
			Interval:   time.Second,
			RetryLimit: 3,
			RetryDelay: 2 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return NewBadInputError("core: service_name is required")
	}
	switch strings.TrimSpace(c.Environment) {
	case EnvironmentProduction, EnvironmentIntegration:
	default:
		return NewBadInputError("core: environment must be production or integration")
	}
	if c.API.Timeout < 0 {
		return NewBadInputError("core: api timeout must not be negative")
	}
	if c.Reconcile.Interval < 0 {
		return NewBadInputError("core: reconcile interval must not be negative")
	}
	if c.Reconcile.RetryLimit < 0 {
		return NewBadInputError("core: reconcile retry_limit must not be negative")
	}
	if c.Reconcile.RetryDelay < 0 {
		return NewBadInputError("core: reconcile retry_delay must not be negative")
	}
	return nil
}

// Normalized fills zero-valued knobs with defaults so components can rely on
// usable values without re-checking.
func (c Config) Normalized() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.ServiceName) == "" {
		c.ServiceName = defaults.ServiceName
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = defaults.Environment
	}
	if strings.TrimSpace(c.StatusCodes.OK) == "" {
		c.StatusCodes.OK = defaults.StatusCodes.OK
	}
	if strings.TrimSpace(c.StatusCodes.Retry) == "" {
		c.StatusCodes.Retry = defaults.StatusCodes.Retry
	}
	if strings.TrimSpace(c.StatusCodes.Unknown) == "" {
		c.StatusCodes.Unknown = defaults.StatusCodes.Unknown
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = defaults.API.Timeout
	}
	if c.Reconcile.Interval <= 0 {
		c.Reconcile.Interval = defaults.Reconcile.Interval
	}
	if c.Reconcile.RetryLimit <= 0 {
		c.Reconcile.RetryLimit = defaults.Reconcile.RetryLimit
	}
	if c.Reconcile.RetryDelay <= 0 {
		c.Reconcile.RetryDelay = defaults.Reconcile.RetryDelay
	}
	return c
}
