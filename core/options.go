package core

import (
	"context"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticRawConfigLoader serves a fixed raw configuration map; hosts use it
// to bridge whatever configuration source they own into the cfgx provider.
func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, NewInternalError("core: options stack build failed: " + err.Error())
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, NewInternalError("core: options merge failed: " + err.Error())
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// ResolveConfig merges defaults, provider-loaded values, and runtime
// overrides into one validated Config.
func ResolveConfig(ctx context.Context, provider ConfigProvider, resolver OptionsResolver, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.Environment) != "" {
		layer["environment"] = cfg.Environment
	}

	api := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.API.BaseURL) != "" {
		api["base_url"] = cfg.API.BaseURL
	}
	if includeZero || cfg.API.Timeout > 0 {
		api["timeout"] = cfg.API.Timeout
	}
	if len(api) > 0 {
		layer["api"] = api
	}

	secrets := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Secrets.Integrity) != "" {
		secrets["integrity"] = cfg.Secrets.Integrity
	}
	if includeZero || strings.TrimSpace(cfg.Secrets.Authorize) != "" {
		secrets["authorize"] = cfg.Secrets.Authorize
	}
	if includeZero || strings.TrimSpace(cfg.Secrets.Chargeback) != "" {
		secrets["chargeback"] = cfg.Secrets.Chargeback
	}
	if includeZero || strings.TrimSpace(cfg.Secrets.ChargebackAutomatic) != "" {
		secrets["chargeback_automatic"] = cfg.Secrets.ChargebackAutomatic
	}
	if len(secrets) > 0 {
		layer["secrets"] = secrets
	}

	statusCodes := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.StatusCodes.OK) != "" {
		statusCodes["ok"] = cfg.StatusCodes.OK
	}
	if includeZero || strings.TrimSpace(cfg.StatusCodes.Retry) != "" {
		statusCodes["retry"] = cfg.StatusCodes.Retry
	}
	if includeZero || strings.TrimSpace(cfg.StatusCodes.Unknown) != "" {
		statusCodes["unknown"] = cfg.StatusCodes.Unknown
	}
	if len(statusCodes) > 0 {
		layer["status_codes"] = statusCodes
	}

	reconcile := map[string]any{}
	if includeZero || cfg.Reconcile.Interval > 0 {
		reconcile["interval"] = cfg.Reconcile.Interval
	}
	if includeZero || cfg.Reconcile.RetryLimit > 0 {
		reconcile["retry_limit"] = cfg.Reconcile.RetryLimit
	}
	if includeZero || cfg.Reconcile.RetryDelay > 0 {
		reconcile["retry_delay"] = cfg.Reconcile.RetryDelay
	}
	if len(reconcile) > 0 {
		layer["reconcile"] = reconcile
	}

	return layer
}
