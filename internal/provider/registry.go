package provider

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
	"github.com/OpenTouch/night-watch/internal/nwlog"
	"gopkg.in/yaml.v3"
)

type registration struct {
	descriptor Descriptor
	factory    Factory
}

// Registry holds the set of known provider types and caches each one's
// default configuration file, loaded at most once until ClearCache is
// called (mirrors original_source's ProvidersManager module-level cache).
type Registry struct {
	mu            sync.Mutex
	configDir     string
	registrations map[string]registration
	defaults      map[string]map[string]any // nil entry means "checked, no file"
}

// NewRegistry creates a Registry that resolves per-provider default
// configuration files from configDir/<name>.yml, matching the
// `providers_location` setting of the main configuration file. An
// empty configDir disables default-config loading entirely.
func NewRegistry(configDir string) *Registry {
	return &Registry{
		configDir:     configDir,
		registrations: make(map[string]registration),
		defaults:      make(map[string]map[string]any),
	}
}

// Register adds a provider type to the registry. Built-ins are added
// through RegisterBuiltins; tests and callers wanting a fake provider
// can call it directly.
func (r *Registry) Register(name string, d Descriptor, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[name] = registration{descriptor: d, factory: f}
}

// ClearCache drops every cached default configuration file, forcing the
// next New call for each provider to re-read it from disk.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = make(map[string]map[string]any)
}

// New instantiates a Checker for the named provider type, merging its
// cached default configuration (if any) with the task-supplied options,
// task options taking precedence, then validating and building it.
func (r *Registry) New(name string, taskOptions map[string]any) (Checker, error) {
	r.mu.Lock()
	reg, ok := r.registrations[name]
	r.mu.Unlock()
	if !ok {
		return nil, nwerrors.New(nwerrors.KindProviderConfigInvalid, "unknown provider %q", name)
	}

	defaults, err := r.loadDefaults(name)
	if err != nil {
		return nil, err
	}

	cfg := Merge(defaults, taskOptions)

	unknown, err := reg.descriptor.Validate(name, cfg)
	if err != nil {
		return nil, err
	}
	log := nwlog.WithProvider(name)
	for _, k := range unknown {
		log.Info().Str("parameter", k).Msg("parameter is not managed by this provider")
	}
	for _, opt := range reg.descriptor.Optional {
		if _, ok := cfg[opt]; !ok {
			log.Debug().Str("parameter", opt).Msg("optional parameter not provided")
		}
	}

	checker, err := reg.factory(cfg)
	if err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindProviderConfigInvalid, err, "provider %q: invalid configuration", name)
	}
	return checker, nil
}

func (r *Registry) loadDefaults(name string) (map[string]any, error) {
	r.mu.Lock()
	cached, known := r.defaults[name]
	r.mu.Unlock()
	if known {
		return cached, nil
	}
	if r.configDir == "" {
		r.mu.Lock()
		r.defaults[name] = nil
		r.mu.Unlock()
		return nil, nil
	}

	path := filepath.Join(r.configDir, name+".yml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.mu.Lock()
			r.defaults[name] = nil
			r.mu.Unlock()
			nwlog.WithProvider(name).Debug().Str("path", path).Msg("no default configuration file found")
			return nil, nil
		}
		return nil, nwerrors.Wrap(nwerrors.KindProviderConfigInvalid, err, "reading default configuration for provider %q", name)
	}

	var cfg map[string]any
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindProviderConfigInvalid, err, "parsing default configuration for provider %q", name)
	}
	r.mu.Lock()
	r.defaults[name] = cfg
	r.mu.Unlock()
	nwlog.WithProvider(name).Info().Str("path", path).Msg("default configuration loaded")
	return cfg, nil
}

// Types returns the names of every registered provider type, for
// diagnostics.
func (r *Registry) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.registrations))
	for name := range r.registrations {
		out = append(out, name)
	}
	return out
}
