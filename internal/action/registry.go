package action

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
	"github.com/OpenTouch/night-watch/internal/nwlog"
	"gopkg.in/yaml.v3"
)

// Validate checks cfg against d, returning an ActionConfigInvalid error
// naming the first missing mandatory parameter.
func (d Descriptor) Validate(name string, cfg map[string]any) (unknown []string, err error) {
	for _, m := range d.Mandatory {
		if _, ok := cfg[m]; !ok {
			return nil, nwerrors.New(nwerrors.KindActionConfigInvalid,
				"action %q: mandatory parameter %q is not provided", name, m)
		}
	}
	known := make(map[string]bool, len(d.Mandatory)+len(d.Optional))
	for _, p := range d.Mandatory {
		known[p] = true
	}
	for _, p := range d.Optional {
		known[p] = true
	}
	for k := range cfg {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	return unknown, nil
}

// Merge overlays task-supplied options on an action's default
// configuration, task options taking precedence.
func Merge(defaults, taskOptions map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(taskOptions))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range taskOptions {
		out[k] = v
	}
	return out
}

type registration struct {
	descriptor Descriptor
	factory    Factory
}

// Registry holds the set of known action types and caches each one's
// default configuration file, symmetric to internal/provider's Registry.
type Registry struct {
	mu            sync.Mutex
	configDir     string
	registrations map[string]registration
	defaults      map[string]map[string]any
}

func NewRegistry(configDir string) *Registry {
	return &Registry{
		configDir:     configDir,
		registrations: make(map[string]registration),
		defaults:      make(map[string]map[string]any),
	}
}

func (r *Registry) Register(name string, d Descriptor, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[name] = registration{descriptor: d, factory: f}
}

func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = make(map[string]map[string]any)
}

// New instantiates a Runner for the named action type.
func (r *Registry) New(name string, taskOptions map[string]any) (Runner, error) {
	r.mu.Lock()
	reg, ok := r.registrations[name]
	r.mu.Unlock()
	if !ok {
		return nil, nwerrors.New(nwerrors.KindActionConfigInvalid, "unknown action %q", name)
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
	log := nwlog.Logger.With().Str("action", name).Logger()
	for _, k := range unknown {
		log.Warn().Str("parameter", k).Msg("parameter is not managed by this action")
	}
	for _, opt := range reg.descriptor.Optional {
		if _, ok := cfg[opt]; !ok {
			log.Debug().Str("parameter", opt).Msg("optional parameter not provided")
		}
	}

	runner, err := reg.factory(cfg)
	if err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindActionConfigInvalid, err, "action %q: invalid configuration", name)
	}
	return runner, nil
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
			return nil, nil
		}
		return nil, nwerrors.Wrap(nwerrors.KindActionConfigInvalid, err, "reading default configuration for action %q", name)
	}

	var cfg map[string]any
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindActionConfigInvalid, err, "parsing default configuration for action %q", name)
	}
	r.mu.Lock()
	r.defaults[name] = cfg
	r.mu.Unlock()
	return cfg, nil
}

func (r *Registry) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.registrations))
	for name := range r.registrations {
		out = append(out, name)
	}
	return out
}
