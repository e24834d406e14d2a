// Package provider defines the pluggable metric-source contract
// (spec.md §4.1) and the registry that instantiates named providers
// for a task, merging the provider's own default configuration with
// the per-task options supplied in the task file.
package provider

import (
	"context"
	"time"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
)

// Result is one sample returned by a provider's Process call.
type Result struct {
	Value     any
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface every concrete provider implements.
type Checker interface {
	// Process collects and returns the provider's current value.
	Process(ctx context.Context) (any, error)

	// Type names the provider as it appears in task configuration
	// (e.g. "HttpRequest", "Ping").
	Type() string
}

// Descriptor lists the parameters a provider's options accept, so the
// registry can validate a task's provider_options before instantiation
// and log unrecognised or missing-optional parameters the way
// the teacher's configuration merge does.
type Descriptor struct {
	Mandatory []string
	Optional  []string
}

// Factory builds a Checker from its merged configuration. Implementations
// type-assert the values they expect out of cfg after Validate has
// already confirmed the mandatory keys are present.
type Factory func(cfg map[string]any) (Checker, error)

// Validate checks cfg against d, returning a ProviderConfigInvalid error
// naming the first missing mandatory parameter. It does not mutate cfg;
// callers wanting the teacher's "log unrecognised parameter" behaviour
// should inspect the returned unknown-key list themselves.
func (d Descriptor) Validate(name string, cfg map[string]any) (unknown []string, err error) {
	for _, m := range d.Mandatory {
		if _, ok := cfg[m]; !ok {
			return nil, nwerrors.New(nwerrors.KindProviderConfigInvalid,
				"provider %q: mandatory parameter %q is not provided", name, m)
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

// Merge overlays task-supplied options on top of a provider's default
// configuration file contents, task options taking precedence —
// mirrors original_source's Provider.__init__ config merge.
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
