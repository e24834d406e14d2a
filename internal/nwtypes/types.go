// Package nwtypes holds the shared data model for tasks, providers, and
// actions, as configured on disk and observed at runtime.
package nwtypes

import "time"

// ProviderRef is one provider entry from a task definition: a named
// provider, the condition/threshold the task compares its output against,
// and the opaque options forwarded to the provider on instantiation.
type ProviderRef struct {
	Name      string         `yaml:"name"`
	Condition string         `yaml:"condition"`
	Threshold any            `yaml:"threshold"`
	Options   map[string]any `yaml:"provider_options,omitempty"`
}

// TaskConfig is the on-disk definition of a monitoring task (spec.md §3).
type TaskConfig struct {
	PeriodSuccess  time.Duration             `yaml:"-" json:"-"`
	PeriodRetry    time.Duration             `yaml:"-" json:"-"`
	PeriodFailed   time.Duration             `yaml:"-" json:"-"`
	Retries        int                       `yaml:"retries" json:"retries,omitempty"`
	Providers      []ProviderRef             `yaml:"-" json:"-"`
	ActionsFailed  map[string]map[string]any `yaml:"actions_failed,omitempty" json:"actions_failed,omitempty"`
	ActionsSuccess map[string]map[string]any `yaml:"actions_success,omitempty" json:"actions_success,omitempty"`

	// Raw duration literals as read from YAML/JSON, kept so the loader
	// can write them back out unchanged (spec.md §4.5 deterministic
	// writes).
	PeriodSuccessRaw string `yaml:"period_success" json:"period_success"`
	PeriodRetryRaw   string `yaml:"period_retry,omitempty" json:"period_retry,omitempty"`
	PeriodFailedRaw  string `yaml:"period_failed" json:"period_failed"`

	// ProvidersRaw preserves the on-disk `[]map[name]options` shape; the
	// taskmanager reads it directly when building a task. Providers is
	// not filled in from it.
	ProvidersRaw []map[string]RawProviderOptions `yaml:"providers" json:"providers"`
}

// RawProviderOptions is the shape of one element of a task's
// `providers` sequence entry (condition/threshold/provider_options sit
// alongside each other under the provider's name key).
type RawProviderOptions struct {
	Condition string         `yaml:"condition" json:"condition"`
	Threshold any            `yaml:"threshold" json:"threshold"`
	Options   map[string]any `yaml:"provider_options,omitempty" json:"provider_options,omitempty"`
}

// Observation is one recorded sample from a provider: the value it
// returned (or nil on error), whether the call succeeded, and when it
// happened. Tasks keep the last 5 per provider in a ring buffer.
type Observation struct {
	Timestamp time.Time `json:"timestamp"`
	Value     any       `json:"value"`
	OK        bool      `json:"ok"`
}

// TaskState is the task-level macro state of spec.md §4.2.
type TaskState string

const (
	StateNormal   TaskState = "NORMAL"
	StateRetrying TaskState = "RETRYING"
	StateFailed   TaskState = "FAILED"
)

// ProviderStatus is the per-provider slice of a TaskDict status snapshot.
type ProviderStatus struct {
	Name         string        `json:"name"`
	Condition    string        `json:"condition"`
	Threshold    any           `json:"threshold"`
	Observations []Observation `json:"observations"`
}

// TaskDict is the status snapshot returned by Task.ToDict and serialized
// as JSON by the Control API (spec.md §4.2, §6).
type TaskDict struct {
	Name             string           `json:"name"`
	Enabled          bool             `json:"enabled"`
	Period           string           `json:"period"`
	Retries          int              `json:"retries"`
	RemainingRetries int              `json:"remaining_retries"`
	Failed           bool             `json:"failed"`
	State            TaskState        `json:"state"`
	Providers        []ProviderStatus `json:"providers"`
	Filename         string           `json:"filename"`
}
