// Package action defines the pluggable notification/remediation
// contract (spec.md §4.3) fired when a task transitions between NORMAL
// and FAILED. Its Descriptor/Registry shape mirrors internal/provider
// deliberately, since original_source's Action and Provider base
// classes share the same configuration merge and validation logic.
package action

import (
	"context"

	"github.com/OpenTouch/night-watch/internal/nwcondition"
)

// Context carries everything an action needs to describe the task
// transition that triggered it: per-provider condition/threshold/value
// triples plus whether the task is now considered successful.
type Context struct {
	TaskName  string
	Success   bool
	Providers []ProviderOutcome
}

// ProviderOutcome is one provider's contribution to the triggering
// transition, used by actions (e.g. Email) that describe the result in
// their message body.
type ProviderOutcome struct {
	Name      string
	Condition nwcondition.Condition
	Threshold any
	Value     any
}

// Runner is the interface every concrete action implements.
type Runner interface {
	Run(ctx context.Context, tc Context) error

	// Type names the action as it appears in task configuration
	// (e.g. "Email", "Queue").
	Type() string
}

// Descriptor lists the parameters an action's options accept.
type Descriptor struct {
	Mandatory []string
	Optional  []string
}

// Factory builds a Runner from its merged configuration.
type Factory func(cfg map[string]any) (Runner, error)
