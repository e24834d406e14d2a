package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct{ value any }

func (f fakeChecker) Process(ctx context.Context) (any, error) { return f.value, nil }
func (f fakeChecker) Type() string                             { return "Fake" }

func TestRegistryValidatesMandatoryParameters(t *testing.T) {
	r := NewRegistry("")
	r.Register("Fake", Descriptor{Mandatory: []string{"required"}}, func(cfg map[string]any) (Checker, error) {
		return fakeChecker{value: cfg["required"]}, nil
	})

	_, err := r.New("Fake", map[string]any{})
	assert.Error(t, err)

	c, err := r.New("Fake", map[string]any{"required": 42})
	require.NoError(t, err)
	v, err := c.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry("")
	_, err := r.New("DoesNotExist", nil)
	assert.Error(t, err)
}

func TestRegistryTaskOptionsOverrideDefaults(t *testing.T) {
	r := NewRegistry("")
	var seen map[string]any
	r.Register("Fake", Descriptor{Optional: []string{"x"}}, func(cfg map[string]any) (Checker, error) {
		seen = cfg
		return fakeChecker{}, nil
	})

	_, err := r.New("Fake", map[string]any{"x": "task-value"})
	require.NoError(t, err)
	assert.Equal(t, "task-value", seen["x"])
}

func TestMergeTaskOptionsOverrideDefaults(t *testing.T) {
	merged := Merge(map[string]any{"a": 1, "b": 2}, map[string]any{"b": 3})
	assert.Equal(t, map[string]any{"a": 1, "b": 3}, merged)
}
