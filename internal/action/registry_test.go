package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct{ ran *Context }

func (f *fakeRunner) Run(ctx context.Context, tc Context) error {
	*f.ran = tc
	return nil
}
func (f *fakeRunner) Type() string { return "Fake" }

func TestRegistryValidatesMandatoryParameters(t *testing.T) {
	r := NewRegistry("")
	r.Register("Fake", Descriptor{Mandatory: []string{"required"}}, func(cfg map[string]any) (Runner, error) {
		return &fakeRunner{ran: new(Context)}, nil
	})

	_, err := r.New("Fake", map[string]any{})
	assert.Error(t, err)

	runner, err := r.New("Fake", map[string]any{"required": true})
	require.NoError(t, err)
	assert.NoError(t, runner.Run(context.Background(), Context{TaskName: "t"}))
}

func TestStringListVariants(t *testing.T) {
	assert.Equal(t, []string{"a@b.com"}, stringList("a@b.com"))
	assert.Equal(t, []string{"a@b.com", "c@d.com"}, stringList([]any{"a@b.com", "c@d.com"}))
	assert.Nil(t, stringList(nil))
}
