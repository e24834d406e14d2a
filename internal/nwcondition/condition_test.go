package nwcondition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSynonyms(t *testing.T) {
	cases := map[string]Condition{
		"=":         Equal,
		"equals":    Equal,
		"!=":        NotEqual,
		"different": NotEqual,
		">":         GreaterThan,
		"greater":   GreaterThan,
		"<":         LessThan,
		"lower":     LessThan,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := Parse(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	_, err := Parse("~")
	assert.Error(t, err)
}

func TestEvaluateNumeric(t *testing.T) {
	ok, err := Evaluate(GreaterThan, 95, 90)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(LessThan, 3.5, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(Equal, 200, 200.0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateString(t *testing.T) {
	ok, err := Evaluate(Equal, "ok", "ok")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(NotEqual, "ok", "degraded")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(GreaterThan, "b", "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateUnorderableTypes(t *testing.T) {
	_, err := Evaluate(GreaterThan, "a", 1)
	assert.Error(t, err)
}
