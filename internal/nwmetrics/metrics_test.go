package nwmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStateValue(t *testing.T) {
	assert.Equal(t, float64(0), StateValue("NORMAL"))
	assert.Equal(t, float64(1), StateValue("RETRYING"))
	assert.Equal(t, float64(2), StateValue("FAILED"))
	assert.Equal(t, float64(0), StateValue("unknown"))
}

func TestTaskRunsCounterIncrements(t *testing.T) {
	TaskRuns.WithLabelValues("probe_one").Add(0)
	before := testutil.ToFloat64(TaskRuns.WithLabelValues("probe_one"))

	TaskRuns.WithLabelValues("probe_one").Inc()

	after := testutil.ToFloat64(TaskRuns.WithLabelValues("probe_one"))
	assert.Equal(t, before+1, after)
}

func TestHandlerIsServeable(t *testing.T) {
	assert.NotNil(t, Handler())
}
