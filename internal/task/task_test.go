package task

import (
	"context"
	"testing"
	"time"

	"github.com/OpenTouch/night-watch/internal/action"
	"github.com/OpenTouch/night-watch/internal/nwcondition"
	"github.com/OpenTouch/night-watch/internal/nwtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedChecker struct {
	values []any
	i      int
}

func (s *scriptedChecker) Type() string { return "Scripted" }
func (s *scriptedChecker) Process(ctx context.Context) (any, error) {
	v := s.values[s.i]
	if s.i < len(s.values)-1 {
		s.i++
	}
	return v, nil
}

type countingAction struct {
	calls int
	last  action.Context
}

func (c *countingAction) Type() string { return "Counting" }
func (c *countingAction) Run(ctx context.Context, tc action.Context) error {
	c.calls++
	c.last = tc
	return nil
}

type recordingController struct {
	updates []time.Duration
}

func (r *recordingController) UpdateTaskPeriod(name string, d time.Duration) {
	r.updates = append(r.updates, d)
}

func newTestTask(retries int, values []any) (*Task, *countingAction, *countingAction, *recordingController) {
	ctrl := &recordingController{}
	tk := New(Config{
		Name: "t1", PeriodSuccess: 10 * time.Second, PeriodRetry: 2 * time.Second,
		PeriodFailed: 30 * time.Second, Retries: retries,
	}, ctrl)
	tk.AddProvider("Scripted", nwcondition.Equal, "ok", &scriptedChecker{values: values})
	onFailed := &countingAction{}
	onSuccess := &countingAction{}
	tk.AddFailedAction("Counting", onFailed)
	tk.AddSuccessAction("Counting", onSuccess)
	return tk, onFailed, onSuccess, ctrl
}

func TestTaskStaysNormalWhenConform(t *testing.T) {
	tk, onFailed, onSuccess, _ := newTestTask(0, []any{"ok"})
	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateNormal, tk.State())
	assert.True(t, tk.IsSuccess())
	assert.Zero(t, onFailed.calls)
	assert.Zero(t, onSuccess.calls)
}

func TestTaskFailsImmediatelyWithoutRetries(t *testing.T) {
	tk, onFailed, _, ctrl := newTestTask(0, []any{"bad"})
	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateFailed, tk.State())
	assert.False(t, tk.IsSuccess())
	assert.Equal(t, 1, onFailed.calls)
	require.Len(t, ctrl.updates, 1)
	assert.Equal(t, 30*time.Second, ctrl.updates[0])
}

func TestTaskRetriesBeforeFailing(t *testing.T) {
	tk, onFailed, _, ctrl := newTestTask(2, []any{"bad", "bad", "bad"})

	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateRetrying, tk.State())
	assert.Zero(t, onFailed.calls)
	require.Len(t, ctrl.updates, 1)
	assert.Equal(t, 2*time.Second, ctrl.updates[0])

	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateRetrying, tk.State())
	assert.Zero(t, onFailed.calls)

	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateFailed, tk.State())
	assert.Equal(t, 1, onFailed.calls)
}

func TestTaskDoesNotRefireActionsWhileStillFailed(t *testing.T) {
	tk, onFailed, _, _ := newTestTask(0, []any{"bad"})
	tk.Run(context.Background())
	tk.Run(context.Background())
	tk.Run(context.Background())
	assert.Equal(t, 1, onFailed.calls)
}

func TestTaskRecoversAndFiresSuccessAction(t *testing.T) {
	tk, onFailed, onSuccess, ctrl := newTestTask(0, []any{"bad", "ok"})
	tk.Run(context.Background())
	assert.Equal(t, 1, onFailed.calls)

	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateNormal, tk.State())
	assert.Equal(t, 1, onSuccess.calls)
	assert.Equal(t, 10*time.Second, ctrl.updates[len(ctrl.updates)-1])
	assert.True(t, onSuccess.last.Success)
}

func TestTaskRecoversFromFailedWithRetriesConfigured(t *testing.T) {
	tk, onFailed, onSuccess, _ := newTestTask(2, []any{"bad", "bad", "bad", "ok"})

	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateRetrying, tk.State())

	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateRetrying, tk.State())

	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateFailed, tk.State())
	assert.Equal(t, 1, onFailed.calls)
	assert.Zero(t, onSuccess.calls)

	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateNormal, tk.State())
	assert.True(t, tk.IsSuccess())
	assert.Equal(t, 1, onSuccess.calls)
	assert.True(t, onSuccess.last.Success)
	assert.Equal(t, 2, tk.remainingRetries, "remainingRetries must be restored to retries, not left at 0")
}

func TestTaskRecoveryDuringRetryResetsWithoutActions(t *testing.T) {
	tk, onFailed, onSuccess, _ := newTestTask(2, []any{"bad", "ok"})
	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateRetrying, tk.State())

	tk.Run(context.Background())
	assert.Equal(t, nwtypes.StateNormal, tk.State())
	assert.Zero(t, onFailed.calls)
	assert.Zero(t, onSuccess.calls)
}

func TestToDictReflectsState(t *testing.T) {
	tk, _, _, _ := newTestTask(0, []any{"bad"})
	tk.Run(context.Background())
	d := tk.ToDict()
	assert.Equal(t, "t1", d.Name)
	assert.Equal(t, nwtypes.StateFailed, d.State)
	assert.True(t, d.Failed)
	require.Len(t, d.Providers, 1)
	require.Len(t, d.Providers[0].Observations, 1)
}
