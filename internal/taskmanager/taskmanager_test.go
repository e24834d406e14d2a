package taskmanager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenTouch/night-watch/internal/action"
	"github.com/OpenTouch/night-watch/internal/nwtypes"
	"github.com/OpenTouch/night-watch/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedChecker struct{ value any }

func (f fixedChecker) Type() string                              { return "Fixed" }
func (f fixedChecker) Process(ctx context.Context) (any, error) { return f.value, nil }

type noopRunner struct{ calls *int }

func (n noopRunner) Type() string { return "Noop" }
func (n noopRunner) Run(ctx context.Context, tc action.Context) error {
	*n.calls++
	return nil
}

func newTestRegistries() (*provider.Registry, *action.Registry, *int) {
	pr := provider.NewRegistry("")
	pr.Register("Fixed", provider.Descriptor{Optional: []string{"value"}}, func(cfg map[string]any) (provider.Checker, error) {
		return fixedChecker{value: cfg["value"]}, nil
	})
	calls := 0
	ar := action.NewRegistry("")
	ar.Register("Noop", action.Descriptor{}, func(cfg map[string]any) (action.Runner, error) {
		return noopRunner{calls: &calls}, nil
	})
	return pr, ar, &calls
}

func writeTaskFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestManagerStartLoadsAndSchedulesTasks(t *testing.T) {
	dir := t.TempDir()
	writeTaskFile(t, dir, "tasks.yml", `
check_one:
  period_success: "10s"
  period_failed: "30s"
  providers:
    - Fixed:
        condition: "="
        threshold: "ok"
        provider_options:
          value: "ok"
`)

	pr, ar, _ := newTestRegistries()
	m := New(dir, pr, ar)
	require.NoError(t, m.Start())
	defer m.Stop(true)

	assert.True(t, m.IsRunning())
	tasks := m.GetTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "check_one", tasks[0].Name())
}

func TestManagerAddUpdateDeleteTask(t *testing.T) {
	dir := t.TempDir()
	pr, ar, _ := newTestRegistries()
	m := New(dir, pr, ar)
	require.NoError(t, m.Start())
	defer m.Stop(true)

	added, err := m.AddTasks(map[string]nwtypes.TaskConfig{
		"new_check": {
			PeriodSuccessRaw: "10s",
			PeriodFailedRaw:  "30s",
			ProvidersRaw: []map[string]nwtypes.RawProviderOptions{
				{"Fixed": {Condition: "=", Threshold: "ok", Options: map[string]any{"value": "ok"}}},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, added, 1)

	_, err = m.GetTask("new_check")
	require.NoError(t, err)

	updated, err := m.UpdateTasks(map[string]nwtypes.TaskConfig{
		"new_check": {
			PeriodSuccessRaw: "20s",
			PeriodFailedRaw:  "30s",
			ProvidersRaw: []map[string]nwtypes.RawProviderOptions{
				{"Fixed": {Condition: "=", Threshold: "ok", Options: map[string]any{"value": "ok"}}},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, 20*time.Second, updated[0].Period())

	err = m.DeleteTasks([]string{"new_check"})
	require.NoError(t, err)
	_, err = m.GetTask("new_check")
	assert.Error(t, err)
}

func TestManagerPauseResumeTask(t *testing.T) {
	dir := t.TempDir()
	writeTaskFile(t, dir, "tasks.yml", `
pausable:
  period_success: "10s"
  period_failed: "30s"
  providers:
    - Fixed:
        condition: "="
        threshold: "ok"
        provider_options:
          value: "ok"
`)

	pr, ar, _ := newTestRegistries()
	m := New(dir, pr, ar)
	require.NoError(t, m.Start())
	defer m.Stop(true)

	require.NoError(t, m.PauseTask("pausable"))
	task, err := m.GetTask("pausable")
	require.NoError(t, err)
	assert.False(t, task.IsEnabled())

	require.NoError(t, m.ResumeTask("pausable"))
	assert.True(t, task.IsEnabled())
}

func TestManagerReload(t *testing.T) {
	dir := t.TempDir()
	writeTaskFile(t, dir, "tasks.yml", `
reload_check:
  period_success: "10s"
  period_failed: "30s"
  providers:
    - Fixed:
        condition: "="
        threshold: "ok"
        provider_options:
          value: "ok"
`)

	pr, ar, _ := newTestRegistries()
	m := New(dir, pr, ar)
	require.NoError(t, m.Start())
	defer m.Stop(true)

	require.NoError(t, m.Reload())
	assert.False(t, m.IsReloading())
	_, err := m.GetTask("reload_check")
	require.NoError(t, err)
}
