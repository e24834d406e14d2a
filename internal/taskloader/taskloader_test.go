package taskloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenTouch/night-watch/internal/nwtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadFileAndTask(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "web.yml", "web_check:\n  period_success: \"10s\"\n  period_failed: \"30s\"\n  retries: 2\n")

	l := New(dir)
	tasks, err := l.LoadFile("web.yml")
	require.NoError(t, err)
	require.Contains(t, tasks, "web_check")
	assert.Equal(t, 2, tasks["web_check"].Retries)

	cfg, err := l.LoadTaskFromFile("web.yml", "web_check")
	require.NoError(t, err)
	assert.Equal(t, "10s", cfg.PeriodSuccessRaw)

	_, err = l.LoadTaskFromFile("web.yml", "missing")
	assert.Error(t, err)
}

func TestLoadAllAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.yml", "task_a:\n  period_success: \"10s\"\n  period_failed: \"30s\"\n")
	writeFixture(t, dir, "b.yml", "task_b:\n  period_success: \"5s\"\n  period_failed: \"20s\"\n")

	l := New(dir)
	all, err := l.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestAddTasksInFilesCreatesFile(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	err := l.AddTasksInFiles([]NamedTask{
		{Name: "new_task", Filename: "new.yml", Config: nwtypes.TaskConfig{PeriodSuccessRaw: "10s", PeriodFailedRaw: "30s"}},
	})
	require.NoError(t, err)

	tasks, err := l.LoadFile("new.yml")
	require.NoError(t, err)
	assert.Contains(t, tasks, "new_task")
}

func TestRemoveTasksFromFilesDeletesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "solo.yml", "only_task:\n  period_success: \"10s\"\n  period_failed: \"30s\"\n")
	l := New(dir)

	err := l.RemoveTasksFromFiles([]NamedTask{{Name: "only_task", Filename: "solo.yml"}})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "solo.yml"))
	assert.True(t, os.IsNotExist(statErr))
}
