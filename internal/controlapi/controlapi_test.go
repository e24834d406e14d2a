package controlapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTouch/night-watch/internal/action"
	"github.com/OpenTouch/night-watch/internal/nwtypes"
	"github.com/OpenTouch/night-watch/internal/provider"
	"github.com/OpenTouch/night-watch/internal/taskmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedChecker struct{ value any }

func (f fixedChecker) Type() string                             { return "Fixed" }
func (f fixedChecker) Process(ctx context.Context) (any, error) { return f.value, nil }

func newManagerWithFixedProvider(t *testing.T) (*taskmanager.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.yml"), []byte(`
api_check:
  period_success: "10s"
  period_failed: "30s"
  providers:
    - Fixed:
        condition: "="
        threshold: "ok"
        provider_options:
          value: "ok"
`), 0o644))

	pr := provider.NewRegistry("")
	pr.Register("Fixed", provider.Descriptor{Optional: []string{"value"}}, func(cfg map[string]any) (provider.Checker, error) {
		return fixedChecker{value: cfg["value"]}, nil
	})
	ar := action.NewRegistry("")

	m := taskmanager.New(dir, pr, ar)
	require.NoError(t, m.Start())
	t.Cleanup(func() { m.Stop(true) })
	return m, dir
}

func TestHandleStatus(t *testing.T) {
	m, _ := newManagerWithFixedProvider(t)
	s := New("127.0.0.1:0", m)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/night-watch/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Running", body.Status)
}

func TestHandleListAndGetTask(t *testing.T) {
	m, _ := newManagerWithFixedProvider(t)
	s := New("127.0.0.1:0", m)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/tasks")
	require.NoError(t, err)
	defer resp.Body.Close()
	var dicts []nwtypes.TaskDict
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dicts))
	require.Len(t, dicts, 1)
	assert.Equal(t, "api_check", dicts[0].Name)

	resp2, err := http.Get(srv.URL + "/api/v1/task/api_check")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Get(srv.URL + "/api/v1/task/missing")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestHandlePerTaskPauseResume(t *testing.T) {
	m, _ := newManagerWithFixedProvider(t)
	s := New("127.0.0.1:0", m)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/task/api_check/pause", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var dict nwtypes.TaskDict
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dict))
	assert.False(t, dict.Enabled)

	req2, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/task/api_check/resume", nil)
	resp2, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	var dict2 nwtypes.TaskDict
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&dict2))
	assert.True(t, dict2.Enabled)
}

func TestHandleBulkOpUnknownTask(t *testing.T) {
	m, _ := newManagerWithFixedProvider(t)
	s := New("127.0.0.1:0", m)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	body := strings.NewReader(`[{"name":"does_not_exist"}]`)
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/tasks/pause", body)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandleAddTaskInvalidBody(t *testing.T) {
	m, _ := newManagerWithFixedProvider(t)
	s := New("127.0.0.1:0", m)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/task", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}
