package controlapi

import (
	"encoding/json"
	"net/http"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
	"github.com/OpenTouch/night-watch/internal/nwtypes"
	"github.com/gorilla/mux"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: s.manager.Status()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Stop(true); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: s.manager.Status()})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Start(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: s.manager.Status()})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Reload(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "reloaded"})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.manager.GetTasks()
	dicts := make([]nwtypes.TaskDict, 0, len(tasks))
	for _, t := range tasks {
		dicts = append(dicts, t.ToDict())
	}
	writeJSON(w, http.StatusOK, dicts)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	t, err := s.manager.GetTask(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.ToDict())
}

type taskNameRef struct {
	Name string `json:"name"`
}

// handleBulkOp implements PUT /api/v1/tasks/{pause|resume|reload} on a
// JSON array body of {name} objects (spec.md §6).
func (s *Server) handleBulkOp(w http.ResponseWriter, r *http.Request) {
	op := mux.Vars(r)["op"]
	var refs []taskNameRef
	if err := json.NewDecoder(r.Body).Decode(&refs); err != nil {
		writeError(w, nwerrors.New(nwerrors.KindTaskConfigInvalid, "invalid request body: %v", err))
		return
	}

	for _, ref := range refs {
		if err := s.dispatchTaskOp(op, ref.Name); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success"})
}

// handlePerTaskOp implements PUT /api/v1/task/{name}/{pause|resume|reload}.
func (s *Server) handlePerTaskOp(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.dispatchTaskOp(vars["op"], vars["name"]); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.manager.GetTask(vars["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.ToDict())
}

func (s *Server) dispatchTaskOp(op, name string) error {
	switch op {
	case "pause":
		return s.manager.PauseTask(name)
	case "resume":
		return s.manager.ResumeTask(name)
	case "reload":
		return s.manager.ReloadTask(name)
	default:
		return nwerrors.New(nwerrors.KindTaskConfigInvalid, "unknown task operation %q", op)
	}
}

type addTaskRequest struct {
	Filename string                        `json:"filename"`
	Tasks    map[string]nwtypes.TaskConfig `json:"tasks"`
}

// handleAddTask implements POST /api/v1/task, body {filename, tasks}.
func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nwerrors.New(nwerrors.KindTaskConfigInvalid, "invalid request body: %v", err))
		return
	}
	if len(req.Tasks) == 0 {
		writeError(w, nwerrors.New(nwerrors.KindTaskConfigInvalid, "no tasks provided"))
		return
	}

	tasks, err := s.manager.AddTasks(req.Tasks, req.Filename)
	if err != nil {
		writeError(w, err)
		return
	}

	dicts := make([]nwtypes.TaskDict, 0, len(tasks))
	for _, t := range tasks {
		dicts = append(dicts, t.ToDict())
	}
	writeJSON(w, http.StatusOK, dicts)
}
