// Package controlapi is the thin HTTP adapter over TaskManager (spec.md
// §4.7, §6): parse URL/body, invoke the manager, map errors to status
// codes, serialise task status dictionaries as JSON. Grounded on
// original_source/src/nw/webserver/api/Api.py for the route table and
// on cuemby-warren/pkg/api/health.go for the Go-side http.Server +
// ServeMux idiom, generalised here to gorilla/mux for path variables.
package controlapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
	"github.com/OpenTouch/night-watch/internal/nwlog"
	"github.com/OpenTouch/night-watch/internal/nwmetrics"
	"github.com/OpenTouch/night-watch/internal/taskmanager"
	"github.com/gorilla/mux"
)

// Server is the Control API's HTTP server.
type Server struct {
	manager *taskmanager.Manager
	hub     *Hub
	router  *mux.Router
	http    *http.Server
}

// New builds a Server listening on addr, wiring every route of
// spec.md §6 plus the additive live-status stream and /metrics.
func New(addr string, manager *taskmanager.Manager) *Server {
	s := &Server{
		manager: manager,
		hub:     NewHub(),
	}
	manager.SetUpdateHook(s.hub.Broadcast)

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/night-watch/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/night-watch/pause", s.handlePause).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/night-watch/resume", s.handleResume).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/night-watch/reload", s.handleReload).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/night-watch/stream", s.hub.ServeWS).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/tasks", s.handleListTasks).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/tasks/{op}", s.handleBulkOp).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/task/{name}", s.handleGetTask).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/task", s.handleAddTask).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/task/{name}/{op}", s.handlePerTaskOp).Methods(http.MethodPut)
	r.Handle("/metrics", nwmetrics.Handler())
	s.router = r

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe starts the HTTP server and the websocket hub's
// broadcast loop. Blocks until the server stops.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go s.hub.Run(ctx)
	nwlog.WithComponent("controlapi").Info().Str("addr", s.http.Addr).Msg("control API listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusCodeFor maps the spec.md §7 error taxonomy to an HTTP status.
func statusCodeFor(err error) int {
	kind, ok := nwerrors.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case nwerrors.KindTaskNotFound:
		return http.StatusNotFound
	case nwerrors.KindTaskConfigInvalid, nwerrors.KindProviderConfigInvalid, nwerrors.KindActionConfigInvalid:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusCodeFor(err), errorResponse{Error: err.Error()})
}
