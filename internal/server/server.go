// Package server exposes cached task-log retrieval over HTTP. Log pages
// are served from the route the metadata service uses for task resources;
// progress events stream to WebSocket subscribers keyed by stream key.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"flowtail/internal/action"
	"flowtail/internal/logfile"
	"flowtail/internal/metadata"
	"flowtail/internal/taskref"
	"flowtail/internal/version"
)

// Server handles flowtail API requests.
type Server struct {
	dispatcher *action.Dispatcher
	hub        *Hub
	meta       metadata.Client
	blobs      logfile.BlobLoader
	log        *slog.Logger
}

// New creates a server. hub must be the publisher wired into dispatcher so
// WebSocket subscribers observe execution events.
func New(dispatcher *action.Dispatcher, hub *Hub, meta metadata.Client, blobs logfile.BlobLoader, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		dispatcher: dispatcher,
		hub:        hub,
		meta:       meta,
		blobs:      blobs,
		log:        log,
	}
}

// ServeHTTP routes API requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")

	switch {
	case path == "/version" && r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, version.Version)
	case path == "/ws/logs" && r.Method == http.MethodGet:
		s.handleStream(w, r)
	case strings.HasPrefix(path, "/flows/") && r.Method == http.MethodGet:
		s.handleLogs(w, r, path)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleLogs serves
// GET /flows/{flow}/runs/{run}/steps/{step}/tasks/{task}/logs/{stdout|stderr}.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request, path string) {
	req, err := parseLogRequest(path, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	act := logfile.NewGetLogFile(*req, s.meta, s.blobs, s.log)

	// Tell the caller which stream key to subscribe to for progress.
	spec, err := act.FormatRequest()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("X-Stream-Key", spec.StreamKey)

	resp, err := s.dispatcher.Dispatch(r.Context(), act)
	if err != nil {
		s.log.Warn("log request failed", "path", path, "error", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(resp)
}

func parseLogRequest(path string, r *http.Request) (*logfile.Request, error) {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	// flows/{flow}/runs/{run}/steps/{step}/tasks/{task}/logs/{stream}
	if len(parts) != 10 || parts[0] != "flows" || parts[2] != "runs" ||
		parts[4] != "steps" || parts[6] != "tasks" || parts[8] != "logs" {
		return nil, errors.New("malformed log path")
	}

	var logtype string
	switch parts[9] {
	case "stdout":
		logtype = logfile.LogTypeStdout
	case "stderr":
		logtype = logfile.LogTypeStderr
	default:
		return nil, fmt.Errorf("unknown log stream %q", parts[9])
	}

	q := r.URL.Query()
	attempt, err := intParam(q.Get("attempt_id"), 0)
	if err != nil {
		return nil, fmt.Errorf("attempt_id: %w", err)
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		return nil, fmt.Errorf("limit: %w", err)
	}
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}

	return &logfile.Request{
		Task: taskref.TaskRef{
			FlowID:    parts[1],
			RunNumber: taskref.ID(parts[3]),
			StepName:  parts[5],
			TaskID:    taskref.ID(parts[7]),
			AttemptID: attempt,
		},
		LogType:    logtype,
		Limit:      limit,
		Page:       page,
		Reverse:    boolParam(q.Get("reverse_order")),
		Raw:        boolParam(q.Get("raw_log")),
		Invalidate: boolParam(q.Get("invalidate_cache")),
	}, nil
}

func intParam(value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", value)
	}
	return n, nil
}

func boolParam(value string) bool {
	return value == "true" || value == "1"
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, taskref.ErrMissingField):
		status = http.StatusBadRequest
	case errors.Is(err, metadata.ErrTaskUnavailable):
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
