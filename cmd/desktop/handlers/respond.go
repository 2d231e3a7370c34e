// Package handlers provides the REST API over the catalog store.
// Responses are JSON; errors use the body shape {"error": "..."}.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "github.com/kimhsiao/infovault/backend/internal/errors"
	"github.com/kimhsiao/infovault/backend/internal/logging"
)

// Broadcaster pushes change events to connected clients. The desktop
// WebSocket hub implements it; tests use a recording fake.
type Broadcaster interface {
	Broadcast(eventType string, data map[string]any)
}

// NopBroadcaster discards all events.
type NopBroadcaster struct{}

// Broadcast implements Broadcaster.
func (NopBroadcaster) Broadcast(string, map[string]any) {}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", err, nil)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps application error codes to HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if apperrors.Is(err, apperrors.ErrValidation) {
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logging.Error("request failed", err, nil)
	}
	writeError(w, status, err.Error())
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// projectScope parses the optional ?projectId= query parameter.
func projectScope(r *http.Request) (*int64, bool) {
	raw := r.URL.Query().Get("projectId")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}
