package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kimhsiao/infovault/backend/internal/db"
	"github.com/kimhsiao/infovault/backend/internal/models"
)

// ProjectHandler serves the /api/projects routes.
type ProjectHandler struct {
	repo *db.Repository
	hub  Broadcaster
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(repo *db.Repository, hub Broadcaster) *ProjectHandler {
	return &ProjectHandler{repo: repo, hub: hub}
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.repo.ListProjects()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// Get handles GET /api/projects/{id}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project, err := h.repo.GetProject(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.ProjectInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	project, err := h.repo.CreateProject(input)
	if err != nil {
		writeAppError(w, err)
		return
	}

	h.hub.Broadcast("project.created", map[string]any{"id": project.ID, "name": project.Name})
	writeJSON(w, http.StatusCreated, project)
}

// Update handles PUT /api/projects/{id}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var update models.ProjectUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	project, err := h.repo.UpdateProject(id, update)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	h.hub.Broadcast("project.updated", map[string]any{"id": project.ID})
	writeJSON(w, http.StatusOK, project)
}

// Delete handles DELETE /api/projects/{id}. Items in the project are
// deleted along with it.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	deleted, err := h.repo.DeleteProject(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	h.hub.Broadcast("project.deleted", map[string]any{"id": id})
	w.WriteHeader(http.StatusNoContent)
}
