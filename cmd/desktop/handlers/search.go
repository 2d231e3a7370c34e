package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/kimhsiao/infovault/backend/internal/db"
	"github.com/kimhsiao/infovault/backend/internal/models"
)

// SearchHandler serves the query routes: free-text search plus the
// type and tag filters.
type SearchHandler struct {
	repo *db.Repository
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(repo *db.Repository) *SearchHandler {
	return &SearchHandler{repo: repo}
}

// Search handles GET /api/search?q=&projectId=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	scope, ok := projectScope(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid projectId")
		return
	}

	items, err := h.repo.SearchItems(query, scope)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ByType handles GET /api/items/type/{type}?projectId=.
func (h *SearchHandler) ByType(w http.ResponseWriter, r *http.Request) {
	itemType := r.PathValue("type")
	if !models.ValidItemType(itemType) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid item type: %s", itemType))
		return
	}

	scope, ok := projectScope(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid projectId")
		return
	}

	items, err := h.repo.ItemsByType(itemType, scope)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ByTags handles GET /api/items/tags/{tags}?projectId=. Tags are
// comma-separated; an item matches when it carries any of them.
func (h *SearchHandler) ByTags(w http.ResponseWriter, r *http.Request) {
	tags := strings.Split(r.PathValue("tags"), ",")

	scope, ok := projectScope(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid projectId")
		return
	}

	items, err := h.repo.ItemsByTags(tags, scope)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
