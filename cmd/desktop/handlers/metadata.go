package handlers

import (
	"encoding/json"
	"html"
	"net/http"

	"github.com/kimhsiao/infovault/backend/internal/db"
	"github.com/kimhsiao/infovault/backend/internal/models"
	"github.com/kimhsiao/infovault/backend/internal/parser"
	"github.com/kimhsiao/infovault/backend/internal/render"
)

// MetadataHandler serves URL metadata suggestions and item previews.
type MetadataHandler struct {
	repo *db.Repository
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler(repo *db.Repository) *MetadataHandler {
	return &MetadataHandler{repo: repo}
}

type metadataRequest struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

type typeSuggestion struct {
	Type string `json:"type"`
}

// Extract handles POST /api/metadata. A url in the body fetches the
// page and suggests name, description and tags for the add-item form;
// a local path instead sniffs the file and suggests the item type.
func (h *MetadataHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req metadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.URL != "" && req.Path != "":
		writeError(w, http.StatusBadRequest, "url and path are mutually exclusive")
	case req.URL != "":
		meta, err := parser.FetchPageMetadata(r.Context(), req.URL)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, meta)
	case req.Path != "":
		writeJSON(w, http.StatusOK, typeSuggestion{Type: parser.SuggestItemType(req.Path)})
	default:
		writeError(w, http.StatusBadRequest, "url or path is required")
	}
}

// Preview handles GET /api/items/{id}/preview. Note items render their
// description as markdown; code items render it as an escaped block.
func (h *MetadataHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.repo.GetItem(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	var rendered []byte
	switch item.Type {
	case models.TypeNote:
		rendered, err = render.MarkdownToHTML([]byte(item.Description))
		if err != nil {
			writeAppError(w, err)
			return
		}
	case models.TypeCode:
		rendered = []byte("<pre><code>" + html.EscapeString(item.Description) + "</code></pre>")
	default:
		writeError(w, http.StatusBadRequest, "preview is only available for note and code items")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(rendered)
}
