package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/kimhsiao/infovault/backend/internal/db"
	"github.com/kimhsiao/infovault/backend/internal/logging"
	"github.com/kimhsiao/infovault/backend/internal/media"
	"github.com/kimhsiao/infovault/backend/internal/models"
)

// thumbnailSize is the bounding box for generated item thumbnails.
const thumbnailSize = 320

// ItemHandler serves the /api/items routes.
type ItemHandler struct {
	repo     *db.Repository
	hub      Broadcaster
	thumbs   *media.Queue
	thumbDir string
}

// NewItemHandler creates a new ItemHandler. thumbs may be nil to
// disable thumbnail generation.
func NewItemHandler(repo *db.Repository, hub Broadcaster, thumbs *media.Queue, thumbDir string) *ItemHandler {
	return &ItemHandler{repo: repo, hub: hub, thumbs: thumbs, thumbDir: thumbDir}
}

// List handles GET /api/items?projectId=.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := projectScope(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid projectId")
		return
	}

	items, err := h.repo.ListItems(scope)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, item)
}

// Create handles POST /api/items. Image items with a local source path
// get a thumbnail generated in the background.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidItemType(input.Type) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid item type: %s", input.Type))
		return
	}

	item, err := h.repo.CreateItem(input)
	if err != nil {
		writeAppError(w, err)
		return
	}

	h.hub.Broadcast("item.created", map[string]any{"id": item.ID, "projectId": item.ProjectID})
	h.scheduleThumbnail(item)
	writeJSON(w, http.StatusCreated, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var update models.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if update.Type.Set && !update.Type.Null && !models.ValidItemType(update.Type.Value) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid item type: %s", update.Type.Value))
		return
	}

	item, err := h.repo.UpdateItem(id, update)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.hub.Broadcast("item.updated", map[string]any{"id": item.ID, "projectId": item.ProjectID})
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	deleted, err := h.repo.DeleteItem(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.hub.Broadcast("item.deleted", map[string]any{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

// scheduleThumbnail enqueues background thumbnail generation for image
// items sourced from a local file. Failure never affects the request
// that created the item.
func (h *ItemHandler) scheduleThumbnail(item *models.Item) {
	if h.thumbs == nil || item.Type != models.TypeImage || item.Source == "" {
		return
	}
	if !filepath.IsAbs(item.Source) {
		return
	}

	itemID := item.ID
	dst := filepath.Join(h.thumbDir, fmt.Sprintf("item_%d.jpg", itemID))
	_, err := h.thumbs.Enqueue(item.Source, dst, thumbnailSize, thumbnailSize, func(path string, err error) {
		if err != nil {
			return
		}
		if _, err := h.repo.UpdateItem(itemID, models.ItemUpdate{Thumbnail: models.Some(path)}); err != nil {
			logging.Error("failed to record thumbnail", err, logging.Fields{"item_id": itemID})
			return
		}
		h.hub.Broadcast("thumbnail.ready", map[string]any{"id": itemID, "thumbnail": path})
	})
	if err != nil {
		logging.Warn("thumbnail not scheduled", logging.Fields{"item_id": itemID, "reason": err.Error()})
	}
}
