package handlers

import (
	"io"
	"net/http"

	"github.com/kimhsiao/infovault/backend/internal/export"
)

// maxImportBytes caps the accepted import document size.
const maxImportBytes = 64 << 20

// ExportHandler serves backup and restore.
type ExportHandler struct {
	svc *export.Service
	hub Broadcaster
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(svc *export.Service, hub Broadcaster) *ExportHandler {
	return &ExportHandler{svc: svc, hub: hub}
}

// Export handles GET /api/export?format=json|csv. JSON is the default
// and the only format Import accepts back.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="infovault-export.json"`)
		if err := h.svc.WriteJSON(w); err != nil {
			writeAppError(w, err)
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="infovault-export.csv"`)
		if err := h.svc.WriteCSV(w); err != nil {
			writeAppError(w, err)
		}
	default:
		writeError(w, http.StatusBadRequest, "format must be json or csv")
	}
}

// Import handles POST /api/import with an export document as the body.
func (h *ExportHandler) Import(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	data, err := export.ParseImportData(raw)
	if err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.svc.Import(data)
	if err != nil {
		writeAppError(w, err)
		return
	}

	h.hub.Broadcast("import.completed", map[string]any{
		"projects": result.ProjectsImported,
		"items":    result.ItemsImported,
		"skipped":  result.ItemsSkipped,
	})
	writeJSON(w, http.StatusOK, result)
}
