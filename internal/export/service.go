// Package export implements backup and restore of the catalog as JSON,
// plus a CSV rendering of the item list. The JSON document is the
// canonical interchange format between installations.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	apperrors "github.com/kimhsiao/infovault/backend/internal/errors"
	"github.com/kimhsiao/infovault/backend/internal/logging"
	"github.com/kimhsiao/infovault/backend/internal/models"
)

// FormatVersion identifies the export document layout.
const FormatVersion = "1.0.0"

// ExportData is the canonical interchange document.
type ExportData struct {
	Projects   []*models.Project `json:"projects"`
	Items      []*models.Item    `json:"items"`
	ExportDate time.Time         `json:"exportDate"`
	Version    string            `json:"version"`
}

// ImportResult summarizes a completed import.
type ImportResult struct {
	ProjectsImported int `json:"projectsImported"`
	ItemsImported    int `json:"itemsImported"`
	ItemsSkipped     int `json:"itemsSkipped"`
}

// Service performs export and import against a Store.
type Service struct {
	store Store
}

// NewService creates a new export Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Snapshot collects the full catalog into an ExportData document.
func (s *Service) Snapshot() (*ExportData, error) {
	projects, err := s.store.ListProjects()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to read projects", err)
	}
	items, err := s.store.ListItems(nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to read items", err)
	}

	return &ExportData{
		Projects:   projects,
		Items:      items,
		ExportDate: time.Now().UTC(),
		Version:    FormatVersion,
	}, nil
}

// WriteJSON writes the catalog as indented JSON.
func (s *Service) WriteJSON(w io.Writer) error {
	data, err := s.Snapshot()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return apperrors.Wrap(apperrors.ErrExportFailed, "failed to encode export", err)
	}
	return nil
}

// csvHeader matches the column layout the desktop client always used.
var csvHeader = []string{
	"ID", "Name", "Description", "Type", "Source", "Tags", "Project", "Created At", "Updated At",
}

// WriteCSV writes the item list as CSV, one row per item with the
// owning project resolved to its name.
func (s *Service) WriteCSV(w io.Writer) error {
	data, err := s.Snapshot()
	if err != nil {
		return err
	}

	projectNames := make(map[int64]string, len(data.Projects))
	for _, p := range data.Projects {
		projectNames[p.ID] = p.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return apperrors.Wrap(apperrors.ErrExportFailed, "failed to write CSV", err)
	}
	for _, it := range data.Items {
		row := []string{
			fmt.Sprintf("%d", it.ID),
			it.Name,
			it.Description,
			it.Type,
			it.Source,
			joinTags(it.Tags),
			projectNames[it.ProjectID],
			it.CreatedAt.Format(time.RFC3339),
			it.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return apperrors.Wrap(apperrors.ErrExportFailed, "failed to write CSV", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperrors.Wrap(apperrors.ErrExportFailed, "failed to write CSV", err)
	}
	return nil
}

func joinTags(tags models.TagList) string {
	out := ""
	for i, tag := range tags {
		if i > 0 {
			out += ", "
		}
		out += tag
	}
	return out
}

// ParseImportData validates and decodes an export document.
func ParseImportData(raw []byte) (*ExportData, error) {
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "failed to parse import data", err)
	}
	if data.Projects == nil || data.Items == nil {
		return nil, apperrors.New(apperrors.ErrValidation, "invalid import data format")
	}
	return &data, nil
}

// Import restores an export document into the store. Imported projects
// are created as renamed "(Imported)" copies so existing data is never
// overwritten; item project references are remapped to the new ids.
// Items referencing a project id missing from the document are skipped.
//
// Import is not transactional: a failure partway through returns an
// error but leaves the copies created so far in place. They are plain
// renamed additions, so nothing pre-existing is ever damaged and the
// partial import can be deleted like any other data.
func (s *Service) Import(data *ExportData) (*ImportResult, error) {
	result := &ImportResult{}
	projectIDMap := make(map[int64]int64, len(data.Projects))

	for _, p := range data.Projects {
		created, err := s.store.CreateProject(models.ProjectInput{
			Name:        p.Name + " (Imported)",
			Description: p.Description,
		})
		if err != nil {
			return result, apperrors.Wrap(apperrors.ErrImportFailed,
				fmt.Sprintf("failed to import project %q", p.Name), err)
		}
		projectIDMap[p.ID] = created.ID
		result.ProjectsImported++
	}

	for _, it := range data.Items {
		newProjectID, ok := projectIDMap[it.ProjectID]
		if !ok {
			result.ItemsSkipped++
			continue
		}
		if _, err := s.store.CreateItem(models.ItemInput{
			ProjectID:   newProjectID,
			Name:        it.Name,
			Description: it.Description,
			Type:        it.Type,
			Source:      it.Source,
			Tags:        it.Tags,
			Metadata:    it.Metadata,
			Thumbnail:   it.Thumbnail,
		}); err != nil {
			return result, apperrors.Wrap(apperrors.ErrImportFailed,
				fmt.Sprintf("failed to import item %q", it.Name), err)
		}
		result.ItemsImported++
	}

	logging.Info("import completed", logging.Fields{
		"projects": result.ProjectsImported,
		"items":    result.ItemsImported,
		"skipped":  result.ItemsSkipped,
	})
	return result, nil
}
