// Package db provides CRUD repository operations for projects and items.
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/kimhsiao/infovault/backend/internal/errors"
	"github.com/kimhsiao/infovault/backend/internal/models"
)

// Repository provides CRUD and query operations over the store.
// Missing rows are signaled by nil results (or false for deletes),
// never by errors; callers decide how to surface a 404.
type Repository struct {
	db *sql.DB

	// Prepared statement cache for frequently used queries.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// prepare gets or creates a prepared statement from the cache.
func (r *Repository) prepare(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate.
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// nullIfEmpty stores optional text fields as NULL when empty.
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const projectColumns = "id, name, description, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	var description sql.NullString
	var createdAt, updatedAt int64
	if err := row.Scan(&p.ID, &p.Name, &description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Description = description.String
	p.CreatedAt = millisToTime(createdAt)
	p.UpdatedAt = millisToTime(updatedAt)
	return &p, nil
}

const itemColumns = "id, project_id, name, description, type, source, tags, metadata, thumbnail, created_at, updated_at"

func scanItem(row rowScanner) (*models.Item, error) {
	var it models.Item
	var description, source, thumbnail sql.NullString
	var createdAt, updatedAt int64
	if err := row.Scan(
		&it.ID, &it.ProjectID, &it.Name, &description, &it.Type, &source,
		&it.Tags, &it.Metadata, &thumbnail, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	it.Description = description.String
	it.Source = source.String
	it.Thumbnail = thumbnail.String
	it.CreatedAt = millisToTime(createdAt)
	it.UpdatedAt = millisToTime(updatedAt)
	return &it, nil
}

// =====================================================
// Project Operations
// =====================================================

// ListProjects returns all projects, most recently modified first.
func (r *Repository) ListProjects() ([]*models.Project, error) {
	query := "SELECT " + projectColumns + " FROM projects ORDER BY updated_at DESC, id DESC"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list projects", err)
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list projects", err)
	}
	return projects, nil
}

// GetProject retrieves a project by id. Returns (nil, nil) when absent.
func (r *Repository) GetProject(id int64) (*models.Project, error) {
	stmt, err := r.prepare("SELECT " + projectColumns + " FROM projects WHERE id = ?")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to get project", err)
	}

	p, err := scanProject(stmt.QueryRow(id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to get project", err)
	}
	return p, nil
}

// CreateProject inserts a new project and returns the stored entity
// with its generated id and timestamps.
func (r *Repository) CreateProject(input models.ProjectInput) (*models.Project, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "project name is required")
	}

	now := nowMillis()
	res, err := r.db.Exec(
		`INSERT INTO projects (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		input.Name, nullIfEmpty(input.Description), now, now,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to create project", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to create project", err)
	}
	return r.GetProject(id)
}

// UpdateProject applies a partial update. Only fields present in the
// update are modified; updated_at refreshes whenever at least one
// recognized field is present. Returns (nil, nil) when absent.
func (r *Repository) UpdateProject(id int64, update models.ProjectUpdate) (*models.Project, error) {
	if update.Empty() {
		// No recognized fields: a no-op read, updated_at untouched.
		return r.GetProject(id)
	}

	var setClause []string
	var args []interface{}

	if update.Name.Set {
		if update.Name.Null || strings.TrimSpace(update.Name.Value) == "" {
			return nil, apperrors.New(apperrors.ErrValidation, "project name cannot be empty")
		}
		setClause = append(setClause, "name = ?")
		args = append(args, update.Name.Value)
	}
	if update.Description.Set {
		setClause = append(setClause, "description = ?")
		if update.Description.Null {
			args = append(args, nil)
		} else {
			args = append(args, nullIfEmpty(update.Description.Value))
		}
	}

	setClause = append(setClause, "updated_at = ?")
	args = append(args, nowMillis(), id)

	res, err := r.db.Exec(
		"UPDATE projects SET "+strings.Join(setClause, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to update project", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, nil
	}
	return r.GetProject(id)
}

// DeleteProject removes a project together with all its items, as one
// transaction. Returns false when the id does not exist; that is not
// an error.
func (r *Repository) DeleteProject(id int64) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrDatabase, "failed to delete project", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM items WHERE project_id = ?", id); err != nil {
		return false, apperrors.Wrap(apperrors.ErrDatabase, "failed to delete project items", err)
	}

	res, err := tx.Exec("DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrDatabase, "failed to delete project", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrDatabase, "failed to delete project", err)
	}

	if err := tx.Commit(); err != nil {
		return false, apperrors.Wrap(apperrors.ErrDatabase, "failed to delete project", err)
	}
	return affected > 0, nil
}

// projectExists checks a foreign key target before a write.
func (r *Repository) projectExists(id int64) (bool, error) {
	stmt, err := r.prepare("SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)")
	if err != nil {
		return false, err
	}
	var exists bool
	if err := stmt.QueryRow(id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// =====================================================
// Item Operations
// =====================================================

// GetItem retrieves an item by id. Returns (nil, nil) when absent.
func (r *Repository) GetItem(id int64) (*models.Item, error) {
	stmt, err := r.prepare("SELECT " + itemColumns + " FROM items WHERE id = ?")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to get item", err)
	}

	it, err := scanItem(stmt.QueryRow(id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to get item", err)
	}
	return it, nil
}

// CreateItem inserts a new item and returns the stored entity. The
// referenced project must exist; the type must be a member of the
// closed set.
func (r *Repository) CreateItem(input models.ItemInput) (*models.Item, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "item name is required")
	}
	if !models.ValidItemType(input.Type) {
		return nil, apperrors.Newf(apperrors.ErrValidation, "invalid item type %q", input.Type)
	}
	exists, err := r.projectExists(input.ProjectID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to create item", err)
	}
	if !exists {
		return nil, apperrors.Newf(apperrors.ErrValidation, "project %d does not exist", input.ProjectID)
	}

	now := nowMillis()
	res, err := r.db.Exec(
		`INSERT INTO items (project_id, name, description, type, source, tags, metadata, thumbnail, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.ProjectID, input.Name, nullIfEmpty(input.Description), input.Type,
		nullIfEmpty(input.Source), input.Tags, input.Metadata, nullIfEmpty(input.Thumbnail),
		now, now,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to create item", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to create item", err)
	}
	return r.GetItem(id)
}

// UpdateItem applies a partial update to an item. Semantics match
// UpdateProject; changing projectId re-checks referential integrity.
func (r *Repository) UpdateItem(id int64, update models.ItemUpdate) (*models.Item, error) {
	if update.Empty() {
		return r.GetItem(id)
	}

	var setClause []string
	var args []interface{}

	if update.ProjectID.Set {
		if update.ProjectID.Null {
			return nil, apperrors.New(apperrors.ErrValidation, "projectId cannot be null")
		}
		exists, err := r.projectExists(update.ProjectID.Value)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to update item", err)
		}
		if !exists {
			return nil, apperrors.Newf(apperrors.ErrValidation, "project %d does not exist", update.ProjectID.Value)
		}
		setClause = append(setClause, "project_id = ?")
		args = append(args, update.ProjectID.Value)
	}
	if update.Name.Set {
		if update.Name.Null || strings.TrimSpace(update.Name.Value) == "" {
			return nil, apperrors.New(apperrors.ErrValidation, "item name cannot be empty")
		}
		setClause = append(setClause, "name = ?")
		args = append(args, update.Name.Value)
	}
	if update.Description.Set {
		setClause = append(setClause, "description = ?")
		args = append(args, optionalText(update.Description))
	}
	if update.Type.Set {
		if update.Type.Null || !models.ValidItemType(update.Type.Value) {
			return nil, apperrors.Newf(apperrors.ErrValidation, "invalid item type %q", update.Type.Value)
		}
		setClause = append(setClause, "type = ?")
		args = append(args, update.Type.Value)
	}
	if update.Source.Set {
		setClause = append(setClause, "source = ?")
		args = append(args, optionalText(update.Source))
	}
	if update.Tags.Set {
		setClause = append(setClause, "tags = ?")
		if update.Tags.Null {
			args = append(args, nil)
		} else {
			args = append(args, update.Tags.Value)
		}
	}
	if update.Metadata.Set {
		setClause = append(setClause, "metadata = ?")
		if update.Metadata.Null {
			args = append(args, nil)
		} else {
			args = append(args, update.Metadata.Value)
		}
	}
	if update.Thumbnail.Set {
		setClause = append(setClause, "thumbnail = ?")
		args = append(args, optionalText(update.Thumbnail))
	}

	setClause = append(setClause, "updated_at = ?")
	args = append(args, nowMillis(), id)

	res, err := r.db.Exec(
		"UPDATE items SET "+strings.Join(setClause, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to update item", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, nil
	}
	return r.GetItem(id)
}

// optionalText maps an optional string field to its stored form:
// explicit null and empty string both store as NULL.
func optionalText(o models.Optional[string]) interface{} {
	if o.Null || o.Value == "" {
		return nil
	}
	return o.Value
}

// DeleteItem removes a single item. Returns false when the id does not
// exist.
func (r *Repository) DeleteItem(id int64) (bool, error) {
	res, err := r.db.Exec("DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrDatabase, "failed to delete item", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrDatabase, "failed to delete item", err)
	}
	return affected > 0, nil
}
