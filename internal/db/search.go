// Package db provides the query operations layered over the item CRUD:
// listing, free-text search, and type/tag filtering.
package db

import (
	"strings"

	apperrors "github.com/kimhsiao/infovault/backend/internal/errors"
	"github.com/kimhsiao/infovault/backend/internal/models"
)

// Listing order is a user-facing contract: most recently modified
// first, ties broken by id descending so results are deterministic.
const itemOrder = " ORDER BY updated_at DESC, id DESC"

// likeEscaper neutralizes LIKE wildcards in user input so search is a
// plain substring match.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *Repository) queryItems(query string, args ...interface{}) ([]*models.Item, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "item query failed", err)
	}
	defer rows.Close()

	items := []*models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "item query failed", err)
	}
	return items, nil
}

// ListItems returns all items, optionally scoped to one project.
func (r *Repository) ListItems(projectID *int64) ([]*models.Item, error) {
	query := "SELECT " + itemColumns + " FROM items"
	var args []interface{}
	if projectID != nil {
		query += " WHERE project_id = ?"
		args = append(args, *projectID)
	}
	return r.queryItems(query+itemOrder, args...)
}

// SearchItems performs a case-insensitive substring match against the
// item name, description, and serialized tag list.
func (r *Repository) SearchItems(query string, projectID *int64) ([]*models.Item, error) {
	term := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"

	sqlQuery := "SELECT " + itemColumns + ` FROM items
		WHERE (LOWER(name) LIKE ? ESCAPE '\'
			OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\'
			OR LOWER(COALESCE(tags, '')) LIKE ? ESCAPE '\')`
	args := []interface{}{term, term, term}

	if projectID != nil {
		sqlQuery += " AND project_id = ?"
		args = append(args, *projectID)
	}
	return r.queryItems(sqlQuery+itemOrder, args...)
}

// ItemsByType returns items whose type exactly matches itemType.
func (r *Repository) ItemsByType(itemType string, projectID *int64) ([]*models.Item, error) {
	query := "SELECT " + itemColumns + " FROM items WHERE type = ?"
	args := []interface{}{itemType}
	if projectID != nil {
		query += " AND project_id = ?"
		args = append(args, *projectID)
	}
	return r.queryItems(query+itemOrder, args...)
}

// ItemsByTags returns items carrying ANY of the requested tags (union,
// not intersection). Matching is a case-insensitive exact-label match:
// the pattern targets the quoted element inside the JSON-encoded tags
// column, so "react" does not match "react-native".
func (r *Repository) ItemsByTags(tags []string, projectID *int64) ([]*models.Item, error) {
	var conditions []string
	var args []interface{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		conditions = append(conditions, `LOWER(COALESCE(tags, '')) LIKE ? ESCAPE '\'`)
		args = append(args, `%"`+likeEscaper.Replace(strings.ToLower(tag))+`"%`)
	}
	if len(conditions) == 0 {
		return []*models.Item{}, nil
	}

	query := "SELECT " + itemColumns + " FROM items WHERE (" + strings.Join(conditions, " OR ") + ")"
	if projectID != nil {
		query += " AND project_id = ?"
		args = append(args, *projectID)
	}
	return r.queryItems(query+itemOrder, args...)
}
