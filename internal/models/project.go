// Package models provides data model definitions for the InfoVault store.
package models

import "time"

// Project is a top-level grouping container for items.
type Project struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// TableName returns the table name for Project.
func (Project) TableName() string {
	return "projects"
}

// ProjectInput is the caller-supplied portion of a new project.
// ID and timestamps are assigned by the store.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProjectUpdate is a partial update for a project. Fields left unset
// keep their current values; see Optional for the null/omitted rules.
type ProjectUpdate struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
}

// Empty reports whether the update carries no recognized fields.
func (u ProjectUpdate) Empty() bool {
	return !u.Name.Set && !u.Description.Set
}
