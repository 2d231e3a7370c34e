package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Item types form a closed set. Unknown values are rejected at the API
// boundary before they reach the store.
const (
	TypeURL       = "url"
	TypeImage     = "image"
	TypeVideo     = "video"
	TypeDocument  = "document"
	TypeCode      = "code"
	TypeNote      = "note"
	TypeReference = "reference"
	TypeArchive   = "archive"
)

// ItemTypes lists all valid item types.
func ItemTypes() []string {
	return []string{
		TypeURL, TypeImage, TypeVideo, TypeDocument,
		TypeCode, TypeNote, TypeReference, TypeArchive,
	}
}

// ValidItemType reports whether t is a member of the closed type set.
func ValidItemType(t string) bool {
	switch t {
	case TypeURL, TypeImage, TypeVideo, TypeDocument,
		TypeCode, TypeNote, TypeReference, TypeArchive:
		return true
	}
	return false
}

// TagList is an ordered list of tag labels, stored as a JSON-encoded
// array in a TEXT column.
type TagList []string

// Value implements driver.Valuer. A nil list stores as NULL.
func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL or malformed stored JSON scans to
// nil rather than failing, so hand-edited or legacy rows stay readable.
func (t *TagList) Scan(value interface{}) error {
	raw, ok := rawBytes(value)
	if !ok {
		*t = nil
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		*t = nil
		return nil
	}
	*t = tags
	return nil
}

// Metadata is an opaque JSON payload attached to an item. The store
// persists and returns it unchanged and never interprets it.
type Metadata []byte

// MarshalJSON emits the raw payload, or null when empty.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

// UnmarshalJSON captures the raw payload verbatim.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = nil
		return nil
	}
	*m = append((*m)[0:0], b...)
	return nil
}

// Value implements driver.Valuer. Empty metadata stores as NULL.
func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return string(m), nil
}

// Scan implements sql.Scanner. NULL or invalid stored JSON scans to nil.
func (m *Metadata) Scan(value interface{}) error {
	raw, ok := rawBytes(value)
	if !ok || !json.Valid(raw) {
		*m = nil
		return nil
	}
	*m = append((*m)[0:0], raw...)
	return nil
}

// rawBytes normalizes a scanned column value to bytes.
func rawBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}

// Item is a cataloged reference (link, file path, note, ...) belonging
// to exactly one project.
type Item struct {
	ID          int64     `db:"id" json:"id"`
	ProjectID   int64     `db:"project_id" json:"projectId"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Type        string    `db:"type" json:"type"`
	Source      string    `db:"source" json:"source"`
	Tags        TagList   `db:"tags" json:"tags"`
	Metadata    Metadata  `db:"metadata" json:"metadata"`
	Thumbnail   string    `db:"thumbnail" json:"thumbnail"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// TableName returns the table name for Item.
func (Item) TableName() string {
	return "items"
}

// ItemInput is the caller-supplied portion of a new item.
type ItemInput struct {
	ProjectID   int64    `json:"projectId"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Source      string   `json:"source"`
	Tags        TagList  `json:"tags"`
	Metadata    Metadata `json:"metadata"`
	Thumbnail   string   `json:"thumbnail"`
}

// ItemUpdate is a partial update for an item.
type ItemUpdate struct {
	ProjectID   Optional[int64]    `json:"projectId"`
	Name        Optional[string]   `json:"name"`
	Description Optional[string]   `json:"description"`
	Type        Optional[string]   `json:"type"`
	Source      Optional[string]   `json:"source"`
	Tags        Optional[TagList]  `json:"tags"`
	Metadata    Optional[Metadata] `json:"metadata"`
	Thumbnail   Optional[string]   `json:"thumbnail"`
}

// Empty reports whether the update carries no recognized fields.
func (u ItemUpdate) Empty() bool {
	return !u.ProjectID.Set && !u.Name.Set && !u.Description.Set &&
		!u.Type.Set && !u.Source.Set && !u.Tags.Set &&
		!u.Metadata.Set && !u.Thumbnail.Set
}
