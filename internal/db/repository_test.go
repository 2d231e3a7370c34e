// Package db provides unit tests for CRUD repository operations.
package db

import (
	"reflect"
	"testing"
	"time"

	apperrors "github.com/kimhsiao/infovault/backend/internal/errors"
	"github.com/kimhsiao/infovault/backend/internal/models"
)

// tick sleeps past the millisecond timestamp resolution so updated_at
// comparisons are strict.
func tick() {
	time.Sleep(2 * time.Millisecond)
}

func mustCreateProject(t *testing.T, repo *Repository, name string) *models.Project {
	t.Helper()
	p, err := repo.CreateProject(models.ProjectInput{Name: name})
	if err != nil {
		t.Fatalf("CreateProject(%q) failed: %v", name, err)
	}
	return p
}

func mustCreateItem(t *testing.T, repo *Repository, input models.ItemInput) *models.Item {
	t.Helper()
	it, err := repo.CreateItem(input)
	if err != nil {
		t.Fatalf("CreateItem(%q) failed: %v", input.Name, err)
	}
	return it
}

// =====================================================
// Project CRUD
// =====================================================

func TestCreateProjectAndGet(t *testing.T) {
	repo := setupTestRepo(t)

	p, err := repo.CreateProject(models.ProjectInput{
		Name:        "Web Dev",
		Description: "All web things",
	})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	if p.ID <= 0 {
		t.Errorf("expected generated id, got %d", p.ID)
	}
	if p.Name != "Web Dev" || p.Description != "All web things" {
		t.Errorf("unexpected project: %+v", p)
	}
	if !p.CreatedAt.Equal(p.UpdatedAt) {
		t.Errorf("createdAt should equal updatedAt on create: %v vs %v", p.CreatedAt, p.UpdatedAt)
	}

	got, err := repo.GetProject(p.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Errorf("read-back mismatch: got %+v, want %+v", got, p)
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	repo := setupTestRepo(t)

	for _, name := range []string{"", "   "} {
		_, err := repo.CreateProject(models.ProjectInput{Name: name})
		if !apperrors.Is(err, apperrors.ErrValidation) {
			t.Errorf("name %q: expected VALIDATION_ERROR, got %v", name, err)
		}
	}
}

func TestGetProjectMissing(t *testing.T) {
	repo := setupTestRepo(t)

	p, err := repo.GetProject(999)
	if err != nil {
		t.Fatalf("missing project must not be an error: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil for missing project, got %+v", p)
	}
}

func TestUpdateProjectPartialMerge(t *testing.T) {
	repo := setupTestRepo(t)
	p, _ := repo.CreateProject(models.ProjectInput{Name: "Before", Description: "keep me"})

	tick()
	updated, err := repo.UpdateProject(p.ID, models.ProjectUpdate{
		Name: models.Some("After"),
	})
	if err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}

	if updated.Name != "After" {
		t.Errorf("name not updated: %s", updated.Name)
	}
	if updated.Description != "keep me" {
		t.Errorf("omitted description was modified: %q", updated.Description)
	}
	if !updated.UpdatedAt.After(p.UpdatedAt) {
		t.Errorf("updatedAt did not advance: %v -> %v", p.UpdatedAt, updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Error("createdAt must never change")
	}
}

func TestUpdateProjectClearDescription(t *testing.T) {
	repo := setupTestRepo(t)
	p, _ := repo.CreateProject(models.ProjectInput{Name: "P", Description: "to clear"})

	updated, err := repo.UpdateProject(p.ID, models.ProjectUpdate{
		Description: models.NullOptional[string](),
	})
	if err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}
	if updated.Description != "" {
		t.Errorf("explicit null should clear description, got %q", updated.Description)
	}
}

func TestUpdateProjectEmptyIsNoOp(t *testing.T) {
	repo := setupTestRepo(t)
	p, _ := repo.CreateProject(models.ProjectInput{Name: "P"})

	tick()
	got, err := repo.UpdateProject(p.ID, models.ProjectUpdate{})
	if err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}
	if !got.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("empty update must not touch updatedAt: %v -> %v", p.UpdatedAt, got.UpdatedAt)
	}
}

func TestUpdateProjectRejectsEmptyName(t *testing.T) {
	repo := setupTestRepo(t)
	p, _ := repo.CreateProject(models.ProjectInput{Name: "P"})

	_, err := repo.UpdateProject(p.ID, models.ProjectUpdate{Name: models.Some("")})
	if !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
	_, err = repo.UpdateProject(p.ID, models.ProjectUpdate{Name: models.NullOptional[string]()})
	if !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("null name: expected VALIDATION_ERROR, got %v", err)
	}
}

func TestUpdateProjectMissing(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.UpdateProject(42, models.ProjectUpdate{Name: models.Some("X")})
	if err != nil {
		t.Fatalf("missing target must not be an error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing project, got %+v", got)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	repo := setupTestRepo(t)
	doomed := mustCreateProject(t, repo, "Doomed")
	keeper := mustCreateProject(t, repo, "Keeper")

	mustCreateItem(t, repo, models.ItemInput{ProjectID: doomed.ID, Name: "a", Type: models.TypeNote})
	mustCreateItem(t, repo, models.ItemInput{ProjectID: doomed.ID, Name: "b", Type: models.TypeURL, Source: "https://example.com"})
	kept := mustCreateItem(t, repo, models.ItemInput{ProjectID: keeper.ID, Name: "c", Type: models.TypeNote})

	deleted, err := repo.DeleteProject(doomed.ID)
	if err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if !deleted {
		t.Error("DeleteProject should report success")
	}

	orphans, err := repo.ListItems(&doomed.ID)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("cascade left %d orphaned items", len(orphans))
	}

	if got, _ := repo.GetItem(kept.ID); got == nil {
		t.Error("cascade deleted an item from another project")
	}
}

func TestDeleteProjectMissing(t *testing.T) {
	repo := setupTestRepo(t)

	deleted, err := repo.DeleteProject(12345)
	if err != nil {
		t.Fatalf("deleting a missing project must not be an error: %v", err)
	}
	if deleted {
		t.Error("expected false for missing project")
	}
}

// =====================================================
// Item CRUD
// =====================================================

func TestCreateItemFullRoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	p := mustCreateProject(t, repo, "P")

	input := models.ItemInput{
		ProjectID:   p.ID,
		Name:        "React Docs",
		Description: "Official docs",
		Type:        models.TypeURL,
		Source:      "https://react.dev",
		Tags:        models.TagList{"react", "frontend"},
		Metadata:    models.Metadata(`{"size":123,"pinned":true}`),
		Thumbnail:   "thumbs/react.jpg",
	}

	it, err := repo.CreateItem(input)
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	if it.ID <= 0 || it.ProjectID != p.ID {
		t.Errorf("unexpected identity: %+v", it)
	}
	if !reflect.DeepEqual(it.Tags, input.Tags) {
		t.Errorf("tags mismatch: got %v", it.Tags)
	}
	if string(it.Metadata) != string(input.Metadata) {
		t.Errorf("metadata not preserved verbatim: %s", it.Metadata)
	}
	if !it.CreatedAt.Equal(it.UpdatedAt) {
		t.Error("createdAt should equal updatedAt on create")
	}

	got, err := repo.GetItem(it.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if !reflect.DeepEqual(got, it) {
		t.Errorf("read-back mismatch: got %+v, want %+v", got, it)
	}
}

func TestCreateItemValidation(t *testing.T) {
	repo := setupTestRepo(t)
	p := mustCreateProject(t, repo, "P")

	cases := []struct {
		name  string
		input models.ItemInput
	}{
		{"empty name", models.ItemInput{ProjectID: p.ID, Type: models.TypeURL}},
		{"bad type", models.ItemInput{ProjectID: p.ID, Name: "x", Type: "link"}},
		{"missing project", models.ItemInput{ProjectID: 999, Name: "x", Type: models.TypeURL}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := repo.CreateItem(tc.input); !apperrors.Is(err, apperrors.ErrValidation) {
				t.Errorf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestUpdateItemPartialMerge(t *testing.T) {
	repo := setupTestRepo(t)
	p := mustCreateProject(t, repo, "Web Dev")
	it := mustCreateItem(t, repo, models.ItemInput{
		ProjectID:   p.ID,
		Name:        "React Docs",
		Description: "keep",
		Type:        models.TypeURL,
		Source:      "https://react.dev",
		Tags:        models.TagList{"react", "frontend"},
	})

	tick()
	updated, err := repo.UpdateItem(it.ID, models.ItemUpdate{
		Tags: models.Some(models.TagList{"react"}),
	})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	if !reflect.DeepEqual(updated.Tags, models.TagList{"react"}) {
		t.Errorf("tags not replaced: %v", updated.Tags)
	}
	if updated.Description != "keep" || updated.Source != "https://react.dev" {
		t.Errorf("omitted fields were modified: %+v", updated)
	}
	if !updated.UpdatedAt.After(it.UpdatedAt) {
		t.Errorf("updatedAt did not advance: %v -> %v", it.UpdatedAt, updated.UpdatedAt)
	}
}

func TestUpdateItemClearOptionalFields(t *testing.T) {
	repo := setupTestRepo(t)
	p := mustCreateProject(t, repo, "P")
	it := mustCreateItem(t, repo, models.ItemInput{
		ProjectID:   p.ID,
		Name:        "x",
		Description: "desc",
		Type:        models.TypeNote,
		Tags:        models.TagList{"a"},
		Metadata:    models.Metadata(`{"k":1}`),
	})

	updated, err := repo.UpdateItem(it.ID, models.ItemUpdate{
		Description: models.NullOptional[string](),
		Tags:        models.NullOptional[models.TagList](),
		Metadata:    models.NullOptional[models.Metadata](),
	})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if updated.Description != "" || updated.Tags != nil || updated.Metadata != nil {
		t.Errorf("explicit nulls should clear optional fields: %+v", updated)
	}
}

func TestUpdateItemMoveBetweenProjects(t *testing.T) {
	repo := setupTestRepo(t)
	src := mustCreateProject(t, repo, "Src")
	dst := mustCreateProject(t, repo, "Dst")
	it := mustCreateItem(t, repo, models.ItemInput{ProjectID: src.ID, Name: "x", Type: models.TypeNote})

	updated, err := repo.UpdateItem(it.ID, models.ItemUpdate{ProjectID: models.Some(dst.ID)})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if updated.ProjectID != dst.ID {
		t.Errorf("projectId not updated: %d", updated.ProjectID)
	}

	_, err = repo.UpdateItem(it.ID, models.ItemUpdate{ProjectID: models.Some[int64](999)})
	if !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("dangling projectId: expected VALIDATION_ERROR, got %v", err)
	}
	_, err = repo.UpdateItem(it.ID, models.ItemUpdate{ProjectID: models.NullOptional[int64]()})
	if !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("null projectId: expected VALIDATION_ERROR, got %v", err)
	}
}

func TestUpdateItemMissing(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.UpdateItem(7, models.ItemUpdate{Name: models.Some("x")})
	if err != nil {
		t.Fatalf("missing target must not be an error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing item, got %+v", got)
	}
}

func TestDeleteItem(t *testing.T) {
	repo := setupTestRepo(t)
	p := mustCreateProject(t, repo, "P")
	it := mustCreateItem(t, repo, models.ItemInput{ProjectID: p.ID, Name: "x", Type: models.TypeNote})

	deleted, err := repo.DeleteItem(it.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteItem failed: deleted=%v err=%v", deleted, err)
	}
	if got, _ := repo.GetItem(it.ID); got != nil {
		t.Error("item still readable after delete")
	}

	deleted, err = repo.DeleteItem(it.ID)
	if err != nil {
		t.Fatalf("re-delete must not be an error: %v", err)
	}
	if deleted {
		t.Error("expected false for already-deleted item")
	}
}

// Full lifecycle: create project and item, patch tags, cascade delete.
func TestLifecycleScenario(t *testing.T) {
	repo := setupTestRepo(t)

	p := mustCreateProject(t, repo, "Web Dev")
	it := mustCreateItem(t, repo, models.ItemInput{
		ProjectID: p.ID,
		Name:      "React Docs",
		Type:      models.TypeURL,
		Source:    "https://react.dev",
		Tags:      models.TagList{"react", "frontend"},
	})

	tick()
	updated, err := repo.UpdateItem(it.ID, models.ItemUpdate{Tags: models.Some(models.TagList{"react"})})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if !reflect.DeepEqual(updated.Tags, models.TagList{"react"}) {
		t.Errorf("tags: %v", updated.Tags)
	}
	if !updated.UpdatedAt.After(it.UpdatedAt) {
		t.Error("updatedAt must advance")
	}

	if deleted, err := repo.DeleteProject(p.ID); err != nil || !deleted {
		t.Fatalf("DeleteProject: deleted=%v err=%v", deleted, err)
	}
	if got, _ := repo.GetItem(it.ID); got != nil {
		t.Error("item survived project deletion")
	}
}
