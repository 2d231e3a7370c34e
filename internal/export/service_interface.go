package export

import "github.com/kimhsiao/infovault/backend/internal/models"

// Store is the slice of the repository the export service depends on.
type Store interface {
	ListProjects() ([]*models.Project, error)
	ListItems(projectID *int64) ([]*models.Item, error)
	CreateProject(input models.ProjectInput) (*models.Project, error)
	CreateItem(input models.ItemInput) (*models.Item, error)
}
