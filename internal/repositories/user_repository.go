package repositories

import (
	"context"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
)

// UserRepository interface for user operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error

	// Role-based queries
	GetByRole(ctx context.Context, role models.UserRole, filters UserFilters) ([]*models.User, int64, error)

	SetApproved(ctx context.Context, id string, approved bool) error
}

// FacultySubjectRepository interface for subject assignments
type FacultySubjectRepository interface {
	Assign(ctx context.Context, assignment *models.FacultySubject) error
	Unassign(ctx context.Context, facultyID, subjectID string) error
	IsAssigned(ctx context.Context, facultyID, subjectID string) (bool, error)

	// GetSubjects returns the faculty's subjects ordered by code.
	GetSubjects(ctx context.Context, facultyID string) ([]*models.Subject, error)
	// GetSubjectsByFaculty maps each faculty ID to its subjects.
	GetSubjectsByFaculty(ctx context.Context, facultyIDs []string) (map[string][]*models.Subject, error)
}
