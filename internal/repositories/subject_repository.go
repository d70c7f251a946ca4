package repositories

import (
	"context"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
)

// SubjectRepository interface for subject operations
type SubjectRepository interface {
	Create(ctx context.Context, subject *models.Subject) error
	GetByID(ctx context.Context, id string) (*models.Subject, error)
	List(ctx context.Context, filters SubjectFilters) ([]*models.Subject, int64, error)

	// Validation and checks
	ExistsByTerm(ctx context.Context, code string, semester int, academicYear string) (bool, error)
}

// CourseOutcomeRepository interface for course outcome operations
type CourseOutcomeRepository interface {
	Create(ctx context.Context, co *models.CourseOutcome) error
	GetByID(ctx context.Context, id string) (*models.CourseOutcome, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.CourseOutcome, error)
	GetByCode(ctx context.Context, subjectID, code string) (*models.CourseOutcome, error)
	ListBySubject(ctx context.Context, subjectID string) ([]*models.CourseOutcome, error)
	UpdateDescription(ctx context.Context, id, description string) error
	Delete(ctx context.Context, id string) error
}
