package repositories

import (
	"context"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
)

// QuestionRepository interface for question-specific operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id string) (*models.Question, error)
	Delete(ctx context.Context, id string) error

	// Bulk operations
	CreateBatch(ctx context.Context, questions []*models.Question) error
	// GetByIDs returns the questions in the order of ids, skipping unknown
	// ones.
	GetByIDs(ctx context.Context, ids []string) ([]*models.Question, error)

	// Query operations
	List(ctx context.Context, filters QuestionFilters) ([]*models.Question, int64, error)
	// GetLatestBySubject returns up to limit questions, newest first.
	GetLatestBySubject(ctx context.Context, subjectID string, limit int) ([]*models.Question, error)

	// Content management
	UpdateContent(ctx context.Context, id string, doc document.Document) error
	UpdateCourseOutcome(ctx context.Context, id string, courseOutcomeID *string) error
}

// AuditRepository stores the audit trail of administrative and authoring
// actions.
type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filters AuditFilters) ([]*models.AuditLog, int64, error)
}
