package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type SubjectFilters struct {
	Semester     *int   `json:"semester"`
	AcademicYear string `json:"academicYear"`
	Limit        int    `json:"limit"`
	Offset       int    `json:"offset"`
}

type QuestionFilters struct {
	SubjectID       string  `json:"subjectId"`
	CourseOutcomeID *string `json:"courseOutcomeId"`
	CreatedBy       string  `json:"createdBy"`
	Limit           int     `json:"limit"`
	Offset          int     `json:"offset"`
	SortOrder       string  `json:"sortOrder"` // "asc", "desc"; newest first by default
}

type UserFilters struct {
	Approved *bool `json:"approved"`
	Limit    int   `json:"limit"`
	Offset   int   `json:"offset"`
}

type AuditFilters struct {
	UserID     string `json:"userId"`
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

// Repository groups every store behind one handle so services can run a
// unit of work across several of them.
type Repository interface {
	Subject() SubjectRepository
	CourseOutcome() CourseOutcomeRepository
	User() UserRepository
	FacultySubject() FacultySubjectRepository
	Question() QuestionRepository
	Audit() AuditRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}

// IsNotFoundError reports whether err means the requested row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique constraint violation.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
