package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"gorm.io/gorm"
)

// Repository is the gorm-backed implementation of repositories.Repository.
// It works on Postgres in production and on SQLite in development and tests.
type Repository struct {
	db *gorm.DB

	subject        repositories.SubjectRepository
	courseOutcome  repositories.CourseOutcomeRepository
	user           repositories.UserRepository
	facultySubject repositories.FacultySubjectRepository
	question       repositories.QuestionRepository
	audit          repositories.AuditRepository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:             db,
		subject:        NewSubjectPostgreSQL(db),
		courseOutcome:  NewCourseOutcomePostgreSQL(db),
		user:           NewUserPostgreSQL(db),
		facultySubject: NewFacultySubjectPostgreSQL(db),
		question:       NewQuestionPostgreSQL(db),
		audit:          NewAuditPostgreSQL(db),
	}
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Subject{},
		&models.CourseOutcome{},
		&models.FacultySubject{},
		&models.Question{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (r *Repository) Subject() repositories.SubjectRepository {
	return r.subject
}

func (r *Repository) CourseOutcome() repositories.CourseOutcomeRepository {
	return r.courseOutcome
}

func (r *Repository) User() repositories.UserRepository {
	return r.user
}

func (r *Repository) FacultySubject() repositories.FacultySubjectRepository {
	return r.facultySubject
}

func (r *Repository) Question() repositories.QuestionRepository {
	return r.question
}

func (r *Repository) Audit() repositories.AuditRepository {
	return r.audit
}

// WithTransaction runs fn against a repository bound to a single
// transaction. The transaction commits when fn returns nil.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
