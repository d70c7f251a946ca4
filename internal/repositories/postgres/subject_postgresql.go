package postgres

import (
	"context"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"gorm.io/gorm"
)

type SubjectPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSubjectPostgreSQL(db *gorm.DB) repositories.SubjectRepository {
	return &SubjectPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (s *SubjectPostgreSQL) Create(ctx context.Context, subject *models.Subject) error {
	return s.db.WithContext(ctx).Create(subject).Error
}

func (s *SubjectPostgreSQL) GetByID(ctx context.Context, id string) (*models.Subject, error) {
	var subject models.Subject
	if err := s.db.WithContext(ctx).First(&subject, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

// List returns subjects ordered by academic year, semester and code.
func (s *SubjectPostgreSQL) List(ctx context.Context, filters repositories.SubjectFilters) ([]*models.Subject, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Subject{})
	if filters.Semester != nil {
		query = query.Where("semester = ?", *filters.Semester)
	}
	if filters.AcademicYear != "" {
		query = query.Where("academic_year = ?", filters.AcademicYear)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = s.helpers.ApplyPaginationAndSort(query, "", "", filters.Limit, filters.Offset)

	var subjects []*models.Subject
	err := query.Order("academic_year DESC").Order("semester ASC").Order("code ASC").Find(&subjects).Error
	if err != nil {
		return nil, 0, err
	}
	return subjects, total, nil
}

func (s *SubjectPostgreSQL) ExistsByTerm(ctx context.Context, code string, semester int, academicYear string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Subject{}).
		Where("code = ? AND semester = ? AND academic_year = ?", code, semester, academicYear).
		Count(&count).Error
	return count > 0, err
}
