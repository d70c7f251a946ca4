package postgres

import (
	"context"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"gorm.io/gorm"
)

type FacultySubjectPostgreSQL struct {
	db *gorm.DB
}

func NewFacultySubjectPostgreSQL(db *gorm.DB) repositories.FacultySubjectRepository {
	return &FacultySubjectPostgreSQL{db: db}
}

func (f *FacultySubjectPostgreSQL) Assign(ctx context.Context, assignment *models.FacultySubject) error {
	return f.db.WithContext(ctx).Omit("Subject").Create(assignment).Error
}

func (f *FacultySubjectPostgreSQL) Unassign(ctx context.Context, facultyID, subjectID string) error {
	return notFoundIfUnaffected(f.db.WithContext(ctx).
		Where("faculty_id = ? AND subject_id = ?", facultyID, subjectID).
		Delete(&models.FacultySubject{}))
}

func (f *FacultySubjectPostgreSQL) IsAssigned(ctx context.Context, facultyID, subjectID string) (bool, error) {
	var count int64
	err := f.db.WithContext(ctx).
		Model(&models.FacultySubject{}).
		Where("faculty_id = ? AND subject_id = ?", facultyID, subjectID).
		Count(&count).Error
	return count > 0, err
}

func (f *FacultySubjectPostgreSQL) GetSubjects(ctx context.Context, facultyID string) ([]*models.Subject, error) {
	var subjects []*models.Subject
	err := f.db.WithContext(ctx).
		Joins("JOIN faculty_subjects ON faculty_subjects.subject_id = subjects.id").
		Where("faculty_subjects.faculty_id = ?", facultyID).
		Order("subjects.code ASC").
		Find(&subjects).Error
	return subjects, err
}

func (f *FacultySubjectPostgreSQL) GetSubjectsByFaculty(ctx context.Context, facultyIDs []string) (map[string][]*models.Subject, error) {
	result := make(map[string][]*models.Subject, len(facultyIDs))
	if len(facultyIDs) == 0 {
		return result, nil
	}

	var assignments []*models.FacultySubject
	err := f.db.WithContext(ctx).
		Preload("Subject").
		Where("faculty_id IN ?", facultyIDs).
		Order("assigned_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}

	for _, a := range assignments {
		subject := a.Subject
		result[a.FacultyID] = append(result[a.FacultyID], &subject)
	}
	return result, nil
}
