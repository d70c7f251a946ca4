package postgres

import (
	"context"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"gorm.io/gorm"
)

type CourseOutcomePostgreSQL struct {
	db *gorm.DB
}

func NewCourseOutcomePostgreSQL(db *gorm.DB) repositories.CourseOutcomeRepository {
	return &CourseOutcomePostgreSQL{db: db}
}

func (c *CourseOutcomePostgreSQL) Create(ctx context.Context, co *models.CourseOutcome) error {
	return c.db.WithContext(ctx).Create(co).Error
}

func (c *CourseOutcomePostgreSQL) GetByID(ctx context.Context, id string) (*models.CourseOutcome, error) {
	var co models.CourseOutcome
	if err := c.db.WithContext(ctx).First(&co, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &co, nil
}

func (c *CourseOutcomePostgreSQL) GetByIDs(ctx context.Context, ids []string) ([]*models.CourseOutcome, error) {
	var cos []*models.CourseOutcome
	if len(ids) == 0 {
		return cos, nil
	}
	err := c.db.WithContext(ctx).Where("id IN ?", ids).Order("co_code ASC").Find(&cos).Error
	return cos, err
}

func (c *CourseOutcomePostgreSQL) GetByCode(ctx context.Context, subjectID, code string) (*models.CourseOutcome, error) {
	var co models.CourseOutcome
	err := c.db.WithContext(ctx).
		Where("subject_id = ? AND co_code = ?", subjectID, code).
		First(&co).Error
	if err != nil {
		return nil, err
	}
	return &co, nil
}

func (c *CourseOutcomePostgreSQL) ListBySubject(ctx context.Context, subjectID string) ([]*models.CourseOutcome, error) {
	var cos []*models.CourseOutcome
	err := c.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("co_code ASC").
		Find(&cos).Error
	return cos, err
}

func (c *CourseOutcomePostgreSQL) UpdateDescription(ctx context.Context, id, description string) error {
	return notFoundIfUnaffected(c.db.WithContext(ctx).
		Model(&models.CourseOutcome{}).
		Where("id = ?", id).
		Update("description", description))
}

// Delete removes the course outcome and unlinks the questions that
// referenced it.
func (c *CourseOutcomePostgreSQL) Delete(ctx context.Context, id string) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Question{}).
			Where("course_outcome_id = ?", id).
			Update("course_outcome_id", nil).Error; err != nil {
			return err
		}
		return notFoundIfUnaffected(tx.Delete(&models.CourseOutcome{}, "id = ?", id))
	})
}
