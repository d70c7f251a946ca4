package postgres

import (
	"context"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const questionBatchSize = 100

type QuestionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	return q.db.WithContext(ctx).Omit("Subject", "CourseOutcome").Create(question).Error
}

// GetByID loads the question with its subject and course outcome.
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	err := q.db.WithContext(ctx).
		Preload("Subject").
		Preload("CourseOutcome").
		First(&question, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, id string) error {
	return notFoundIfUnaffected(q.db.WithContext(ctx).Delete(&models.Question{}, "id = ?", id))
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return q.db.WithContext(ctx).Omit("Subject", "CourseOutcome").CreateInBatches(questions, questionBatchSize).Error
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, ids []string) ([]*models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []*models.Question
	err := q.db.WithContext(ctx).
		Preload("Subject").
		Preload("CourseOutcome").
		Where("id IN ?", ids).
		Find(&found).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Question, len(found))
	for _, question := range found {
		byID[question.ID] = question
	}
	ordered := make([]*models.Question, 0, len(found))
	for _, id := range ids {
		if question, ok := byID[id]; ok {
			ordered = append(ordered, question)
			delete(byID, id)
		}
	}
	return ordered, nil
}

func (q *QuestionPostgreSQL) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	query := q.db.WithContext(ctx).Model(&models.Question{})
	if filters.SubjectID != "" {
		query = query.Where("subject_id = ?", filters.SubjectID)
	}
	if filters.CourseOutcomeID != nil {
		query = query.Where("course_outcome_id = ?", *filters.CourseOutcomeID)
	}
	if filters.CreatedBy != "" {
		query = query.Where("created_by = ?", filters.CreatedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = q.helpers.ApplyPaginationAndSort(query, "created_at", filters.SortOrder, filters.Limit, filters.Offset)

	var questions []*models.Question
	err := query.Preload("Subject").Preload("CourseOutcome").Find(&questions).Error
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

func (q *QuestionPostgreSQL) GetLatestBySubject(ctx context.Context, subjectID string, limit int) ([]*models.Question, error) {
	var questions []*models.Question
	err := q.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&questions).Error
	return questions, err
}

func (q *QuestionPostgreSQL) UpdateContent(ctx context.Context, id string, doc document.Document) error {
	return notFoundIfUnaffected(q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"editor_data": datatypes.NewJSONType(doc),
			"updated_at":  time.Now(),
		}))
}

func (q *QuestionPostgreSQL) UpdateCourseOutcome(ctx context.Context, id string, courseOutcomeID *string) error {
	return notFoundIfUnaffected(q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"course_outcome_id": courseOutcomeID,
			"updated_at":        time.Now(),
		}))
}
