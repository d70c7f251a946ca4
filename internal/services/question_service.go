package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/document"
	"github.com/SAP-F-2025/qpaper-service/internal/events"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/SAP-F-2025/qpaper-service/internal/validator"
)

type CreateQuestionRequest struct {
	SubjectID       string            `json:"subjectId" validate:"required"`
	CourseOutcomeID *string           `json:"courseOutcomeId"`
	Marks           int               `json:"marks" validate:"required,marks_range"`
	Difficulty      string            `json:"difficulty" validate:"omitempty,difficulty_level"`
	EditorData      document.Document `json:"editorData" validate:"-"`
}

// BulkCreateQuestionsRequest stores plain text questions, typically the
// sections of an AI generated draft, as one paragraph block each.
type BulkCreateQuestionsRequest struct {
	SubjectID        string   `json:"subjectId" validate:"required"`
	CourseOutcomeIDs []string `json:"courseOutcomeIds"`
	Questions        []string `json:"questions" validate:"required,min=1,max=100,dive,max=5000"`
	// Zero leaves marks unset for the author to fill in later.
	Marks      int    `json:"marks" validate:"min=0,max=100"`
	Difficulty string `json:"difficulty" validate:"omitempty,difficulty_level"`
}

type UpdateContentRequest struct {
	EditorData document.Document `json:"editorData"`
}

type UpdateCourseOutcomeAssignmentRequest struct {
	// Empty unassigns the question.
	CourseOutcomeID string `json:"courseOutcomeId"`
}

type QuestionResponse struct {
	ID              string            `json:"id"`
	SubjectID       string            `json:"subjectId"`
	SubjectLabel    string            `json:"subjectLabel,omitempty"`
	CourseOutcomeID *string           `json:"courseOutcomeId"`
	CoCode          string            `json:"coCode,omitempty"`
	Marks           int               `json:"marks"`
	Difficulty      string            `json:"difficulty"`
	EditorData      document.Document `json:"editorData"`
	CreatedBy       string            `json:"createdBy"`
	CreatedAt       string            `json:"createdAt"`
}

func newQuestionResponse(q *models.Question) *QuestionResponse {
	r := &QuestionResponse{
		ID:              q.ID,
		SubjectID:       q.SubjectID,
		CourseOutcomeID: q.CourseOutcomeID,
		Marks:           q.Marks,
		Difficulty:      string(q.Difficulty),
		EditorData:      q.Document(),
		CreatedBy:       q.CreatedBy,
		CreatedAt:       q.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if q.Subject != nil {
		r.SubjectLabel = q.Subject.Label()
	}
	if q.CourseOutcome != nil {
		r.CoCode = q.CourseOutcome.Code
	}
	return r
}

type QuestionService interface {
	Create(ctx context.Context, p *auth.Principal, req *CreateQuestionRequest) (*QuestionResponse, error)
	BulkCreate(ctx context.Context, p *auth.Principal, req *BulkCreateQuestionsRequest) ([]*QuestionResponse, error)
	GetByID(ctx context.Context, p *auth.Principal, id string) (*QuestionResponse, error)
	// List returns questions newest first.
	List(ctx context.Context, p *auth.Principal, filters repositories.QuestionFilters) ([]*QuestionResponse, int64, error)
	UpdateContent(ctx context.Context, p *auth.Principal, id string, doc document.Document) (*QuestionResponse, error)
	// UpdateCourseOutcome is separate from UpdateContent and succeeds or
	// fails on its own.
	UpdateCourseOutcome(ctx context.Context, p *auth.Principal, id string, req *UpdateCourseOutcomeAssignmentRequest) (*QuestionResponse, error)
	Delete(ctx context.Context, p *auth.Principal, id string) error
}

type questionService struct {
	repo      repositories.Repository
	logger    *ServiceLogger
	audit     auditRecorder
	events    eventEmitter
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    NewServiceLogger(logger, LogConfig{Service: "question", Component: "service"}),
		audit:     auditRecorder{repo: repo, logger: logger},
		events:    eventEmitter{publisher: publisher, logger: logger},
		validator: validator,
	}
}

func difficultyOrDefault(d string) models.DifficultyLevel {
	if d == "" {
		return models.DifficultyMedium
	}
	return models.DifficultyLevel(d)
}

func (s *questionService) Create(ctx context.Context, p *auth.Principal, req *CreateQuestionRequest) (_ *QuestionResponse, err error) {
	op := s.logger.WithOperation(ctx, "create_question", principalID(p))
	var question *models.Question
	defer func() {
		id := ""
		if question != nil {
			id = question.ID
		}
		op.LogResult(id, "question", err)
	}()

	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err = s.validator.Question().ValidateContent(req.EditorData); err != nil {
		return nil, err
	}
	if err = requireAuthor(ctx, s.repo, p, req.SubjectID); err != nil {
		return nil, err
	}
	if _, err = loadSubject(ctx, s.repo, req.SubjectID); err != nil {
		return nil, err
	}
	coID, err := s.checkCourseOutcome(ctx, req.SubjectID, req.CourseOutcomeID)
	if err != nil {
		return nil, err
	}

	question = &models.Question{
		SubjectID:       req.SubjectID,
		CourseOutcomeID: coID,
		Marks:           req.Marks,
		Difficulty:      difficultyOrDefault(req.Difficulty),
		CreatedBy:       p.UserID,
	}
	question.SetDocument(req.EditorData)
	if err = s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	op.LogAudit(AuditEventCreate, question.ID, "question", nil, req.SubjectID)
	s.audit.record(ctx, p, models.AuditQuestionCreated, "question", question.ID, "Created question",
		map[string]interface{}{"subjectId": req.SubjectID})
	s.events.emit(ctx, events.EventQuestionCreated, events.QuestionEvent{
		QuestionID:      question.ID,
		SubjectID:       question.SubjectID,
		CourseOutcomeID: question.CourseOutcomeID,
		ActorID:         p.UserID,
	})

	return s.GetByID(ctx, p, question.ID)
}

func (s *questionService) BulkCreate(ctx context.Context, p *auth.Principal, req *BulkCreateQuestionsRequest) (_ []*QuestionResponse, err error) {
	op := s.logger.WithOperation(ctx, "bulk_create_questions", principalID(p))
	defer func() { op.LogResult(req.SubjectID, "subject", err) }()

	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err = requireAuthor(ctx, s.repo, p, req.SubjectID); err != nil {
		return nil, err
	}
	if _, err = loadSubject(ctx, s.repo, req.SubjectID); err != nil {
		return nil, err
	}

	// Generated drafts carry one outcome list for the whole batch; the first
	// one tags every question.
	var coID *string
	if len(req.CourseOutcomeIDs) > 0 && req.CourseOutcomeIDs[0] != "" {
		if coID, err = s.checkCourseOutcome(ctx, req.SubjectID, &req.CourseOutcomeIDs[0]); err != nil {
			return nil, err
		}
	}

	questions := make([]*models.Question, 0, len(req.Questions))
	for i, text := range req.Questions {
		text = strings.TrimSpace(text)
		if err = s.validator.Question().ValidateText(text); err != nil {
			return nil, ValidationErrors{{Field: fmt.Sprintf("questions[%d]", i), Message: "is required", Rule: "required"}}
		}
		q := &models.Question{
			SubjectID:       req.SubjectID,
			CourseOutcomeID: coID,
			Marks:           req.Marks,
			Difficulty:      difficultyOrDefault(req.Difficulty),
			CreatedBy:       p.UserID,
		}
		q.SetDocument(document.Document{Blocks: []document.Block{document.NewParagraph(text)}})
		questions = append(questions, q)
	}

	if err = s.repo.Question().CreateBatch(ctx, questions); err != nil {
		return nil, fmt.Errorf("failed to save questions: %w", err)
	}

	ids := make([]string, len(questions))
	out := make([]*QuestionResponse, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		out[i] = newQuestionResponse(q)
	}

	s.audit.record(ctx, p, models.AuditQuestionsImported, "subject", req.SubjectID,
		fmt.Sprintf("Saved %d generated questions", len(ids)), map[string]interface{}{"source": "ai"})
	s.events.emit(ctx, events.EventQuestionsImported, events.QuestionsImportedEvent{
		SubjectID:   req.SubjectID,
		QuestionIDs: ids,
		ActorID:     p.UserID,
		Source:      "ai",
	})
	return out, nil
}

func (s *questionService) GetByID(ctx context.Context, p *auth.Principal, id string) (*QuestionResponse, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	question, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	return newQuestionResponse(question), nil
}

func (s *questionService) List(ctx context.Context, p *auth.Principal, filters repositories.QuestionFilters) ([]*QuestionResponse, int64, error) {
	if p == nil {
		return nil, 0, ErrUnauthorized
	}
	if filters.SortOrder == "" {
		filters.SortOrder = "desc"
	}
	questions, total, err := s.repo.Question().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}
	out := make([]*QuestionResponse, len(questions))
	for i, q := range questions {
		out[i] = newQuestionResponse(q)
	}
	return out, total, nil
}

func (s *questionService) UpdateContent(ctx context.Context, p *auth.Principal, id string, doc document.Document) (_ *QuestionResponse, err error) {
	op := s.logger.WithOperation(ctx, "update_question_content", principalID(p))
	defer func() { op.LogResult(id, "question", err) }()

	if err = s.validator.Question().ValidateContent(doc); err != nil {
		return nil, err
	}
	question, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = requireAuthor(ctx, s.repo, p, question.SubjectID); err != nil {
		return nil, err
	}
	if err = s.repo.Question().UpdateContent(ctx, id, doc); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.audit.record(ctx, p, models.AuditQuestionUpdated, "question", id, "Updated question content", nil)
	s.events.emit(ctx, events.EventQuestionUpdated, events.QuestionEvent{
		QuestionID: id, SubjectID: question.SubjectID, CourseOutcomeID: question.CourseOutcomeID, ActorID: p.UserID,
	})
	return s.GetByID(ctx, p, id)
}

func (s *questionService) UpdateCourseOutcome(ctx context.Context, p *auth.Principal, id string, req *UpdateCourseOutcomeAssignmentRequest) (_ *QuestionResponse, err error) {
	op := s.logger.WithOperation(ctx, "update_question_course_outcome", principalID(p))
	defer func() { op.LogResult(id, "question", err) }()

	question, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = requireAuthor(ctx, s.repo, p, question.SubjectID); err != nil {
		return nil, err
	}

	var coID *string
	if trimmed := strings.TrimSpace(req.CourseOutcomeID); trimmed != "" {
		if coID, err = s.checkCourseOutcome(ctx, question.SubjectID, &trimmed); err != nil {
			return nil, err
		}
	}
	if err = s.repo.Question().UpdateCourseOutcome(ctx, id, coID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to update course outcome: %w", err)
	}

	op.LogAudit(AuditEventUpdate, id, "question", question.CourseOutcomeID, coID)
	s.audit.record(ctx, p, models.AuditQuestionUpdated, "question", id, "Updated question course outcome", nil)
	return s.GetByID(ctx, p, id)
}

func (s *questionService) Delete(ctx context.Context, p *auth.Principal, id string) (err error) {
	op := s.logger.WithOperation(ctx, "delete_question", principalID(p))
	defer func() { op.LogResult(id, "question", err) }()

	if err = requireAdmin(p, "question", id, "delete"); err != nil {
		return err
	}
	question, err := s.getQuestion(ctx, id)
	if err != nil {
		return err
	}
	if err = s.repo.Question().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}

	op.LogAudit(AuditEventDelete, id, "question", question.SubjectID, nil)
	s.audit.record(ctx, p, models.AuditQuestionDeleted, "question", id, "Deleted question",
		map[string]interface{}{"subjectId": question.SubjectID})
	s.events.emit(ctx, events.EventQuestionDeleted, events.QuestionEvent{
		QuestionID: id, SubjectID: question.SubjectID, ActorID: p.UserID,
	})
	return nil
}

func (s *questionService) getQuestion(ctx context.Context, id string) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

// checkCourseOutcome confirms that a referenced outcome exists and belongs
// to the subject. A nil or empty reference is returned as nil.
func (s *questionService) checkCourseOutcome(ctx context.Context, subjectID string, coID *string) (*string, error) {
	if coID == nil || *coID == "" {
		return nil, nil
	}
	co, err := s.repo.CourseOutcome().GetByID(ctx, *coID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrCourseOutcomeNotFound, *coID)
		}
		return nil, fmt.Errorf("failed to get course outcome: %w", err)
	}
	if co.SubjectID != subjectID {
		return nil, fmt.Errorf("%w: %s", ErrCourseOutcomeMismatch, co.Code)
	}
	id := co.ID
	return &id, nil
}
