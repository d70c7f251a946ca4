package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/SAP-F-2025/qpaper-service/internal/validator"
)

type SaveCourseOutcomeRequest struct {
	CoCode      string `json:"coCode" validate:"required,co_code"`
	Description string `json:"description" validate:"max=2000"`
}

type UpdateCourseOutcomeRequest struct {
	Description string `json:"description" validate:"max=2000"`
}

type CourseOutcomeService interface {
	// Save creates the outcomes of a subject, or updates the description of
	// an outcome whose code already exists. All rows are written or none.
	Save(ctx context.Context, p *auth.Principal, subjectID string, reqs []SaveCourseOutcomeRequest) ([]*models.CourseOutcome, error)
	ListBySubject(ctx context.Context, subjectID string) ([]*models.CourseOutcome, error)
	Update(ctx context.Context, p *auth.Principal, id string, req *UpdateCourseOutcomeRequest) (*models.CourseOutcome, error)
	// Delete removes an outcome; questions tagged with it become untagged.
	Delete(ctx context.Context, p *auth.Principal, id string) error
}

type courseOutcomeService struct {
	repo      repositories.Repository
	logger    *ServiceLogger
	audit     auditRecorder
	validator *validator.Validator
}

func NewCourseOutcomeService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) CourseOutcomeService {
	return &courseOutcomeService{
		repo:      repo,
		logger:    NewServiceLogger(logger, LogConfig{Service: "course_outcome", Component: "service"}),
		audit:     auditRecorder{repo: repo, logger: logger},
		validator: validator,
	}
}

func (s *courseOutcomeService) Save(ctx context.Context, p *auth.Principal, subjectID string, reqs []SaveCourseOutcomeRequest) (_ []*models.CourseOutcome, err error) {
	op := s.logger.WithOperation(ctx, "save_course_outcomes", principalID(p))
	defer func() { op.LogResult(subjectID, "subject", err) }()

	if err = requireAdmin(p, "subject", subjectID, "save_course_outcomes"); err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, ValidationErrors{{Field: "courseOutcomes", Message: "is required", Rule: "required"}}
	}

	seen := make(map[string]struct{}, len(reqs))
	for i := range reqs {
		reqs[i].CoCode = strings.ToUpper(strings.TrimSpace(reqs[i].CoCode))
		reqs[i].Description = strings.TrimSpace(reqs[i].Description)
		if err = s.validator.Validate(&reqs[i]); err != nil {
			return nil, err
		}
		if _, dup := seen[reqs[i].CoCode]; dup {
			return nil, ValidationErrors{{Field: "coCode", Message: "is repeated in the request", Value: reqs[i].CoCode, Rule: "unique"}}
		}
		seen[reqs[i].CoCode] = struct{}{}
	}

	if _, err = loadSubject(ctx, s.repo, subjectID); err != nil {
		return nil, err
	}

	saved := make([]*models.CourseOutcome, 0, len(reqs))
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		for _, req := range reqs {
			existing, err := tx.CourseOutcome().GetByCode(ctx, subjectID, req.CoCode)
			switch {
			case err == nil:
				if err := tx.CourseOutcome().UpdateDescription(ctx, existing.ID, req.Description); err != nil {
					return fmt.Errorf("failed to update course outcome %s: %w", req.CoCode, err)
				}
				existing.Description = req.Description
				saved = append(saved, existing)
			case repositories.IsNotFoundError(err):
				co := &models.CourseOutcome{SubjectID: subjectID, Code: req.CoCode, Description: req.Description}
				if err := tx.CourseOutcome().Create(ctx, co); err != nil {
					if repositories.IsDuplicateError(err) {
						return fmt.Errorf("%w: %s", ErrCourseOutcomeExists, req.CoCode)
					}
					return fmt.Errorf("failed to create course outcome %s: %w", req.CoCode, err)
				}
				saved = append(saved, co)
			default:
				return fmt.Errorf("failed to look up course outcome %s: %w", req.CoCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	codes := make([]interface{}, len(saved))
	for i, co := range saved {
		codes[i] = co.Code
	}
	s.audit.record(ctx, p, models.AuditCourseOutcomeSaved, "subject", subjectID,
		fmt.Sprintf("Saved %d course outcomes", len(saved)), map[string]interface{}{"codes": codes})
	return saved, nil
}

func (s *courseOutcomeService) ListBySubject(ctx context.Context, subjectID string) ([]*models.CourseOutcome, error) {
	if _, err := loadSubject(ctx, s.repo, subjectID); err != nil {
		return nil, err
	}
	cos, err := s.repo.CourseOutcome().ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list course outcomes: %w", err)
	}
	return cos, nil
}

func (s *courseOutcomeService) Update(ctx context.Context, p *auth.Principal, id string, req *UpdateCourseOutcomeRequest) (_ *models.CourseOutcome, err error) {
	op := s.logger.WithOperation(ctx, "update_course_outcome", principalID(p))
	defer func() { op.LogResult(id, "course_outcome", err) }()

	if err = requireAdmin(p, "course_outcome", id, "update"); err != nil {
		return nil, err
	}
	req.Description = strings.TrimSpace(req.Description)
	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}

	co, err := s.getCourseOutcome(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = s.repo.CourseOutcome().UpdateDescription(ctx, id, req.Description); err != nil {
		return nil, fmt.Errorf("failed to update course outcome: %w", err)
	}
	old := co.Description
	co.Description = req.Description

	op.LogAudit(AuditEventUpdate, id, "course_outcome", old, co.Description)
	s.audit.record(ctx, p, models.AuditCourseOutcomeSaved, "course_outcome", id, "Updated "+co.Code, nil)
	return co, nil
}

func (s *courseOutcomeService) Delete(ctx context.Context, p *auth.Principal, id string) (err error) {
	op := s.logger.WithOperation(ctx, "delete_course_outcome", principalID(p))
	defer func() { op.LogResult(id, "course_outcome", err) }()

	if err = requireAdmin(p, "course_outcome", id, "delete"); err != nil {
		return err
	}
	co, err := s.getCourseOutcome(ctx, id)
	if err != nil {
		return err
	}
	if err = s.repo.CourseOutcome().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCourseOutcomeNotFound
		}
		return fmt.Errorf("failed to delete course outcome: %w", err)
	}

	op.LogAudit(AuditEventDelete, id, "course_outcome", co.Code, nil)
	s.audit.record(ctx, p, models.AuditCourseOutcomeDelete, "course_outcome", id, "Deleted "+co.Code,
		map[string]interface{}{"subjectId": co.SubjectID})
	return nil
}

func (s *courseOutcomeService) getCourseOutcome(ctx context.Context, id string) (*models.CourseOutcome, error) {
	co, err := s.repo.CourseOutcome().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrCourseOutcomeNotFound, id)
		}
		return nil, fmt.Errorf("failed to get course outcome: %w", err)
	}
	return co, nil
}
