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

type CreateSubjectRequest struct {
	Code         string `json:"code" validate:"required,max=20"`
	Name         string `json:"name" validate:"required,max=200"`
	Semester     int    `json:"semester" validate:"required,min=1,max=8"`
	AcademicYear string `json:"academicYear" validate:"required,academic_year"`
}

type SubjectResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Semester     int    `json:"semester"`
	AcademicYear string `json:"academicYear"`
	Label        string `json:"label"`
}

func newSubjectResponse(s *models.Subject) *SubjectResponse {
	return &SubjectResponse{
		ID:           s.ID,
		Code:         s.Code,
		Name:         s.Name,
		Semester:     s.Semester,
		AcademicYear: s.AcademicYear,
		Label:        s.Label(),
	}
}

type SubjectService interface {
	Create(ctx context.Context, p *auth.Principal, req *CreateSubjectRequest) (*SubjectResponse, error)
	GetByID(ctx context.Context, id string) (*SubjectResponse, error)
	List(ctx context.Context, filters repositories.SubjectFilters) ([]*SubjectResponse, int64, error)
}

type subjectService struct {
	repo      repositories.Repository
	logger    *ServiceLogger
	audit     auditRecorder
	validator *validator.Validator
}

func NewSubjectService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) SubjectService {
	return &subjectService{
		repo:      repo,
		logger:    NewServiceLogger(logger, LogConfig{Service: "subject", Component: "service"}),
		audit:     auditRecorder{repo: repo, logger: logger},
		validator: validator,
	}
}

func (s *subjectService) Create(ctx context.Context, p *auth.Principal, req *CreateSubjectRequest) (_ *SubjectResponse, err error) {
	op := s.logger.WithOperation(ctx, "create_subject", principalID(p))
	var subject *models.Subject
	defer func() {
		id := ""
		if subject != nil {
			id = subject.ID
		}
		op.LogResult(id, "subject", err)
	}()

	if err = requireAdmin(p, "subject", "", "create"); err != nil {
		return nil, err
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.Subject().ExistsByTerm(ctx, req.Code, req.Semester, req.AcademicYear)
	if err != nil {
		return nil, fmt.Errorf("failed to check subject: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s semester %d %s", ErrSubjectExists, req.Code, req.Semester, req.AcademicYear)
	}

	subject = &models.Subject{
		Code:         req.Code,
		Name:         req.Name,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
	}
	if err = s.repo.Subject().Create(ctx, subject); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrSubjectExists
		}
		return nil, fmt.Errorf("failed to create subject: %w", err)
	}

	op.LogAudit(AuditEventCreate, subject.ID, "subject", nil, subject.Label())
	s.audit.record(ctx, p, models.AuditSubjectCreated, "subject", subject.ID, "Created subject "+subject.Label(), nil)
	return newSubjectResponse(subject), nil
}

func (s *subjectService) GetByID(ctx context.Context, id string) (*SubjectResponse, error) {
	subject, err := loadSubject(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return newSubjectResponse(subject), nil
}

func (s *subjectService) List(ctx context.Context, filters repositories.SubjectFilters) ([]*SubjectResponse, int64, error) {
	subjects, total, err := s.repo.Subject().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subjects: %w", err)
	}
	out := make([]*SubjectResponse, len(subjects))
	for i, subject := range subjects {
		out[i] = newSubjectResponse(subject)
	}
	return out, total, nil
}
