package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/events"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/SAP-F-2025/qpaper-service/internal/validator"
)

type UpdateFacultyRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=100"`
	Designation    *string `json:"designation" validate:"omitempty,max=100"`
	Department     *string `json:"department" validate:"omitempty,max=100"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,max=500"`
}

type AssignSubjectRequest struct {
	SubjectID string `json:"subjectId" validate:"required"`
}

type FacultyResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Role           string   `json:"role"`
	Designation    *string  `json:"designation"`
	Department     *string  `json:"department"`
	ProfilePicture *string  `json:"profilePicture"`
	IsApproved     bool     `json:"isApproved"`
	Subjects       []string `json:"subjects"`
}

func newFacultyResponse(u *models.User, subjects []*models.Subject) *FacultyResponse {
	labels := make([]string, 0, len(subjects))
	for _, s := range subjects {
		labels = append(labels, s.Label())
	}
	return &FacultyResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           string(u.Role),
		Designation:    u.Designation,
		Department:     u.Department,
		ProfilePicture: u.ProfilePicture,
		IsApproved:     u.IsApproved,
		Subjects:       labels,
	}
}

type AssignResult struct {
	AlreadyAssigned bool             `json:"alreadyAssigned"`
	Subject         *SubjectResponse `json:"subject"`
}

type FacultyService interface {
	auth.Resolver

	List(ctx context.Context, p *auth.Principal, filters repositories.UserFilters) ([]*FacultyResponse, int64, error)
	Approve(ctx context.Context, p *auth.Principal, id string) error
	// Deny removes a pending faculty account.
	Deny(ctx context.Context, p *auth.Principal, id string) error
	Update(ctx context.Context, p *auth.Principal, id string, req *UpdateFacultyRequest) (*FacultyResponse, error)
	Delete(ctx context.Context, p *auth.Principal, id string) error
	AssignSubject(ctx context.Context, p *auth.Principal, facultyID string, req *AssignSubjectRequest) (*AssignResult, error)
	MySubjects(ctx context.Context, p *auth.Principal) ([]*SubjectResponse, error)
	Profile(ctx context.Context, p *auth.Principal) (*FacultyResponse, error)
}

type facultyService struct {
	repo      repositories.Repository
	logger    *ServiceLogger
	audit     auditRecorder
	events    eventEmitter
	validator *validator.Validator
}

func NewFacultyService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) FacultyService {
	return &facultyService{
		repo:      repo,
		logger:    NewServiceLogger(logger, LogConfig{Service: "faculty", Component: "service"}),
		audit:     auditRecorder{repo: repo, logger: logger},
		events:    eventEmitter{publisher: publisher, logger: logger},
		validator: validator,
	}
}

// Resolve maps a verified token identity onto the local account, creating
// it on first sight. New faculty accounts start unapproved; the role a
// token claims is only honoured when the account is created.
func (s *facultyService) Resolve(ctx context.Context, identity *auth.Identity) (*auth.Principal, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, auth.ErrInvalidToken
	}

	user, err := s.repo.User().GetByEmail(ctx, email)
	switch {
	case err == nil:
	case repositories.IsNotFoundError(err):
		if user, err = s.register(ctx, email, identity); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	return &auth.Principal{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
		Approved: user.IsApproved,
	}, nil
}

func (s *facultyService) register(ctx context.Context, email string, identity *auth.Identity) (*models.User, error) {
	role := identity.Role
	if !role.Valid() {
		role = models.RoleFaculty
	}
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = email
	}
	user := &models.User{
		Name:       name,
		Email:      email,
		Role:       role,
		IsApproved: role == models.RoleAdmin,
	}
	if identity.Avatar != "" {
		avatar := identity.Avatar
		user.ProfilePicture = &avatar
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	s.logger.logger.InfoContext(ctx, "Registered user from token", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *facultyService) List(ctx context.Context, p *auth.Principal, filters repositories.UserFilters) ([]*FacultyResponse, int64, error) {
	if err := requireAdmin(p, "faculty", "", "list"); err != nil {
		return nil, 0, err
	}

	users, total, err := s.repo.User().GetByRole(ctx, models.RoleFaculty, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list faculty: %w", err)
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	subjects, err := s.repo.FacultySubject().GetSubjectsByFaculty(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load faculty subjects: %w", err)
	}

	out := make([]*FacultyResponse, len(users))
	for i, u := range users {
		out[i] = newFacultyResponse(u, subjects[u.ID])
	}
	return out, total, nil
}

func (s *facultyService) Approve(ctx context.Context, p *auth.Principal, id string) (err error) {
	op := s.logger.WithOperation(ctx, "approve_faculty", principalID(p))
	defer func() { op.LogResult(id, "user", err) }()

	if err = requireAdmin(p, "faculty", id, "approve"); err != nil {
		return err
	}
	if _, err = s.getFaculty(ctx, id); err != nil {
		return err
	}
	if err = s.repo.User().SetApproved(ctx, id, true); err != nil {
		return fmt.Errorf("failed to approve faculty: %w", err)
	}

	op.LogAudit(AuditEventUpdate, id, "user", false, true)
	s.audit.record(ctx, p, models.AuditFacultyApproved, "user", id, "Approved faculty account", nil)
	s.events.emit(ctx, events.EventFacultyApproved, events.FacultyEvent{FacultyID: id, ActorID: p.UserID})
	return nil
}

func (s *facultyService) Deny(ctx context.Context, p *auth.Principal, id string) (err error) {
	op := s.logger.WithOperation(ctx, "deny_faculty", principalID(p))
	defer func() { op.LogResult(id, "user", err) }()

	if err = requireAdmin(p, "faculty", id, "deny"); err != nil {
		return err
	}
	user, err := s.getFaculty(ctx, id)
	if err != nil {
		return err
	}
	if user.IsApproved {
		return NewBusinessRuleError("deny_pending_only", "only pending accounts can be denied",
			map[string]interface{}{"user_id": id})
	}
	if err = s.repo.User().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to deny faculty: %w", err)
	}

	s.audit.record(ctx, p, models.AuditFacultyDenied, "user", id, "Denied faculty registration for "+user.Email, nil)
	return nil
}

func (s *facultyService) Update(ctx context.Context, p *auth.Principal, id string, req *UpdateFacultyRequest) (_ *FacultyResponse, err error) {
	op := s.logger.WithOperation(ctx, "update_faculty", principalID(p))
	defer func() { op.LogResult(id, "user", err) }()

	if p == nil {
		return nil, ErrUnauthorized
	}
	if !p.IsAdmin() && p.UserID != id {
		return nil, NewPermissionError(p.UserID, id, "faculty", "update", "can only update own profile")
	}
	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Designation != nil {
		user.Designation = req.Designation
	}
	if req.Department != nil {
		user.Department = req.Department
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = req.ProfilePicture
	}
	if err = s.repo.User().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update faculty: %w", err)
	}

	subjects, err := s.repo.FacultySubject().GetSubjects(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load faculty subjects: %w", err)
	}
	return newFacultyResponse(user, subjects), nil
}

func (s *facultyService) Delete(ctx context.Context, p *auth.Principal, id string) (err error) {
	op := s.logger.WithOperation(ctx, "delete_faculty", principalID(p))
	defer func() { op.LogResult(id, "user", err) }()

	if err = requireAdmin(p, "faculty", id, "delete"); err != nil {
		return err
	}
	if p.UserID == id {
		return NewBusinessRuleError("no_self_delete", "admins cannot delete their own account", nil)
	}
	user, err := s.getFaculty(ctx, id)
	if err != nil {
		return err
	}
	if err = s.repo.User().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete faculty: %w", err)
	}

	op.LogAudit(AuditEventDelete, id, "user", user.Email, nil)
	s.audit.record(ctx, p, models.AuditFacultyDeleted, "user", id, "Deleted faculty "+user.Email, nil)
	return nil
}

func (s *facultyService) AssignSubject(ctx context.Context, p *auth.Principal, facultyID string, req *AssignSubjectRequest) (_ *AssignResult, err error) {
	op := s.logger.WithOperation(ctx, "assign_subject", principalID(p))
	defer func() { op.LogResult(facultyID, "user", err) }()

	if err = requireAdmin(p, "faculty", facultyID, "assign_subject"); err != nil {
		return nil, err
	}
	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err = s.getFaculty(ctx, facultyID); err != nil {
		return nil, err
	}
	subject, err := loadSubject(ctx, s.repo, req.SubjectID)
	if err != nil {
		return nil, err
	}

	assigned, err := s.repo.FacultySubject().IsAssigned(ctx, facultyID, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check assignment: %w", err)
	}
	result := &AssignResult{AlreadyAssigned: assigned, Subject: newSubjectResponse(subject)}
	if assigned {
		return result, nil
	}

	assignedBy := p.UserID
	if err = s.repo.FacultySubject().Assign(ctx, &models.FacultySubject{
		FacultyID:  facultyID,
		SubjectID:  subject.ID,
		AssignedBy: &assignedBy,
	}); err != nil {
		if repositories.IsDuplicateError(err) {
			result.AlreadyAssigned = true
			return result, nil
		}
		return nil, fmt.Errorf("failed to assign subject: %w", err)
	}

	s.audit.record(ctx, p, models.AuditSubjectAssigned, "user", facultyID, "Assigned "+subject.Label(),
		map[string]interface{}{"subjectId": subject.ID})
	s.events.emit(ctx, events.EventSubjectAssigned, events.FacultyEvent{FacultyID: facultyID, SubjectID: subject.ID, ActorID: p.UserID})
	return result, nil
}

func (s *facultyService) MySubjects(ctx context.Context, p *auth.Principal) ([]*SubjectResponse, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	subjects, err := s.repo.FacultySubject().GetSubjects(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subjects: %w", err)
	}
	out := make([]*SubjectResponse, len(subjects))
	for i, subject := range subjects {
		out[i] = newSubjectResponse(subject)
	}
	return out, nil
}

func (s *facultyService) Profile(ctx context.Context, p *auth.Principal) (*FacultyResponse, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	user, err := s.getUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.repo.FacultySubject().GetSubjects(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subjects: %w", err)
	}
	return newFacultyResponse(user, subjects), nil
}

func (s *facultyService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// getFaculty is getUser restricted to faculty accounts; admin accounts are
// not managed through the faculty endpoints.
func (s *facultyService) getFaculty(ctx context.Context, id string) (*models.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleFaculty {
		return nil, fmt.Errorf("%w: %s", ErrNotFacultyMember, id)
	}
	return user, nil
}
