package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/cache"
	"github.com/SAP-F-2025/qpaper-service/internal/composer"
	"github.com/SAP-F-2025/qpaper-service/internal/events"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/SAP-F-2025/qpaper-service/internal/validator"
	"github.com/google/uuid"
)

const (
	draftKeyPrefix  = "paper:draft:"
	defaultDraftTTL = 24 * time.Hour
)

type ComposePaperRequest struct {
	SubjectID           string           `json:"subjectId" validate:"required"`
	SelectedQuestionIDs []string         `json:"selectedQuestionIds" validate:"required,min=1,max=200,dive,required"`
	Header              *composer.Header `json:"header"`
}

type MoveEntryRequest struct {
	Index     int                `json:"index" validate:"min=0"`
	Direction composer.Direction `json:"direction" validate:"required,oneof=up down"`
}

type UpdateHeaderRequest struct {
	Title        string `json:"title" validate:"max=200"`
	SubjectLabel string `json:"subjectLabel" validate:"max=250"`
	Duration     string `json:"duration" validate:"max=50"`
	MaxMarks     string `json:"maxMarks" validate:"max=10"`
}

type PaperResponse struct {
	ID         string           `json:"id"`
	SubjectID  string           `json:"subjectId"`
	Header     composer.Header  `json:"header"`
	Entries    []composer.Entry `json:"entries"`
	TotalMarks int              `json:"totalMarks"`
	State      composer.State   `json:"state"`
	ExpiresAt  time.Time        `json:"expiresAt"`
}

// ExcelFile is a generated workbook ready to be sent as an attachment.
type ExcelFile struct {
	Name string
	Data []byte
}

type PaperService interface {
	// Compose builds a draft from the selected questions in selection order.
	Compose(ctx context.Context, p *auth.Principal, req *ComposePaperRequest) (*PaperResponse, error)
	Get(ctx context.Context, p *auth.Principal, id string) (*PaperResponse, error)
	Move(ctx context.Context, p *auth.Principal, id string, req *MoveEntryRequest) (*PaperResponse, error)
	Remove(ctx context.Context, p *auth.Principal, id string, index int) (*PaperResponse, error)
	UpdateHeader(ctx context.Context, p *auth.Principal, id string, req *UpdateHeaderRequest) (*PaperResponse, error)
	// Print renders the draft for the browser print pipeline. The draft is
	// left unchanged.
	Print(ctx context.Context, p *auth.Principal, id string) (*composer.PrintJob, error)
	ExportExcel(ctx context.Context, p *auth.Principal, id string) (*ExcelFile, error)
	Discard(ctx context.Context, p *auth.Principal, id string) error
}

// storedDraft is the cached form of a draft. Drafts are working state and
// never reach the database.
type storedDraft struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	SubjectID string          `json:"subjectId"`
	Draft     *composer.Draft `json:"draft"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func (d *storedDraft) response() *PaperResponse {
	return &PaperResponse{
		ID:         d.ID,
		SubjectID:  d.SubjectID,
		Header:     d.Draft.Header(),
		Entries:    d.Draft.Entries(),
		TotalMarks: d.Draft.TotalMarks(),
		State:      d.Draft.State(),
		ExpiresAt:  d.ExpiresAt,
	}
}

type paperService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	ttl       time.Duration
	logger    *ServiceLogger
	audit     auditRecorder
	events    eventEmitter
	validator *validator.Validator
	now       func() time.Time
}

func NewPaperService(repo repositories.Repository, cache cache.CacheService, publisher events.EventPublisher, ttl time.Duration, logger *slog.Logger, validator *validator.Validator) PaperService {
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}
	return &paperService{
		repo:      repo,
		cache:     cache,
		ttl:       ttl,
		logger:    NewServiceLogger(logger, LogConfig{Service: "paper", Component: "service"}),
		audit:     auditRecorder{repo: repo, logger: logger},
		events:    eventEmitter{publisher: publisher, logger: logger},
		validator: validator,
		now:       time.Now,
	}
}

func (s *paperService) Compose(ctx context.Context, p *auth.Principal, req *ComposePaperRequest) (_ *PaperResponse, err error) {
	op := s.logger.WithOperation(ctx, "compose_paper", principalID(p))
	var stored *storedDraft
	defer func() {
		id := ""
		if stored != nil {
			id = stored.ID
		}
		op.LogResult(id, "paper", err)
	}()

	if p == nil {
		return nil, ErrUnauthorized
	}
	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}
	subject, err := loadSubject(ctx, s.repo, req.SubjectID)
	if err != nil {
		return nil, err
	}

	found, err := s.repo.Question().GetByIDs(ctx, req.SelectedQuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	if missing := missingIDs(req.SelectedQuestionIDs, found); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, strings.Join(missing, ", "))
	}

	questions := make([]composer.Question, 0, len(found))
	for _, q := range found {
		if q.SubjectID != subject.ID {
			return nil, ValidationErrors{{
				Field:   "selectedQuestionIds",
				Message: "question belongs to another subject",
				Value:   q.ID,
				Rule:    "subject",
			}}
		}
		questions = append(questions, toComposerQuestion(q))
	}

	header := composer.Header{SubjectLabel: subject.Label()}
	if req.Header != nil {
		header = *req.Header
		if header.SubjectLabel == "" {
			header.SubjectLabel = subject.Label()
		}
	}

	stored = &storedDraft{
		ID:        uuid.NewString(),
		OwnerID:   p.UserID,
		SubjectID: subject.ID,
		Draft:     composer.NewDraft(header, questions),
	}
	if err = s.save(ctx, stored); err != nil {
		return nil, err
	}

	s.events.emit(ctx, events.EventPaperComposed, s.paperEvent(stored, "", p))
	return stored.response(), nil
}

func (s *paperService) Get(ctx context.Context, p *auth.Principal, id string) (*PaperResponse, error) {
	stored, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return stored.response(), nil
}

func (s *paperService) Move(ctx context.Context, p *auth.Principal, id string, req *MoveEntryRequest) (*PaperResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return s.update(ctx, p, id, func(d *composer.Draft) error {
		return d.MoveEntry(req.Index, req.Direction)
	})
}

func (s *paperService) Remove(ctx context.Context, p *auth.Principal, id string, index int) (*PaperResponse, error) {
	return s.update(ctx, p, id, func(d *composer.Draft) error {
		return d.RemoveEntry(index)
	})
}

func (s *paperService) UpdateHeader(ctx context.Context, p *auth.Principal, id string, req *UpdateHeaderRequest) (*PaperResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return s.update(ctx, p, id, func(d *composer.Draft) error {
		d.SetHeader(composer.Header{
			Title:        strings.TrimSpace(req.Title),
			SubjectLabel: strings.TrimSpace(req.SubjectLabel),
			Duration:     strings.TrimSpace(req.Duration),
			MaxMarks:     strings.TrimSpace(req.MaxMarks),
		})
		return nil
	})
}

func (s *paperService) Print(ctx context.Context, p *auth.Principal, id string) (_ *composer.PrintJob, err error) {
	op := s.logger.WithOperation(ctx, "print_paper", principalID(p))
	defer func() { op.LogResult(id, "paper", err) }()

	stored, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	job, err := stored.Draft.Export(ctx, &composer.BufferPrinter{})
	if err != nil {
		return nil, err
	}

	s.exported(ctx, p, stored, "html")
	return &job, nil
}

func (s *paperService) ExportExcel(ctx context.Context, p *auth.Principal, id string) (_ *ExcelFile, err error) {
	op := s.logger.WithOperation(ctx, "export_paper_excel", principalID(p))
	defer func() { op.LogResult(id, "paper", err) }()

	stored, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	data, err := stored.Draft.ExportExcel()
	if err != nil {
		return nil, err
	}

	s.exported(ctx, p, stored, "xlsx")
	return &ExcelFile{Name: fileSafe(stored.Draft.Header().Title) + ".xlsx", Data: data}, nil
}

func (s *paperService) Discard(ctx context.Context, p *auth.Principal, id string) error {
	if _, err := s.load(ctx, p, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, draftKeyPrefix+id); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	return nil
}

func (s *paperService) update(ctx context.Context, p *auth.Principal, id string, fn func(*composer.Draft) error) (*PaperResponse, error) {
	stored, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := fn(stored.Draft); err != nil {
		return nil, err
	}
	if err := s.save(ctx, stored); err != nil {
		return nil, err
	}
	return stored.response(), nil
}

func (s *paperService) load(ctx context.Context, p *auth.Principal, id string) (*storedDraft, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	var stored storedDraft
	if err := s.cache.Get(ctx, draftKeyPrefix+id, &stored); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if stored.Draft == nil {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	if stored.OwnerID != p.UserID && !p.IsAdmin() {
		return nil, NewPermissionError(p.UserID, id, "paper", "access", "draft belongs to another user")
	}
	return &stored, nil
}

// save refreshes the expiry on every write, so a draft lives for the TTL
// after its last edit.
func (s *paperService) save(ctx context.Context, d *storedDraft) error {
	d.ExpiresAt = s.now().Add(s.ttl).UTC()
	if err := s.cache.Set(ctx, draftKeyPrefix+d.ID, d, s.ttl); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

func (s *paperService) exported(ctx context.Context, p *auth.Principal, d *storedDraft, format string) {
	s.audit.record(ctx, p, models.AuditPaperExported, "paper", d.ID,
		fmt.Sprintf("Exported %q as %s", d.Draft.Header().Title, format),
		map[string]interface{}{"subjectId": d.SubjectID, "questions": d.Draft.Len()})
	s.events.emit(ctx, events.EventPaperExported, s.paperEvent(d, format, p))
}

func (s *paperService) paperEvent(d *storedDraft, format string, p *auth.Principal) events.PaperEvent {
	return events.PaperEvent{
		DraftID:     d.ID,
		SubjectID:   d.SubjectID,
		Title:       d.Draft.Header().Title,
		QuestionIDs: d.Draft.QuestionIDs(),
		TotalMarks:  d.Draft.TotalMarks(),
		Format:      format,
		ActorID:     p.UserID,
	}
}

func toComposerQuestion(q *models.Question) composer.Question {
	cq := composer.Question{
		ID:         q.ID,
		Marks:      q.Marks,
		Difficulty: string(q.Difficulty),
		Content:    q.Document(),
	}
	if q.CourseOutcome != nil {
		cq.CourseOutcome = q.CourseOutcome.Code
	}
	return cq
}

func missingIDs(want []string, found []*models.Question) []string {
	have := make(map[string]struct{}, len(found))
	for _, q := range found {
		have[q.ID] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// fileSafe turns a paper title into an attachment file name.
func fileSafe(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, title)
	if name == "" {
		return "paper"
	}
	return name
}
