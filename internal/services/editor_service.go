package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/document"
	"github.com/SAP-F-2025/qpaper-service/internal/editor"
)

type OpenEditorRequest struct {
	// QuestionID loads a stored question; empty starts a new one.
	QuestionID string `json:"questionId"`
	// EditorData seeds a new question. Ignored when QuestionID is set.
	EditorData *document.Document `json:"editorData"`
}

type InsertBlockRequest struct {
	Index int               `json:"index" validate:"min=0"`
	Block document.RawBlock `json:"block"`
}

type MoveBlockRequest struct {
	From int `json:"from" validate:"min=0"`
	To   int `json:"to" validate:"min=0"`
}

type EditMathRequest struct {
	Index int    `json:"index" validate:"min=0"`
	Input string `json:"input"`
}

type SetAlignmentRequest struct {
	Index     int                `json:"index" validate:"min=0"`
	Alignment document.Alignment `json:"alignment" validate:"required,oneof=left center right"`
}

// CommitRequest carries the metadata needed when a session for a new
// question is committed. It is ignored for sessions editing a stored one.
// Fields are validated as a CreateQuestionRequest.
type CommitRequest struct {
	SubjectID       string  `json:"subjectId"`
	CourseOutcomeID *string `json:"courseOutcomeId"`
	Marks           int     `json:"marks"`
	Difficulty      string  `json:"difficulty"`
}

type EditorSessionResponse struct {
	ID         string            `json:"id"`
	QuestionID string            `json:"questionId,omitempty"`
	EditorData document.Document `json:"editorData"`
}

type EditorService interface {
	Open(ctx context.Context, p *auth.Principal, req *OpenEditorRequest) (*EditorSessionResponse, error)
	Get(ctx context.Context, p *auth.Principal, id string) (*EditorSessionResponse, error)
	InsertBlock(ctx context.Context, p *auth.Principal, id string, req *InsertBlockRequest) (*EditorSessionResponse, error)
	RemoveBlock(ctx context.Context, p *auth.Principal, id string, index int) (*EditorSessionResponse, error)
	MoveBlock(ctx context.Context, p *auth.Principal, id string, req *MoveBlockRequest) (*EditorSessionResponse, error)
	EditMath(ctx context.Context, p *auth.Principal, id string, req *EditMathRequest) (*EditorSessionResponse, error)
	SetAlignment(ctx context.Context, p *auth.Principal, id string, req *SetAlignmentRequest) (*EditorSessionResponse, error)
	InsertImage(ctx context.Context, p *auth.Principal, id string, index int, file editor.File, caption string) (*EditorSessionResponse, error)
	Clear(ctx context.Context, p *auth.Principal, id string) (*EditorSessionResponse, error)
	// Commit saves the session content into its question, creating the
	// question when the session started empty. The session stays open.
	Commit(ctx context.Context, p *auth.Principal, id string, req *CommitRequest) (*QuestionResponse, error)
	Close(ctx context.Context, p *auth.Principal, id string) error
}

type editorService struct {
	sessions  *editor.Manager
	questions QuestionService
	logger    *ServiceLogger
}

func NewEditorService(sessions *editor.Manager, questions QuestionService, logger *slog.Logger) EditorService {
	if sessions == nil {
		sessions = editor.NewManager(editor.InlineUploader{}, 0, logger)
	}
	return &editorService{
		sessions:  sessions,
		questions: questions,
		logger:    NewServiceLogger(logger, LogConfig{Service: "editor", Component: "service"}),
	}
}

func (s *editorService) Open(ctx context.Context, p *auth.Principal, req *OpenEditorRequest) (_ *EditorSessionResponse, err error) {
	op := s.logger.WithOperation(ctx, "open_editor", principalID(p))
	defer func() { op.LogResult(req.QuestionID, "question", err) }()

	if p == nil {
		return nil, ErrUnauthorized
	}
	initial := req.EditorData
	if req.QuestionID != "" {
		q, err := s.questions.GetByID(ctx, p, req.QuestionID)
		if err != nil {
			return nil, err
		}
		initial = &q.EditorData
	}

	session, err := s.sessions.OpenFor(ctx, initial, editor.Owner{UserID: p.UserID, QuestionID: req.QuestionID})
	if err != nil {
		return nil, invalidInput(err)
	}
	return s.respond(session.ID(), req.QuestionID, session.Document()), nil
}

func (s *editorService) Get(ctx context.Context, p *auth.Principal, id string) (*EditorSessionResponse, error) {
	owner, err := s.authorize(p, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.sessions.Save(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(id, owner.QuestionID, doc), nil
}

func (s *editorService) InsertBlock(ctx context.Context, p *auth.Principal, id string, req *InsertBlockRequest) (*EditorSessionResponse, error) {
	decoded, err := document.Deserialize(document.Envelope{Blocks: []document.RawBlock{req.Block}})
	if err != nil {
		return nil, invalidInput(err)
	}
	return s.mutate(p, id, func() (document.Document, error) {
		return s.sessions.InsertBlock(ctx, id, req.Index, decoded.Blocks[0])
	})
}

func (s *editorService) RemoveBlock(ctx context.Context, p *auth.Principal, id string, index int) (*EditorSessionResponse, error) {
	return s.mutate(p, id, func() (document.Document, error) {
		return s.sessions.RemoveBlock(ctx, id, index)
	})
}

func (s *editorService) MoveBlock(ctx context.Context, p *auth.Principal, id string, req *MoveBlockRequest) (*EditorSessionResponse, error) {
	return s.mutate(p, id, func() (document.Document, error) {
		return s.sessions.MoveBlock(ctx, id, req.From, req.To)
	})
}

func (s *editorService) EditMath(ctx context.Context, p *auth.Principal, id string, req *EditMathRequest) (*EditorSessionResponse, error) {
	return s.mutate(p, id, func() (document.Document, error) {
		return s.sessions.EditMath(ctx, id, req.Index, req.Input)
	})
}

func (s *editorService) SetAlignment(ctx context.Context, p *auth.Principal, id string, req *SetAlignmentRequest) (*EditorSessionResponse, error) {
	return s.mutate(p, id, func() (document.Document, error) {
		return s.sessions.SetAlignment(ctx, id, req.Index, req.Alignment)
	})
}

func (s *editorService) InsertImage(ctx context.Context, p *auth.Principal, id string, index int, file editor.File, caption string) (*EditorSessionResponse, error) {
	return s.mutate(p, id, func() (document.Document, error) {
		return s.sessions.InsertImage(ctx, id, index, file, caption)
	})
}

func (s *editorService) Clear(ctx context.Context, p *auth.Principal, id string) (*EditorSessionResponse, error) {
	return s.mutate(p, id, func() (document.Document, error) {
		if err := s.sessions.Clear(ctx, id); err != nil {
			return document.Document{}, err
		}
		return s.sessions.Save(ctx, id)
	})
}

func (s *editorService) Commit(ctx context.Context, p *auth.Principal, id string, req *CommitRequest) (_ *QuestionResponse, err error) {
	op := s.logger.WithOperation(ctx, "commit_editor", principalID(p))
	defer func() { op.LogResult(id, "editor_session", err) }()

	owner, err := s.authorize(p, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.sessions.Save(ctx, id)
	if err != nil {
		return nil, err
	}

	if owner.QuestionID != "" {
		return s.questions.UpdateContent(ctx, p, owner.QuestionID, doc)
	}
	if req == nil || req.SubjectID == "" {
		return nil, ValidationErrors{{Field: "subjectId", Message: "is required to save a new question", Rule: "required"}}
	}
	created, err := s.questions.Create(ctx, p, &CreateQuestionRequest{
		SubjectID:       req.SubjectID,
		CourseOutcomeID: req.CourseOutcomeID,
		Marks:           req.Marks,
		Difficulty:      req.Difficulty,
		EditorData:      doc,
	})
	if err != nil {
		return nil, err
	}
	// The session now edits the stored question.
	if err := s.sessions.SetOwner(id, editor.Owner{UserID: owner.UserID, QuestionID: created.ID}); err != nil {
		s.logger.logger.WarnContext(ctx, "Failed to rebind editor session", "session_id", id, "error", err)
	}
	return created, nil
}

func (s *editorService) Close(ctx context.Context, p *auth.Principal, id string) error {
	if _, err := s.authorize(p, id); err != nil {
		return err
	}
	return s.sessions.Close(ctx, id)
}

func (s *editorService) mutate(p *auth.Principal, id string, fn func() (document.Document, error)) (*EditorSessionResponse, error) {
	owner, err := s.authorize(p, id)
	if err != nil {
		return nil, err
	}
	doc, err := fn()
	if err != nil {
		return nil, invalidInput(err)
	}
	return s.respond(id, owner.QuestionID, doc), nil
}

func (s *editorService) authorize(p *auth.Principal, id string) (editor.Owner, error) {
	if p == nil {
		return editor.Owner{}, ErrUnauthorized
	}
	owner, err := s.sessions.Owner(id)
	if err != nil {
		return editor.Owner{}, err
	}
	if owner.UserID != p.UserID && !p.IsAdmin() {
		return editor.Owner{}, NewPermissionError(p.UserID, id, "editor_session", "edit", "session belongs to another user")
	}
	return owner, nil
}

func (s *editorService) respond(id, questionID string, doc document.Document) *EditorSessionResponse {
	return &EditorSessionResponse{ID: id, QuestionID: questionID, EditorData: doc}
}

// invalidInput classifies document errors that carry no taxonomy class as
// validation failures.
func invalidInput(err error) error {
	if err == nil || IsOutOfRange(err) || IsNotFound(err) || IsNotReady(err) || IsUpstream(err) || IsValidation(err) || IsForbidden(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrValidationFailed, err)
}
