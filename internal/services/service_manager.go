package services

import (
	"log/slog"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/ai"
	"github.com/SAP-F-2025/qpaper-service/internal/cache"
	"github.com/SAP-F-2025/qpaper-service/internal/editor"
	"github.com/SAP-F-2025/qpaper-service/internal/events"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/SAP-F-2025/qpaper-service/internal/storage"
	"github.com/SAP-F-2025/qpaper-service/internal/validator"
)

// ServiceManager hands out every business service built over one set of
// collaborators.
type ServiceManager interface {
	Subject() SubjectService
	CourseOutcome() CourseOutcomeService
	Faculty() FacultyService
	Question() QuestionService
	Paper() PaperService
	AI() AIService
	Upload() UploadService
	Editor() EditorService
	ImportExport() ImportExportService
}

// Dependencies are the collaborators the services share.
type Dependencies struct {
	Repo      repositories.Repository
	Cache     cache.CacheService
	Publisher events.EventPublisher
	Generator ai.Generator
	Blobs     storage.BlobStore
	Uploads   UploadService
	Editors   *editor.Manager
	Validator *validator.Validator
	Logger    *slog.Logger

	DraftTTL       time.Duration
	UploadMaxBytes int64
}

type serviceManager struct {
	subject       SubjectService
	courseOutcome CourseOutcomeService
	faculty       FacultyService
	question      QuestionService
	paper         PaperService
	ai            AIService
	upload        UploadService
	editor        EditorService
	importExport  ImportExportService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewMockEventPublisher(deps.Logger)
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryCache()
	}

	question := NewQuestionService(deps.Repo, deps.Publisher, deps.Logger, deps.Validator)
	upload := deps.Uploads
	if upload == nil {
		upload = NewUploadService(deps.Blobs, deps.UploadMaxBytes, deps.Logger)
	}
	if deps.Editors == nil {
		deps.Editors = editor.NewManager(upload.Uploader(), 0, deps.Logger)
	}

	return &serviceManager{
		subject:       NewSubjectService(deps.Repo, deps.Logger, deps.Validator),
		courseOutcome: NewCourseOutcomeService(deps.Repo, deps.Logger, deps.Validator),
		faculty:       NewFacultyService(deps.Repo, deps.Publisher, deps.Logger, deps.Validator),
		question:      question,
		paper:         NewPaperService(deps.Repo, deps.Cache, deps.Publisher, deps.DraftTTL, deps.Logger, deps.Validator),
		ai:            NewAIService(deps.Repo, deps.Generator, deps.Cache, deps.Logger, deps.Validator),
		upload:        upload,
		editor:        NewEditorService(deps.Editors, question, deps.Logger),
		importExport:  NewImportExportService(deps.Repo, deps.Publisher, deps.Logger, deps.Validator),
	}
}

func (m *serviceManager) Subject() SubjectService             { return m.subject }
func (m *serviceManager) CourseOutcome() CourseOutcomeService { return m.courseOutcome }
func (m *serviceManager) Faculty() FacultyService             { return m.faculty }
func (m *serviceManager) Question() QuestionService           { return m.question }
func (m *serviceManager) Paper() PaperService                 { return m.paper }
func (m *serviceManager) AI() AIService                       { return m.ai }
func (m *serviceManager) Upload() UploadService               { return m.upload }
func (m *serviceManager) Editor() EditorService               { return m.editor }
func (m *serviceManager) ImportExport() ImportExportService   { return m.importExport }
