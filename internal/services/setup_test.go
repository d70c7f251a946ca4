package services

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/SAP-F-2025/qpaper-service/internal/ai"
	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/document"
	"github.com/SAP-F-2025/qpaper-service/internal/events"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/qpaper-service/internal/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// MockEventPublisher records published events.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event *events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// Types lists the published event types in order.
func (m *MockEventPublisher) Types() []events.EventType {
	var out []events.EventType
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			out = append(out, call.Arguments.Get(1).(*events.Event).Type)
		}
	}
	return out
}

func newMockPublisher() *MockEventPublisher {
	m := &MockEventPublisher{}
	m.On("Publish", mock.Anything, mock.Anything).Return(nil)
	return m
}

// MockGenerator is a mock implementation of ai.Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Complete(ctx context.Context, req ai.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) Embed(ctx context.Context, text string) ([]float64, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float64), args.Error(1)
	}
	return nil, args.Error(1)
}

type fixture struct {
	repo     *postgres.Repository
	admin    *auth.Principal
	faculty  *auth.Principal
	pending  *auth.Principal
	subject  *models.Subject
	other    *models.Subject
	co1      *models.CourseOutcome
	co2      *models.CourseOutcome
	validate *validator.Validator
}

func newTestRepository(t *testing.T) *postgres.Repository {
	t.Helper()

	dsn := "file:svc_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, postgres.Migrate(db))
	repo := postgres.NewRepository(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// newFixture seeds an admin, an approved faculty assigned to subject, a
// pending faculty and two outcomes of subject.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := newTestRepository(t)

	user := func(email string, role models.UserRole, approved bool) *auth.Principal {
		u := &models.User{Name: strings.Split(email, "@")[0], Email: email, Role: role, IsApproved: approved}
		require.NoError(t, repo.User().Create(ctx, u))
		return &auth.Principal{UserID: u.ID, Email: u.Email, Name: u.Name, Role: role, Approved: approved}
	}
	subject := func(code string) *models.Subject {
		s := &models.Subject{Code: code, Name: code + " Name", Semester: 3, AcademicYear: "2024-2025"}
		require.NoError(t, repo.Subject().Create(ctx, s))
		return s
	}
	outcome := func(subjectID, code string) *models.CourseOutcome {
		co := &models.CourseOutcome{SubjectID: subjectID, Code: code, Description: code + " description"}
		require.NoError(t, repo.CourseOutcome().Create(ctx, co))
		return co
	}

	f := &fixture{
		repo:     repo,
		admin:    user("admin@college.edu", models.RoleAdmin, true),
		faculty:  user("faculty@college.edu", models.RoleFaculty, true),
		pending:  user("pending@college.edu", models.RoleFaculty, false),
		subject:  subject("CS301"),
		other:    subject("MA201"),
		validate: validator.New(),
	}
	f.co1 = outcome(f.subject.ID, "CO1")
	f.co2 = outcome(f.subject.ID, "CO2")
	require.NoError(t, repo.FacultySubject().Assign(ctx, &models.FacultySubject{FacultyID: f.faculty.UserID, SubjectID: f.subject.ID}))
	return f
}

func (f *fixture) question(t *testing.T, subjectID, text string, marks int) *models.Question {
	t.Helper()
	q := &models.Question{SubjectID: subjectID, Marks: marks, Difficulty: models.DifficultyMedium, CreatedBy: f.faculty.UserID}
	q.SetDocument(document.Document{Blocks: []document.Block{document.NewParagraph(text)}})
	require.NoError(t, f.repo.Question().Create(context.Background(), q))
	return q
}

func (f *fixture) auditTypes(t *testing.T) []models.AuditEventType {
	t.Helper()
	logs, _, err := f.repo.Audit().List(context.Background(), repositories.AuditFilters{Limit: -1})
	require.NoError(t, err)
	out := make([]models.AuditEventType, len(logs))
	for i, l := range logs {
		out[i] = l.EventType
	}
	return out
}

var testLogger = slog.New(slog.DiscardHandler)
