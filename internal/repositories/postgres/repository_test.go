package postgres

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	repo := NewRepository(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedSubject(t *testing.T, repo *Repository, code string, semester int, year string) *models.Subject {
	t.Helper()
	s := &models.Subject{Code: code, Name: code + " Name", Semester: semester, AcademicYear: year}
	require.NoError(t, repo.Subject().Create(context.Background(), s))
	return s
}

func TestSubjectRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	a := seedSubject(t, repo, "CS101", 1, "2024-2025")
	seedSubject(t, repo, "CS102", 2, "2024-2025")
	seedSubject(t, repo, "CS101", 1, "2025-2026")
	assert.NotEmpty(t, a.ID)

	exists, err := repo.Subject().ExistsByTerm(ctx, "CS101", 1, "2024-2025")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Subject().ExistsByTerm(ctx, "CS101", 2, "2024-2025")
	require.NoError(t, err)
	assert.False(t, exists)

	semester := 1
	tests := []struct {
		name    string
		filters repositories.SubjectFilters
		want    int64
	}{
		{name: "all", want: 3},
		{name: "by semester", filters: repositories.SubjectFilters{Semester: &semester}, want: 2},
		{name: "by year", filters: repositories.SubjectFilters{AcademicYear: "2024-2025"}, want: 2},
		{name: "both", filters: repositories.SubjectFilters{Semester: &semester, AcademicYear: "2025-2026"}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subjects, total, err := repo.Subject().List(ctx, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
			assert.Len(t, subjects, int(tt.want))
		})
	}

	got, err := repo.Subject().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "CS101 - CS101 Name", got.Label())

	_, err = repo.Subject().GetByID(ctx, "missing")
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestCourseOutcomeRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	subject := seedSubject(t, repo, "CS101", 1, "2024-2025")

	co2 := &models.CourseOutcome{SubjectID: subject.ID, Code: "CO2", Description: "Analyse"}
	co1 := &models.CourseOutcome{SubjectID: subject.ID, Code: "CO1", Description: "Recall"}
	require.NoError(t, repo.CourseOutcome().Create(ctx, co2))
	require.NoError(t, repo.CourseOutcome().Create(ctx, co1))

	list, err := repo.CourseOutcome().ListBySubject(ctx, subject.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "CO1", list[0].Code)

	found, err := repo.CourseOutcome().GetByCode(ctx, subject.ID, "CO2")
	require.NoError(t, err)
	assert.Equal(t, co2.ID, found.ID)

	require.NoError(t, repo.CourseOutcome().UpdateDescription(ctx, co2.ID, "Evaluate"))
	found, err = repo.CourseOutcome().GetByID(ctx, co2.ID)
	require.NoError(t, err)
	assert.Equal(t, "Evaluate", found.Description)

	assert.True(t, repositories.IsNotFoundError(repo.CourseOutcome().UpdateDescription(ctx, "missing", "x")))

	// Deleting an outcome unlinks its questions.
	q := &models.Question{SubjectID: subject.ID, CourseOutcomeID: &co1.ID}
	q.SetDocument(document.CreateDefault())
	require.NoError(t, repo.Question().Create(ctx, q))

	require.NoError(t, repo.CourseOutcome().Delete(ctx, co1.ID))
	stored, err := repo.Question().GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CourseOutcomeID)
	assert.True(t, repositories.IsNotFoundError(repo.CourseOutcome().Delete(ctx, co1.ID)))
}

func TestUserAndAssignmentRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	cs101 := seedSubject(t, repo, "CS101", 1, "2024-2025")
	cs102 := seedSubject(t, repo, "CS102", 1, "2024-2025")

	admin := &models.User{Name: "Admin", Email: "admin@example.edu", Role: models.RoleAdmin, IsApproved: true}
	faculty := &models.User{Name: "Asha", Email: "asha@example.edu", Role: models.RoleFaculty}
	pending := &models.User{Name: "Ravi", Email: "ravi@example.edu", Role: models.RoleFaculty}
	for _, u := range []*models.User{admin, faculty, pending} {
		require.NoError(t, repo.User().Create(ctx, u))
	}

	byEmail, err := repo.User().GetByEmail(ctx, "asha@example.edu")
	require.NoError(t, err)
	assert.Equal(t, faculty.ID, byEmail.ID)

	require.NoError(t, repo.User().SetApproved(ctx, faculty.ID, true))
	approved := true
	users, total, err := repo.User().GetByRole(ctx, models.RoleFaculty, repositories.UserFilters{Approved: &approved})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, faculty.ID, users[0].ID)

	by := admin.ID
	require.NoError(t, repo.FacultySubject().Assign(ctx, &models.FacultySubject{FacultyID: faculty.ID, SubjectID: cs102.ID, AssignedBy: &by}))
	require.NoError(t, repo.FacultySubject().Assign(ctx, &models.FacultySubject{FacultyID: faculty.ID, SubjectID: cs101.ID, AssignedBy: &by}))

	assigned, err := repo.FacultySubject().IsAssigned(ctx, faculty.ID, cs101.ID)
	require.NoError(t, err)
	assert.True(t, assigned)

	subjects, err := repo.FacultySubject().GetSubjects(ctx, faculty.ID)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "CS101", subjects[0].Code)

	byFaculty, err := repo.FacultySubject().GetSubjectsByFaculty(ctx, []string{faculty.ID, pending.ID})
	require.NoError(t, err)
	assert.Len(t, byFaculty[faculty.ID], 2)
	assert.Empty(t, byFaculty[pending.ID])

	require.NoError(t, repo.FacultySubject().Unassign(ctx, faculty.ID, cs102.ID))
	assert.True(t, repositories.IsNotFoundError(repo.FacultySubject().Unassign(ctx, faculty.ID, cs102.ID)))

	require.NoError(t, repo.User().Delete(ctx, faculty.ID))
	_, err = repo.User().GetByID(ctx, faculty.ID)
	assert.True(t, repositories.IsNotFoundError(err))
	assigned, err = repo.FacultySubject().IsAssigned(ctx, faculty.ID, cs101.ID)
	require.NoError(t, err)
	assert.False(t, assigned)
}

func TestQuestionRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	subject := seedSubject(t, repo, "CS101", 1, "2024-2025")
	co := &models.CourseOutcome{SubjectID: subject.ID, Code: "CO1"}
	require.NoError(t, repo.CourseOutcome().Create(ctx, co))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var questions []*models.Question
	for i, text := range []string{"first", "second", "third"} {
		q := &models.Question{SubjectID: subject.ID, Marks: i + 1, Difficulty: models.DifficultyMedium, CreatedBy: "u1"}
		q.SetDocument(document.Document{Blocks: []document.Block{document.NewParagraph(text)}})
		q.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		questions = append(questions, q)
	}
	require.NoError(t, repo.Question().CreateBatch(ctx, questions))

	list, total, err := repo.Question().List(ctx, repositories.QuestionFilters{SubjectID: subject.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Document().PlainText())
	assert.Equal(t, "CS101", list[0].Subject.Code)

	latest, err := repo.Question().GetLatestBySubject(ctx, subject.ID, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, questions[2].ID, latest[0].ID)

	ordered, err := repo.Question().GetByIDs(ctx, []string{questions[1].ID, "missing", questions[0].ID, questions[1].ID})
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, questions[1].ID, ordered[0].ID)
	assert.Equal(t, questions[0].ID, ordered[1].ID)

	updated := document.Document{Blocks: []document.Block{
		document.NewHeading(3, "Q"),
		document.NewMath(document.MathData{Latex: `x^2`, Display: true}),
	}}
	require.NoError(t, repo.Question().UpdateContent(ctx, questions[0].ID, updated))
	require.NoError(t, repo.Question().UpdateCourseOutcome(ctx, questions[0].ID, &co.ID))

	stored, err := repo.Question().GetByID(ctx, questions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Blocks, stored.Document().Blocks)
	require.NotNil(t, stored.CourseOutcome)
	assert.Equal(t, "CO1", stored.CourseOutcome.Code)

	byCO, _, err := repo.Question().List(ctx, repositories.QuestionFilters{CourseOutcomeID: &co.ID})
	require.NoError(t, err)
	assert.Len(t, byCO, 1)

	require.NoError(t, repo.Question().UpdateCourseOutcome(ctx, questions[0].ID, nil))
	stored, err = repo.Question().GetByID(ctx, questions[0].ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CourseOutcomeID)

	require.NoError(t, repo.Question().Delete(ctx, questions[0].ID))
	assert.True(t, repositories.IsNotFoundError(repo.Question().Delete(ctx, questions[0].ID)))
	assert.True(t, repositories.IsNotFoundError(repo.Question().UpdateContent(ctx, "missing", updated)))
}

func TestWithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Subject().Create(ctx, &models.Subject{Code: "X1", Name: "X", Semester: 1, AcademicYear: "2024-2025"}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, total, err := repo.Subject().List(ctx, repositories.SubjectFilters{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, repo.Ping(ctx))
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.Audit().Create(ctx, &models.AuditLog{EventType: models.AuditQuestionCreated, UserID: "u1", TargetType: "question", TargetID: "q1"}))
	require.NoError(t, repo.Audit().Create(ctx, &models.AuditLog{EventType: models.AuditPaperExported, UserID: "u2", TargetType: "paper", TargetID: "d1"}))

	logs, total, err := repo.Audit().List(ctx, repositories.AuditFilters{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, models.AuditQuestionCreated, logs[0].EventType)
}
