package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/SAP-F-2025/qpaper-service/internal/events"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const importCSV = `question_text,marks,difficulty,co_code
Define a binary tree.,2,easy,co1
Explain AVL rotations.,10,Hard,CO2
,5,Medium,CO1
Describe tries.,many,Medium,
Compare heaps.,5,Extreme,CO7
,,,
Summarise B-trees.,,,
`

func TestImportExportService_ImportCSV(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := newMockPublisher()
	svc := NewImportExportService(f.repo, pub, testLogger, f.validate)

	summary, err := svc.ImportQuestions(ctx, f.faculty, f.subject.ID, "bank.csv", strings.NewReader(importCSV))
	require.NoError(t, err)
	assert.Equal(t, 6, summary.TotalRows)
	assert.Equal(t, 6, summary.ProcessedRows)
	assert.Equal(t, 3, summary.SuccessCount)
	assert.Equal(t, 3, summary.ErrorCount)
	assert.Len(t, summary.CreatedQuestions, 3)

	codes := map[string]string{}
	for _, e := range summary.Errors {
		codes[e.Column] = e.Code
	}
	assert.Equal(t, map[string]string{
		colQuestionText: "REQUIRED",
		colMarks:        "INVALID_NUMBER",
		colDifficulty:   "INVALID_DIFFICULTY",
		colCoCode:       "UNKNOWN_CO",
	}, codes)

	stored, total, err := f.repo.Question().List(ctx, repositories.QuestionFilters{SubjectID: f.subject.ID, SortOrder: "asc"})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	byText := map[string]*models.Question{}
	for _, q := range stored {
		byText[q.Document().PlainText()] = q
	}
	tree := byText["Define a binary tree."]
	require.NotNil(t, tree)
	assert.Equal(t, models.DifficultyEasy, tree.Difficulty)
	assert.Equal(t, &f.co1.ID, tree.CourseOutcomeID)
	plain := byText["Summarise B-trees."]
	require.NotNil(t, plain)
	assert.Equal(t, models.DifficultyMedium, plain.Difficulty)
	assert.Zero(t, plain.Marks)
	assert.Nil(t, plain.CourseOutcomeID)

	assert.Equal(t, []events.EventType{events.EventQuestionsImported}, pub.Types())
	assert.Contains(t, f.auditTypes(t), models.AuditQuestionsImported)
}

func TestImportExportService_ImportExcel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewImportExportService(f.repo, newMockPublisher(), testLogger, f.validate)

	wb := excelize.NewFile()
	rows := [][]interface{}{
		{"Question_Text", "Marks", "CO_Code"},
		{"State Kirchhoff's laws.", 6, "CO2"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	summary, err := svc.ImportQuestions(ctx, f.admin, f.subject.ID, "bank.XLSX", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SuccessCount)

	q, err := f.repo.Question().GetByID(ctx, summary.CreatedQuestions[0])
	require.NoError(t, err)
	assert.Equal(t, 6, q.Marks)
	assert.Equal(t, "CO2", q.CourseOutcome.Code)
}

func TestImportExportService_ImportRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewImportExportService(f.repo, newMockPublisher(), testLogger, f.validate)

	tests := []struct {
		name      string
		subjectID string
		filename  string
		body      string
		check     func(error) bool
	}{
		{name: "no subject", filename: "a.csv", body: importCSV, check: IsValidation},
		{name: "unknown subject", subjectID: "missing", filename: "a.csv", body: importCSV, check: IsNotFound},
		{name: "missing text column", subjectID: f.subject.ID, filename: "a.csv", body: "marks\n5\n", check: IsValidation},
		{name: "header only", subjectID: f.subject.ID, filename: "a.csv", body: "question_text\n", check: IsValidation},
		{name: "unsupported", subjectID: f.subject.ID, filename: "a.pdf", body: "%PDF-1.4", check: IsValidation},
		{name: "not a workbook", subjectID: f.subject.ID, filename: "a.xlsx", body: "question_text\nx\n", check: IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportQuestions(ctx, f.admin, tt.subjectID, tt.filename, strings.NewReader(tt.body))
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	_, err := svc.ImportQuestions(ctx, f.faculty, f.other.ID, "a.csv", strings.NewReader(importCSV))
	assert.True(t, IsForbidden(err))
}

func TestImportExportService_Export(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewImportExportService(f.repo, newMockPublisher(), testLogger, f.validate)
	q := f.question(t, f.subject.ID, "What is a stack?", 4)
	require.NoError(t, f.repo.Question().UpdateCourseOutcome(ctx, q.ID, &f.co1.ID))
	f.question(t, f.subject.ID, "What is a queue?", 6)

	file, err := svc.ExportQuestions(ctx, f.faculty, &ExportQuestionsRequest{SubjectID: f.subject.ID, Format: models.FormatCSV})
	require.NoError(t, err)
	assert.Equal(t, "CS301-questions.csv", file.Name)
	assert.Equal(t, "text/csv", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportColumns, records[0])
	assert.ElementsMatch(t, []string{"What is a stack?", "What is a queue?"}, []string{records[1][0], records[2][0]})

	file, err = svc.ExportQuestions(ctx, f.faculty, &ExportQuestionsRequest{SubjectID: f.subject.ID, CourseOutcomeID: &f.co1.ID})
	require.NoError(t, err)
	assert.Equal(t, "CS301-questions.xlsx", file.Name)

	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(questionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"What is a stack?", "4", "Medium", "CO1"}, rows[1][:4])

	// An export can be imported back.
	summary, err := svc.ImportQuestions(ctx, f.faculty, f.subject.ID, file.Name, bytes.NewReader(file.Data))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SuccessCount)

	_, err = svc.ExportQuestions(ctx, f.faculty, &ExportQuestionsRequest{SubjectID: f.subject.ID, Format: "pdf"})
	assert.True(t, IsValidation(err))
	assert.Contains(t, f.auditTypes(t), models.AuditQuestionsExported)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		want     models.ExportFormat
	}{
		{name: "csv extension", filename: "bank.CSV", want: models.FormatCSV},
		{name: "xlsx extension", filename: "bank.xlsx", want: models.FormatXLSX},
		{name: "sniffed text", filename: "upload", data: "question_text,marks\nDefine x.,2\n", want: models.FormatCSV},
		{name: "sniffed pdf", filename: "upload", data: "%PDF-1.4\n", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectFormat(tt.filename, []byte(tt.data)))
		})
	}
}
