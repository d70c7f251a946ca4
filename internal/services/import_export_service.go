package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/document"
	"github.com/SAP-F-2025/qpaper-service/internal/events"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/SAP-F-2025/qpaper-service/internal/validator"
	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

const (
	MaxImportBytes = 10 << 20
	MaxImportRows  = 1000

	colQuestionText = "question_text"
	colMarks        = "marks"
	colDifficulty   = "difficulty"
	colCoCode       = "co_code"

	questionsSheet = "Questions"
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportColumns = []string{colQuestionText, colMarks, colDifficulty, colCoCode, "question_id", "created_at"}

type ExportQuestionsRequest struct {
	SubjectID       string              `json:"subjectId" validate:"required"`
	CourseOutcomeID *string             `json:"courseOutcomeId"`
	Format          models.ExportFormat `json:"format" validate:"omitempty,oneof=xlsx csv"`
}

type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImportExportService moves question banks in and out as spreadsheets. Rows
// carry question_text, marks, difficulty and co_code columns.
type ImportExportService interface {
	// ImportQuestions stores every valid row of the file as a paragraph
	// question of subjectID. Invalid rows are reported in the summary.
	ImportQuestions(ctx context.Context, p *auth.Principal, subjectID, filename string, r io.Reader) (*models.ImportSummary, error)
	ExportQuestions(ctx context.Context, p *auth.Principal, req *ExportQuestionsRequest) (*ExportFile, error)
}

type importExportService struct {
	repo      repositories.Repository
	logger    *ServiceLogger
	audit     auditRecorder
	events    eventEmitter
	validator *validator.Validator
	now       func() time.Time
}

func NewImportExportService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) ImportExportService {
	return &importExportService{
		repo:      repo,
		logger:    NewServiceLogger(logger, LogConfig{Service: "import_export", Component: "service"}),
		audit:     auditRecorder{repo: repo, logger: logger},
		events:    eventEmitter{publisher: publisher, logger: logger},
		validator: validator,
		now:       time.Now,
	}
}

// ===== IMPORT OPERATIONS =====

func (s *importExportService) ImportQuestions(ctx context.Context, p *auth.Principal, subjectID, filename string, r io.Reader) (_ *models.ImportSummary, err error) {
	op := s.logger.WithOperation(ctx, "import_questions", principalID(p))
	defer func() { op.LogResult(subjectID, "subject", err) }()
	started := s.now()

	if subjectID == "" {
		return nil, ValidationErrors{{Field: "subjectId", Message: "is required", Rule: "required"}}
	}
	if err = requireAuthor(ctx, s.repo, p, subjectID); err != nil {
		return nil, err
	}
	if _, err = loadSubject(ctx, s.repo, subjectID); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxImportBytes {
		return nil, ValidationErrors{{Field: "file", Message: "exceeds the 10MB import limit", Rule: "max"}}
	}

	var records [][]string
	switch detectFormat(filename, data) {
	case models.FormatCSV:
		records, err = readCSV(data)
	case models.FormatXLSX:
		records, err = readExcel(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, ValidationErrors{{Field: "file", Message: "must have a header row and at least one data row", Rule: "min"}}
	}
	if len(records)-1 > MaxImportRows {
		return nil, ValidationErrors{{Field: "file", Message: fmt.Sprintf("has more than %d rows", MaxImportRows), Rule: "max"}}
	}

	headerMap := make(map[string]int)
	for i, header := range records[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	if _, ok := headerMap[colQuestionText]; !ok {
		return nil, ValidationErrors{{Field: "headers", Message: "missing required column: " + colQuestionText, Rule: "required"}}
	}

	outcomes, err := s.outcomesByCode(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	summary := &models.ImportSummary{TotalRows: len(records) - 1}
	var questions []*models.Question
	for i, record := range records[1:] {
		if blankRecord(record) {
			summary.TotalRows--
			continue
		}
		summary.ProcessedRows++
		q, rowErrors := s.parseRow(record, headerMap, i+2, outcomes)
		if len(rowErrors) > 0 {
			summary.Errors = append(summary.Errors, rowErrors...)
			summary.ErrorCount++
			continue
		}
		q.SubjectID = subjectID
		q.CreatedBy = p.UserID
		questions = append(questions, q)
	}

	if len(questions) > 0 {
		err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			return tx.Question().CreateBatch(ctx, questions)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to save questions: %w", err)
		}
	}

	summary.SuccessCount = len(questions)
	summary.CreatedQuestions = make([]string, len(questions))
	for i, q := range questions {
		summary.CreatedQuestions[i] = q.ID
	}
	summary.ProcessingTime = s.now().Sub(started)

	if len(questions) > 0 {
		s.audit.record(ctx, p, models.AuditQuestionsImported, "subject", subjectID,
			fmt.Sprintf("Imported %d questions from %s", len(questions), filepath.Base(filename)),
			map[string]interface{}{"source": "file", "errors": summary.ErrorCount})
		s.events.emit(ctx, events.EventQuestionsImported, events.QuestionsImportedEvent{
			SubjectID:   subjectID,
			QuestionIDs: summary.CreatedQuestions,
			ActorID:     p.UserID,
			Source:      "file",
		})
	}

	s.logger.logger.InfoContext(ctx, "Question import completed",
		"subject_id", subjectID,
		"total_rows", summary.TotalRows,
		"success_count", summary.SuccessCount,
		"error_count", summary.ErrorCount)
	return summary, nil
}

func (s *importExportService) outcomesByCode(ctx context.Context, subjectID string) (map[string]*models.CourseOutcome, error) {
	cos, err := s.repo.CourseOutcome().ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course outcomes: %w", err)
	}
	out := make(map[string]*models.CourseOutcome, len(cos))
	for _, co := range cos {
		out[strings.ToUpper(co.Code)] = co
	}
	return out, nil
}

func (s *importExportService) parseRow(record []string, headerMap map[string]int, rowNum int, outcomes map[string]*models.CourseOutcome) (*models.Question, []models.ImportValidationError) {
	var errs []models.ImportValidationError
	fail := func(column, message, value, code string) {
		errs = append(errs, models.ImportValidationError{Row: rowNum, Column: column, Message: message, Value: value, Code: code})
	}
	cell := func(column string) string {
		i, ok := headerMap[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	q := &models.Question{Difficulty: models.DifficultyMedium}

	text := cell(colQuestionText)
	if err := s.validator.Question().ValidateText(text); err != nil {
		fail(colQuestionText, "question text is required", text, "REQUIRED")
	}

	if raw := cell(colMarks); raw != "" {
		marks, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			fail(colMarks, "marks must be a whole number", raw, "INVALID_NUMBER")
		case s.validator.Question().ValidateMarks(marks) != nil:
			fail(colMarks, fmt.Sprintf("marks must be between 0 and %d", validator.MaxMarks), raw, "OUT_OF_RANGE")
		default:
			q.Marks = marks
		}
	}

	if raw := cell(colDifficulty); raw != "" {
		d, ok := parseDifficulty(raw)
		if !ok {
			fail(colDifficulty, "difficulty must be Easy, Medium or Hard", raw, "INVALID_DIFFICULTY")
		}
		q.Difficulty = d
	}

	if raw := cell(colCoCode); raw != "" {
		code := strings.ToUpper(raw)
		switch co, ok := outcomes[code]; {
		case !validator.IsCOCode(code):
			fail(colCoCode, "course outcome code must look like CO1", raw, "INVALID_CO_CODE")
		case !ok:
			fail(colCoCode, "no such course outcome for this subject", raw, "UNKNOWN_CO")
		default:
			q.CourseOutcomeID = &co.ID
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	q.SetDocument(document.Document{Blocks: []document.Block{document.NewParagraph(text)}})
	return q, nil
}

func parseDifficulty(raw string) (models.DifficultyLevel, bool) {
	for _, d := range []models.DifficultyLevel{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard} {
		if strings.EqualFold(raw, string(d)) {
			return d, true
		}
	}
	return "", false
}

// detectFormat trusts the extension and falls back to sniffing content.
func detectFormat(filename string, data []byte) models.ExportFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return models.FormatCSV
	case ".xlsx":
		return models.FormatXLSX
	}
	mt := mimetype.Detect(data)
	switch {
	case mt.Is(xlsxMIME):
		return models.FormatXLSX
	case mt.Is("text/csv"), mt.Is("text/plain"):
		return models.FormatCSV
	}
	return ""
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, ValidationErrors{{Field: "file", Message: "is not valid CSV: " + err.Error(), Rule: "format"}}
	}
	return records, nil
}

func readExcel(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, ValidationErrors{{Field: "file", Message: "is not a readable Excel workbook", Rule: "format"}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ValidationErrors{{Field: "file", Message: "Excel file has no sheets", Rule: "format"}}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ===== EXPORT OPERATIONS =====

func (s *importExportService) ExportQuestions(ctx context.Context, p *auth.Principal, req *ExportQuestionsRequest) (_ *ExportFile, err error) {
	op := s.logger.WithOperation(ctx, "export_questions", principalID(p))
	defer func() { op.LogResult(req.SubjectID, "subject", err) }()

	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err = requireAuthor(ctx, s.repo, p, req.SubjectID); err != nil {
		return nil, err
	}
	subject, err := loadSubject(ctx, s.repo, req.SubjectID)
	if err != nil {
		return nil, err
	}

	questions, _, err := s.repo.Question().List(ctx, repositories.QuestionFilters{
		SubjectID:       req.SubjectID,
		CourseOutcomeID: req.CourseOutcomeID,
		Limit:           -1,
		SortOrder:       "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	rows := make([][]string, len(questions))
	for i, q := range questions {
		rows[i] = questionToRow(q)
	}

	format := req.Format
	if format == "" {
		format = models.FormatXLSX
	}
	file := &ExportFile{Name: fmt.Sprintf("%s-questions.%s", fileSafe(subject.Code), format)}
	switch format {
	case models.FormatCSV:
		file.ContentType = "text/csv"
		file.Data, err = writeCSV(rows)
	default:
		file.ContentType = xlsxMIME
		file.Data, err = writeExcel(rows)
	}
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, p, models.AuditQuestionsExported, "subject", req.SubjectID,
		fmt.Sprintf("Exported %d questions as %s", len(questions), format), nil)
	return file, nil
}

func questionToRow(q *models.Question) []string {
	co := ""
	if q.CourseOutcome != nil {
		co = q.CourseOutcome.Code
	}
	return []string{
		q.Document().PlainText(),
		strconv.Itoa(q.Marks),
		string(q.Difficulty),
		co,
		q.ID,
		q.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportColumns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func writeExcel(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(questionsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	header := make([]interface{}, len(exportColumns))
	for i, c := range exportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(questionsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write Excel header: %w", err)
	}
	for i, row := range rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		// Marks stay numeric so the sheet can sum them.
		if marks, err := strconv.Atoi(row[1]); err == nil {
			values[1] = marks
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(questionsSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write Excel row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(questionsSheet, "A", "A", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
