package models

import "time"

type ExportFormat string

const (
	FormatXLSX ExportFormat = "xlsx"
	FormatCSV  ExportFormat = "csv"
)

// ImportSummary reports the outcome of a question bank import. Rows that
// fail validation are listed in Errors and nothing from them is stored.
type ImportSummary struct {
	TotalRows        int                     `json:"totalRows"`
	ProcessedRows    int                     `json:"processedRows"`
	SuccessCount     int                     `json:"successCount"`
	ErrorCount       int                     `json:"errorCount"`
	CreatedQuestions []string                `json:"createdQuestions"`
	Errors           []ImportValidationError `json:"errors"`
	ProcessingTime   time.Duration           `json:"processingTime"`
}

type ImportValidationError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value"`
	Code    string `json:"code"`
}
