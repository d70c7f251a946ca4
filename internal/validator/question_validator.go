package validator

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
)

const maxQuestionBlocks = 200

// QuestionValidator handles question-specific validation
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateContent checks that doc is a well-formed block document with
// something a reader can see.
func (v *QuestionValidator) ValidateContent(doc document.Document) error {
	if err := doc.Validate(); err != nil {
		return ValidationErrors{{Field: "editorData", Message: err.Error(), Rule: "document"}}
	}
	if doc.IsEmpty() {
		return ValidationErrors{{Field: "editorData", Message: "must contain at least one block", Rule: "required"}}
	}
	if doc.Len() > maxQuestionBlocks {
		return ValidationErrors{{
			Field:   "editorData",
			Message: fmt.Sprintf("must contain at most %d blocks", maxQuestionBlocks),
			Value:   doc.Len(),
			Rule:    "max",
		}}
	}
	if !hasVisibleContent(doc) {
		return ValidationErrors{{Field: "editorData", Message: "question has no content", Rule: "required"}}
	}
	return nil
}

// ValidateMarks checks marks when they are given; zero means unset.
func (v *QuestionValidator) ValidateMarks(marks int) error {
	if marks < 0 || marks > MaxMarks {
		return ValidationErrors{{
			Field:   "marks",
			Message: fmt.Sprintf("must be between 0 and %d", MaxMarks),
			Value:   marks,
			Rule:    "marks_range",
		}}
	}
	return nil
}

// ValidateText checks one line of generated or imported question text.
func (v *QuestionValidator) ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ValidationErrors{{Field: "text", Message: "is required", Rule: "required"}}
	}
	return nil
}

// hasVisibleContent reports whether any block carries text, items, cells,
// an image or a formula.
func hasVisibleContent(doc document.Document) bool {
	for _, b := range doc.Blocks {
		switch b.Kind {
		case document.KindHeading:
			if strings.TrimSpace(b.Heading.Text) != "" {
				return true
			}
		case document.KindParagraph:
			if strings.TrimSpace(b.Paragraph.Text) != "" {
				return true
			}
		case document.KindList:
			if len(b.List.Items) > 0 {
				return true
			}
		case document.KindTable:
			if len(b.Table.Rows) > 0 {
				return true
			}
		case document.KindImage:
			if b.Image.URL != "" {
				return true
			}
		case document.KindMath:
			if b.Math.Latex != "" || b.Math.MathML != "" {
				return true
			}
		}
	}
	return false
}
