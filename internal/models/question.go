package models

import (
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

func (d DifficultyLevel) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Question struct {
	ID              string          `json:"id" gorm:"primaryKey;size:36"`
	SubjectID       string          `json:"subjectId" gorm:"not null;size:36;index"`
	CourseOutcomeID *string         `json:"courseOutcomeId" gorm:"size:36;index"`
	Marks           int             `json:"marks" gorm:"not null;default:0"`
	Difficulty      DifficultyLevel `json:"difficulty" gorm:"size:10;default:Medium"`

	// Block document in the editor wire format.
	EditorData datatypes.JSONType[document.Document] `json:"editorData"`

	CreatedBy string    `json:"createdBy" gorm:"size:36;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	Subject       *Subject       `json:"subject,omitempty" gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE"`
	CourseOutcome *CourseOutcome `json:"courseOutcome,omitempty" gorm:"foreignKey:CourseOutcomeID;constraint:OnDelete:SET NULL"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) BeforeCreate(*gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

func (q *Question) Document() document.Document {
	return q.EditorData.Data()
}

func (q *Question) SetDocument(doc document.Document) {
	q.EditorData = datatypes.NewJSONType(doc)
}
