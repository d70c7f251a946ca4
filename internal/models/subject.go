package models

import (
	"time"

	"gorm.io/gorm"
)

// Subject is one offering of a course in a given semester and academic
// year. The same code may repeat across terms.
type Subject struct {
	ID           string `json:"id" gorm:"primaryKey;size:36"`
	Code         string `json:"code" gorm:"not null;size:20;uniqueIndex:idx_subject_term"`
	Name         string `json:"name" gorm:"not null;size:200"`
	Semester     int    `json:"semester" gorm:"not null;uniqueIndex:idx_subject_term"`
	AcademicYear string `json:"academicYear" gorm:"not null;size:9;uniqueIndex:idx_subject_term"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	CourseOutcomes []CourseOutcome `json:"courseOutcomes,omitempty" gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE"`
}

func (Subject) TableName() string {
	return "subjects"
}

func (s *Subject) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Label is the "CODE - Name" form used in lists and paper headers.
func (s *Subject) Label() string {
	return s.Code + " - " + s.Name
}

type CourseOutcome struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	SubjectID   string `json:"subjectId" gorm:"not null;size:36;uniqueIndex:idx_subject_co"`
	Code        string `json:"coCode" gorm:"column:co_code;not null;size:20;uniqueIndex:idx_subject_co"`
	Description string `json:"description" gorm:"type:text"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (CourseOutcome) TableName() string {
	return "course_outcomes"
}

func (co *CourseOutcome) BeforeCreate(*gorm.DB) error {
	ensureID(&co.ID)
	return nil
}
