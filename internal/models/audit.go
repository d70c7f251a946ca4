package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditEventType string

const (
	AuditSubjectCreated      AuditEventType = "subject_created"
	AuditCourseOutcomeSaved  AuditEventType = "course_outcome_saved"
	AuditCourseOutcomeDelete AuditEventType = "course_outcome_deleted"
	AuditFacultyApproved     AuditEventType = "faculty_approved"
	AuditFacultyDenied       AuditEventType = "faculty_denied"
	AuditFacultyDeleted      AuditEventType = "faculty_deleted"
	AuditSubjectAssigned     AuditEventType = "subject_assigned"
	AuditQuestionCreated     AuditEventType = "question_created"
	AuditQuestionUpdated     AuditEventType = "question_updated"
	AuditQuestionDeleted     AuditEventType = "question_deleted"
	AuditQuestionsImported   AuditEventType = "questions_imported"
	AuditQuestionsExported   AuditEventType = "questions_exported"
	AuditPaperExported       AuditEventType = "paper_exported"
)

type AuditLog struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	EventType AuditEventType `json:"eventType" gorm:"not null;size:40;index"`

	// Actor information
	UserID   string   `json:"userId" gorm:"not null;size:36;index"`
	UserRole UserRole `json:"userRole" gorm:"size:20"`

	// Target information
	TargetType string `json:"targetType" gorm:"size:50;index"` // subject, question, user, paper
	TargetID   string `json:"targetId" gorm:"size:36;index"`

	Description string         `json:"description" gorm:"type:text"`
	Metadata    datatypes.JSON `json:"metadata"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
