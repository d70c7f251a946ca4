package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the kinds of domain events the service emits
type EventType string

const (
	// Question bank events
	EventQuestionCreated   EventType = "question.created"
	EventQuestionUpdated   EventType = "question.updated"
	EventQuestionDeleted   EventType = "question.deleted"
	EventQuestionsImported EventType = "question.imported"

	// Paper events
	EventPaperComposed EventType = "paper.composed"
	EventPaperExported EventType = "paper.exported"

	// Faculty events
	EventFacultyApproved EventType = "faculty.approved"
	EventSubjectAssigned EventType = "faculty.subject_assigned"
)

const (
	eventSource  = "qpaper-service"
	eventVersion = "1.0"
)

// Event is the envelope for everything published on the event topic
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent wraps data in an envelope with a fresh ID and timestamp.
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// Question event payloads

type QuestionEvent struct {
	QuestionID      string  `json:"question_id"`
	SubjectID       string  `json:"subject_id"`
	CourseOutcomeID *string `json:"course_outcome_id,omitempty"`
	ActorID         string  `json:"actor_id"`
}

type QuestionsImportedEvent struct {
	SubjectID   string   `json:"subject_id"`
	QuestionIDs []string `json:"question_ids"`
	ActorID     string   `json:"actor_id"`
	Source      string   `json:"source"` // ai, csv, xlsx
}

// Paper event payloads

type PaperEvent struct {
	DraftID     string   `json:"draft_id"`
	SubjectID   string   `json:"subject_id"`
	Title       string   `json:"title"`
	QuestionIDs []string `json:"question_ids"`
	TotalMarks  int      `json:"total_marks"`
	Format      string   `json:"format,omitempty"` // html, xlsx
	ActorID     string   `json:"actor_id"`
}

// Faculty event payloads

type FacultyEvent struct {
	FacultyID string `json:"faculty_id"`
	SubjectID string `json:"subject_id,omitempty"`
	ActorID   string `json:"actor_id"`
}
