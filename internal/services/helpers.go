package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/events"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"gorm.io/datatypes"
)

func principalID(p *auth.Principal) string {
	if p == nil {
		return ""
	}
	return p.UserID
}

// requireAdmin rejects callers without the admin role.
func requireAdmin(p *auth.Principal, resource, resourceID, action string) error {
	if p == nil {
		return ErrUnauthorized
	}
	if !p.IsAdmin() {
		return NewPermissionError(p.UserID, resourceID, resource, action, "admin role required")
	}
	return nil
}

// requireAuthor checks that the caller may write questions for subjectID:
// admins always, faculty only once approved and assigned to the subject.
func requireAuthor(ctx context.Context, repo repositories.Repository, p *auth.Principal, subjectID string) error {
	if p == nil {
		return ErrUnauthorized
	}
	if p.IsAdmin() {
		return nil
	}
	if !p.Approved {
		return ErrNotApproved
	}
	assigned, err := repo.FacultySubject().IsAssigned(ctx, p.UserID, subjectID)
	if err != nil {
		return fmt.Errorf("failed to check subject assignment: %w", err)
	}
	if !assigned {
		return fmt.Errorf("%w: %s", ErrNotAssigned, subjectID)
	}
	return nil
}

// loadSubject maps a missing row onto ErrSubjectNotFound.
func loadSubject(ctx context.Context, repo repositories.Repository, id string) (*models.Subject, error) {
	subject, err := repo.Subject().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	return subject, nil
}

// auditRecorder writes the audit trail. A failed write is logged and never
// fails the action being audited.
type auditRecorder struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func (a auditRecorder) record(ctx context.Context, p *auth.Principal, eventType models.AuditEventType, targetType, targetID, description string, metadata map[string]interface{}) {
	entry := &models.AuditLog{
		EventType:   eventType,
		UserID:      principalID(p),
		TargetType:  targetType,
		TargetID:    targetID,
		Description: description,
	}
	if p != nil {
		entry.UserRole = p.Role
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err == nil {
			entry.Metadata = datatypes.JSON(raw)
		}
	}
	if err := a.repo.Audit().Create(ctx, entry); err != nil {
		a.logger.WarnContext(ctx, "Failed to write audit log",
			"event_type", eventType,
			"target_id", targetID,
			"error", err)
	}
}

// eventEmitter publishes domain events. Publishing is best effort: the
// database write has already happened and is not rolled back.
type eventEmitter struct {
	publisher events.EventPublisher
	logger    *slog.Logger
}

func (e eventEmitter) emit(ctx context.Context, eventType events.EventType, data interface{}) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", "event_type", eventType, "error", err)
	}
}
