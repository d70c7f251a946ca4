package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/utils"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// ===== OPERATION LOGGING =====

func (l *ServiceLogger) LogOperation(ctx context.Context, operation, userID, resourceID, resourceType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		switch {
		case IsValidation(err) || IsBusinessRule(err):
			level = slog.LevelWarn
			status = "validation_error"
		case IsUnauthorized(err) || IsForbidden(err):
			level = slog.LevelWarn
			status = "unauthorized"
		case IsNotFound(err):
			status = "not_found"
		case IsConflict(err):
			level = slog.LevelWarn
			status = "conflict"
		case IsNotReady(err) || IsOutOfRange(err):
			level = slog.LevelWarn
			status = "rejected"
		case IsUpstream(err):
			status = "upstream_error"
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.String("resource_id", resourceID),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var (
			verrs ValidationErrors
			bre   *BusinessRuleError
			pe    *PermissionError
		)
		switch {
		case errors.As(err, &verrs):
			attrs = append(attrs, slog.Int("validation_errors_count", len(verrs)))
		case errors.As(err, &bre):
			attrs = append(attrs, slog.String("business_rule", bre.Rule))
		case errors.As(err, &pe):
			attrs = append(attrs, slog.String("permission_action", pe.Action))
		}

		if level == slog.LevelError {
			if pc, file, line, ok := runtime.Caller(2); ok {
				if fn := runtime.FuncForPC(pc); fn != nil {
					attrs = append(attrs,
						slog.String("caller_func", fn.Name()),
						slog.String("caller_file", file),
						slog.Int("caller_line", line),
					)
				}
			}
		}
	}

	if requestID := utils.RequestIDFromContext(ctx); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	if level == slog.LevelDebug && !l.config.EnableDebug {
		return
	}
	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) LogValidationError(ctx context.Context, operation, userID string, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.Int("error_count", len(validationErrors)),
	}

	for i, err := range validationErrors {
		if i == 5 {
			break
		}
		attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
			slog.String("field", err.Field),
			slog.String("message", err.Message),
			slog.Any("value", SanitizeForLogging(err.Value)),
		))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Validation failed", attrs...)
}

func (l *ServiceLogger) LogBusinessRuleViolation(ctx context.Context, operation, userID string, rule *BusinessRuleError) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.String("rule", rule.Rule),
		slog.String("message", rule.Message),
	}
	for key, value := range rule.Context {
		attrs = append(attrs, slog.Any("context_"+key, value))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Business rule violation", attrs...)
}

func (l *ServiceLogger) LogPermissionDenied(ctx context.Context, operation string, permError *PermissionError) {
	l.logger.LogAttrs(ctx, slog.LevelWarn, "Permission denied",
		slog.String("operation", operation),
		slog.String("user_id", permError.UserID),
		slog.String("resource_id", permError.ResourceID),
		slog.String("resource_type", permError.Resource),
		slog.String("action", permError.Action),
		slog.String("reason", permError.Reason),
	)
}

// ===== AUDIT LOGGING =====

type AuditEventType string

const (
	AuditEventCreate AuditEventType = "create"
	AuditEventUpdate AuditEventType = "update"
	AuditEventDelete AuditEventType = "delete"
	AuditEventExport AuditEventType = "export"
)

type AuditEvent struct {
	Type         AuditEventType         `json:"type"`
	UserID       string                 `json:"user_id"`
	ResourceID   string                 `json:"resource_id"`
	ResourceType string                 `json:"resource_type"`
	Action       string                 `json:"action"`
	OldValue     interface{}            `json:"old_value,omitempty"`
	NewValue     interface{}            `json:"new_value,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func (l *ServiceLogger) LogAuditEvent(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("event_type", string(event.Type)),
		slog.String("user_id", event.UserID),
		slog.String("resource_id", event.ResourceID),
		slog.String("resource_type", event.ResourceType),
		slog.String("action", event.Action),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.OldValue != nil {
		attrs = append(attrs, slog.Any("old_value", SanitizeForLogging(event.OldValue)))
	}
	if event.NewValue != nil {
		attrs = append(attrs, slog.Any("new_value", SanitizeForLogging(event.NewValue)))
	}
	for key, value := range event.Metadata {
		attrs = append(attrs, slog.Any("meta_"+key, value))
	}

	l.logger.LogAttrs(ctx, slog.LevelInfo, fmt.Sprintf("Audit: %s %s", event.Action, event.ResourceType), attrs...)
}

// ===== CONTEXTUAL LOGGER =====

// ContextualLogger times one operation and logs its outcome.
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	userID    string
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation, userID string) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		userID:    userID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID, resourceType string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.userID, resourceID, resourceType, time.Since(cl.startTime), err)

	if err == nil {
		return
	}
	var (
		verrs ValidationErrors
		bre   *BusinessRuleError
		pe    *PermissionError
	)
	switch {
	case errors.As(err, &verrs):
		cl.logger.LogValidationError(cl.ctx, cl.operation, cl.userID, verrs)
	case errors.As(err, &bre):
		cl.logger.LogBusinessRuleViolation(cl.ctx, cl.operation, cl.userID, bre)
	case errors.As(err, &pe):
		cl.logger.LogPermissionDenied(cl.ctx, cl.operation, pe)
	}
}

func (cl *ContextualLogger) LogAudit(eventType AuditEventType, resourceID, resourceType string, oldValue, newValue interface{}) {
	cl.logger.LogAuditEvent(cl.ctx, AuditEvent{
		Type:         eventType,
		UserID:       cl.userID,
		ResourceID:   resourceID,
		ResourceType: resourceType,
		Action:       cl.operation,
		OldValue:     oldValue,
		NewValue:     newValue,
		Timestamp:    time.Now(),
	})
}

// SanitizeForLogging removes sensitive information from data before logging
func SanitizeForLogging(data interface{}) interface{} {
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		return sanitizeString(v)
	case map[string]interface{}:
		return sanitizeMap(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = SanitizeForLogging(item)
		}
		return out
	default:
		return data
	}
}

var sensitiveWords = []string{"password", "token", "secret", "apikey", "api_key", "authorization", "credential"}

func isSensitive(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range sensitiveWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func sanitizeString(s string) string {
	if isSensitive(s) {
		return "[REDACTED]"
	}
	return s
}

func sanitizeMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		if isSensitive(k) {
			result[k] = "[REDACTED]"
			continue
		}
		result[k] = SanitizeForLogging(v)
	}
	return result
}
