package postgres

import (
	"context"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"gorm.io/gorm"
)

type AuditPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAuditPostgreSQL(db *gorm.DB) repositories.AuditRepository {
	return &AuditPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a *AuditPostgreSQL) Create(ctx context.Context, log *models.AuditLog) error {
	return a.db.WithContext(ctx).Create(log).Error
}

func (a *AuditPostgreSQL) List(ctx context.Context, filters repositories.AuditFilters) ([]*models.AuditLog, int64, error) {
	query := a.db.WithContext(ctx).Model(&models.AuditLog{})
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.TargetType != "" {
		query = query.Where("target_type = ?", filters.TargetType)
	}
	if filters.TargetID != "" {
		query = query.Where("target_id = ?", filters.TargetID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.helpers.ApplyPaginationAndSort(query, "created_at", "desc", filters.Limit, filters.Offset)

	var logs []*models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
