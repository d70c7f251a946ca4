package postgres

import (
	"context"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"gorm.io/gorm"
)

type UserPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).Create(user).Error
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).Save(user).Error
}

// Delete removes the user together with its subject assignments.
func (u *UserPostgreSQL) Delete(ctx context.Context, id string) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("faculty_id = ?", id).Delete(&models.FacultySubject{}).Error; err != nil {
			return err
		}
		return notFoundIfUnaffected(tx.Delete(&models.User{}, "id = ?", id))
	})
}

func (u *UserPostgreSQL) GetByRole(ctx context.Context, role models.UserRole, filters repositories.UserFilters) ([]*models.User, int64, error) {
	query := u.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role)
	if filters.Approved != nil {
		query = query.Where("is_approved = ?", *filters.Approved)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = u.helpers.ApplyPaginationAndSort(query, "created_at", "desc", filters.Limit, filters.Offset)

	var users []*models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (u *UserPostgreSQL) SetApproved(ctx context.Context, id string, approved bool) error {
	return notFoundIfUnaffected(u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_approved", approved))
}
