package postgres

import (
	"strings"

	"gorm.io/gorm"
)

const defaultPageSize = 100

// SharedHelpers holds query fragments reused across repositories.
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyPaginationAndSort orders by sortBy and limits the result. A zero
// limit means the default page size; a negative one disables the limit.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	if sortBy != "" {
		order := "DESC"
		if strings.EqualFold(sortOrder, "asc") {
			order = "ASC"
		}
		query = query.Order(sortBy + " " + order)
	}

	switch {
	case limit == 0:
		query = query.Limit(defaultPageSize)
	case limit > 0:
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// notFoundIfUnaffected turns a no-op write into gorm.ErrRecordNotFound.
func notFoundIfUnaffected(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
