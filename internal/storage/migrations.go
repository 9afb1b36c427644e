package storage

import (
	"gorm.io/gorm"

	"github.com/TheHenryLLC/site_backend/internal/model"
)

// backfillContactStatuses assigns the default status to contacts recorded
// before the status column existed.
func backfillContactStatuses(database *gorm.DB) error {
	assignments := map[string]any{
		"status": model.ContactStatusNew,
	}

	return database.Model(&model.ContactMessage{}).
		Where("status IS NULL OR TRIM(status) = ''").
		Updates(assignments).Error
}
