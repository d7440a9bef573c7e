package repo

import (
	"context"

	"webshop/internal/models"
)

func (r *GormRepo) CreateLog(ctx context.Context, entry *models.UserLog) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}

// RecentLogs returns log entries newest first, optionally filtered to one
// user.
func (r *GormRepo) RecentLogs(ctx context.Context, userID *uint, limit int) ([]models.UserLog, error) {
	q := r.DB.WithContext(ctx).Model(&models.UserLog{})
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	var entries []models.UserLog
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
