// Package activity is the append-only user action log. It sits off the
// transactional path: a failed write never aborts a checkout or a payment.
package activity

import (
	"context"
	"fmt"
	"time"

	"webshop/internal/logging"
	"webshop/internal/models"
	"webshop/internal/mykafka"
	"webshop/internal/repo"
)

type Service struct {
	Repo     *repo.GormRepo
	Producer *mykafka.Producer
}

// Record appends one log entry. Errors are logged and swallowed.
func (s *Service) Record(ctx context.Context, userID uint, action, description string) {
	entry := models.UserLog{
		UserID:      userID,
		Action:      action,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.CreateLog(ctx, &entry); err != nil {
		logging.FromContext(ctx).Warn("activity record failed",
			"userID", userID, "action", action, "error", err)
	}

	if s.Producer != nil {
		event := map[string]any{
			"type":        "user_activity",
			"userID":      userID,
			"action":      action,
			"description": description,
		}
		if err := s.Producer.PublishEvent(ctx, "activity_events", fmt.Sprint(userID), event); err != nil {
			logging.FromContext(ctx).Warn("activity event publish failed", "error", err)
		}
	}
}

// Recent returns entries newest first; userID nil means all users.
func (s *Service) Recent(ctx context.Context, userID *uint, limit int) ([]models.UserLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.Repo.RecentLogs(ctx, userID, limit)
}
