package activity

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"webshop/internal/models"
	"webshop/internal/repo"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.UserLog{}))
	return &Service{Repo: repo.New(db)}, db
}

func TestRecentNewestFirst(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, action := range []string{models.ActionView, models.ActionView, models.ActionBuy} {
		entry := models.UserLog{
			UserID:      1,
			Action:      action,
			Description: action,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&entry).Error)
	}

	entries, err := svc.Recent(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, models.ActionBuy, entries[0].Action, "newest entry first")
	require.True(t, entries[0].CreatedAt.After(entries[2].CreatedAt))
}

func TestRecentFiltersByUser(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	svc.Record(ctx, 1, models.ActionView, "one")
	svc.Record(ctx, 2, models.ActionBuy, "two")

	userID := uint(2)
	entries, err := svc.Recent(ctx, &userID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint(2), entries[0].UserID)

	all, err := svc.Recent(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRecordFailureIsSwallowed(t *testing.T) {
	svc, db := newService(t)

	// simulate a broken log store; Record must not panic or error out
	require.NoError(t, db.Migrator().DropTable(&models.UserLog{}))
	svc.Record(context.Background(), 1, models.ActionView, "doomed")
}

func TestRecentLimitBounds(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		svc.Record(ctx, 1, models.ActionView, "entry")
	}

	entries, err := svc.Recent(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, entries, 20, "non-positive limit falls back to the default")

	entries, err = svc.Recent(ctx, nil, 5)
	require.NoError(t, err)
	require.Len(t, entries, 5)
}
