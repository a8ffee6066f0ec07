package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gate-checkin-backend/config"
	"gate-checkin-backend/internal/model"
	"gate-checkin-backend/internal/store"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&model.Provider{},
		&model.Assignment{},
		&model.StaffDetail{},
		&model.CheckInRecord{},
	))
	return db
}

func TestService_ReconcileOnce(t *testing.T) {
	db := newSQLiteDB(t)
	s := store.NewGormStore(db)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-30 * time.Hour)

	records := map[string]*model.CheckInRecord{
		"stale":  {EventID: "E1", BadgeID: "A1", SignInTime: now.Add(-26 * time.Hour)},
		"fresh":  {EventID: "E1", BadgeID: "A2", SignInTime: now.Add(-2 * time.Hour)},
		"closed": {EventID: "E1", BadgeID: "A3", SignInTime: now.Add(-48 * time.Hour), SignOutTime: &earlier, ClosedBy: model.ClosedByScan},
	}
	for _, rec := range records {
		rec.StaffName = "Unknown Staff"
		rec.CheckInMethod = model.MethodQRScan
		rec.CheckInTime = rec.SignInTime
		require.NoError(t, s.CreateCheckIn(context.Background(), rec))
	}

	var reported int64
	svc := NewService(&config.ReconcileConfig{Enabled: true, MaxOpen: 24 * time.Hour}, s, func(n int64) { reported += n })
	svc.now = func() time.Time { return now }

	assert.Equal(t, int64(1), svc.ReconcileOnce(context.Background()))
	assert.Equal(t, int64(1), reported)

	var stale model.CheckInRecord
	require.NoError(t, db.First(&stale, "id = ?", records["stale"].ID).Error)
	require.NotNil(t, stale.SignOutTime)
	assert.True(t, now.Equal(*stale.SignOutTime))
	assert.Equal(t, model.ClosedByReconcile, stale.ClosedBy)

	var fresh model.CheckInRecord
	require.NoError(t, db.First(&fresh, "id = ?", records["fresh"].ID).Error)
	assert.Nil(t, fresh.SignOutTime)

	var closed model.CheckInRecord
	require.NoError(t, db.First(&closed, "id = ?", records["closed"].ID).Error)
	assert.Equal(t, model.ClosedByScan, closed.ClosedBy, "already closed sessions are left alone")

	assert.Zero(t, svc.ReconcileOnce(context.Background()))
}

func TestService_RunDisabledReturns(t *testing.T) {
	svc := NewService(&config.ReconcileConfig{Enabled: false}, nil, nil)

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when disabled")
	}
}

func TestService_RunStopsOnCancel(t *testing.T) {
	db := newSQLiteDB(t)
	svc := NewService(&config.ReconcileConfig{Enabled: true, Interval: 10 * time.Millisecond, MaxOpen: time.Hour}, store.NewGormStore(db), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
