package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"huellas/internal/models"
)

func TestPostTableStats(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.LostPost{}, &models.ReportedPost{}))
	uid := uint(1)
	require.NoError(t, db.Create(&models.User{ID: uid, Email: "ana@example.com", Password: "x"}).Error)
	for _, st := range []models.Status{models.StatusActive, models.StatusActive, models.StatusResolved} {
		require.NoError(t, db.Create(&models.LostPost{PostBase: models.PostBase{UserID: &uid, Title: "Toby", Status: st}}).Error)
	}

	stats, err := PostTableStats(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, stats, len(models.PostKinds))

	byKind := map[models.PostKind]PostTableStat{}
	for _, s := range stats {
		byKind[s.Kind] = s
	}

	lost := byKind[models.KindLost]
	assert.True(t, lost.Exists)
	assert.Equal(t, models.KindLost.Table(), lost.Table)
	assert.EqualValues(t, 3, lost.Total)
	assert.Equal(t, map[models.Status]int64{models.StatusActive: 2, models.StatusResolved: 1}, lost.ByStatus)
	assert.Equal(t, []models.Status{models.StatusActive, models.StatusResolved}, lost.Statuses())

	reported := byKind[models.KindReported]
	assert.True(t, reported.Exists)
	assert.Zero(t, reported.Total)

	assert.False(t, byKind[models.KindAdoption].Exists, "table not migrated")
}
