// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"huellas/internal/database"
	"huellas/internal/models"
)

var dbSeq atomic.Int64

// NewSQLiteDB opens a private in-memory database with every persistent model migrated.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:huellas_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, G: 120, B: 40, A: 255})
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// UserID returns a pointer for ownership fields.
func UserID(id uint) *uint { return &id }

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// LostPost builds a listed lost post owned by userID.
func LostPost(userID uint, title string, created time.Time) *models.LostPost {
	return &models.LostPost{
		PostBase: models.PostBase{
			UserID:       UserID(userID),
			Title:        title,
			LocationText: "Palermo, Buenos Aires",
			Status:       models.StatusActive,
			CreatedAt:    created,
		},
		ExpiresAt: created.Add(30 * 24 * time.Hour),
	}
}

// SecretHash is a syntactically valid bcrypt hash for fixtures that never verify it.
const SecretHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z6nC9bXrFvL5n5sQmIuVY7xC"
