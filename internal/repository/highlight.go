package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"huellas/internal/models"
)

// HighlightRepository stores the posts a user saved.
type HighlightRepository interface {
	Toggle(ctx context.Context, userID uint, postID string, kind models.PostKind) (bool, error)
	List(ctx context.Context, userID uint) ([]models.Highlight, error)
	IsHighlighted(ctx context.Context, userID uint, postID string, kind models.PostKind) (bool, error)
}

type highlightRepository struct {
	db *gorm.DB
}

// NewHighlightRepository returns a HighlightRepository backed by db.
func NewHighlightRepository(db *gorm.DB) HighlightRepository {
	return &highlightRepository{db: db}
}

// Toggle removes an existing highlight or adds a missing one and reports the
// resulting state. Losing an insert race to the unique index counts as added.
func (r *highlightRepository) Toggle(ctx context.Context, userID uint, postID string, kind models.PostKind) (bool, error) {
	var existing models.Highlight
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ? AND post_type = ?", userID, postID, kind).
		First(&existing).Error
	switch {
	case err == nil:
		if err := r.db.WithContext(ctx).Delete(&existing).Error; err != nil {
			return true, models.NewPersistenceError(err)
		}
		return false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, models.NewPersistenceError(err)
	}

	h := models.Highlight{UserID: userID, PostID: postID, PostType: kind}
	if err := r.db.WithContext(ctx).Create(&h).Error; err != nil {
		if isUniqueViolation(err) {
			return true, nil
		}
		return false, models.NewPersistenceError(err)
	}
	return true, nil
}

func (r *highlightRepository) List(ctx context.Context, userID uint) ([]models.Highlight, error) {
	var out []models.Highlight
	if err := readDB(r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, models.NewPersistenceError(err)
	}
	return out, nil
}

func (r *highlightRepository) IsHighlighted(ctx context.Context, userID uint, postID string, kind models.PostKind) (bool, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Highlight{}).
		Where("user_id = ? AND post_id = ? AND post_type = ?", userID, postID, kind).
		Count(&n).Error; err != nil {
		return false, models.NewPersistenceError(err)
	}
	return n > 0, nil
}
