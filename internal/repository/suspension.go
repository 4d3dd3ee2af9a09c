package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"huellas/internal/models"
)

// SuspensionRepository keeps the moderation log of suspended posts.
type SuspensionRepository interface {
	SuspensionChecker
	Suspend(ctx context.Context, kind models.PostKind, postID, reason, reasonCode string, by uint) (*models.SuspendedPostLog, models.Post, error)
	List(ctx context.Context, limit int) ([]models.SuspendedPostLog, error)
}

type suspensionRepository struct {
	db *gorm.DB
}

// NewSuspensionRepository returns a SuspensionRepository backed by db.
func NewSuspensionRepository(db *gorm.DB) SuspensionRepository {
	return &suspensionRepository{db: db}
}

func (r *suspensionRepository) IsSuspended(ctx context.Context, postID string, kind models.PostKind) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.SuspendedPostLog{}).
		Where("original_post_id = ? AND post_type = ?", postID, kind).
		Count(&n).Error; err != nil {
		return false, models.NewPersistenceError(err)
	}
	return n > 0, nil
}

// Suspend forces the post inactive and records a snapshot of it in one transaction.
func (r *suspensionRepository) Suspend(ctx context.Context, kind models.PostKind, postID, reason, reasonCode string, by uint) (*models.SuspendedPostLog, models.Post, error) {
	var (
		entry models.SuspendedPostLog
		post  models.Post
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		post, err = NewPosts(tx, r).For(kind).ForceStatus(ctx, postID, models.StatusInactive)
		if err != nil {
			return err
		}
		snapshot, err := json.Marshal(models.Tag(post))
		if err != nil {
			return models.NewInternalError(fmt.Errorf("snapshot post: %w", err))
		}
		entry = models.SuspendedPostLog{
			OriginalPostID: postID,
			PostType:       kind,
			Reason:         reason,
			ReasonCode:     reasonCode,
			Data:           snapshot,
			SuspendedBy:    by,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return models.NewPersistenceError(err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, storageError(err, "Post", postID)
	}
	return &entry, post, nil
}

func (r *suspensionRepository) List(ctx context.Context, limit int) ([]models.SuspendedPostLog, error) {
	q := readDB(r.db).WithContext(ctx).Order("suspended_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.SuspendedPostLog
	if err := q.Find(&out).Error; err != nil {
		return nil, models.NewPersistenceError(err)
	}
	return out, nil
}
