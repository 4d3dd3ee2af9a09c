package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"huellas/internal/models"
)

// ProfileRepository stores public user profiles.
type ProfileRepository interface {
	GetOrCreate(ctx context.Context, userID uint, email string) (*models.Profile, error)
	Get(ctx context.Context, userID uint) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	Delete(ctx context.Context, userID uint) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a ProfileRepository backed by db.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// GetOrCreate returns the profile of userID, creating it from the email's
// local part on first access. Concurrent first accesses converge on one row.
func (r *profileRepository) GetOrCreate(ctx context.Context, userID uint, email string) (*models.Profile, error) {
	p := models.Profile{UserID: userID, DisplayName: models.DisplayNameFromEmail(email)}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
		return nil, models.NewPersistenceError(err)
	}
	return r.Get(ctx, userID)
}

func (r *profileRepository) Get(ctx context.Context, userID uint) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, storageError(err, "Profile", userID)
	}
	return &p, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	res := r.db.WithContext(ctx).Model(profile).Select("display_name", "avatar_url", "country", "province", "updated_at").Updates(profile)
	if res.Error != nil {
		return models.NewPersistenceError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", profile.UserID)
	}
	return nil
}

func (r *profileRepository) Delete(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Profile{}, "user_id = ?", userID).Error; err != nil {
		return models.NewPersistenceError(err)
	}
	return nil
}
