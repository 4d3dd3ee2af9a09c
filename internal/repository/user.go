package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"huellas/internal/models"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetAdmin(ctx context.Context, email string, admin bool) (*models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id uint) error
	DeleteAccount(ctx context.Context, id uint) (AccountDeletion, error)
}

// AccountDeletion counts what DeleteAccount removed.
type AccountDeletion struct {
	Posts      map[models.PostKind]int64 `json:"posts"`
	Highlights int64                     `json:"highlights"`
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("User already exists")
		}
		return models.NewPersistenceError(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, storageError(err, "User", id)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has the address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewPersistenceError(err)
	}
	return &user, nil
}

func (r *userRepository) SetAdmin(ctx context.Context, email string, admin bool) (*models.User, error) {
	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	if err := r.db.WithContext(ctx).Model(user).Update("is_admin", admin).Error; err != nil {
		return nil, models.NewPersistenceError(err)
	}
	user.IsAdmin = admin
	return user, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Where("is_admin = ?", true).Order("email").Find(&users).Error; err != nil {
		return nil, models.NewPersistenceError(err)
	}
	return users, nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return models.NewPersistenceError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// DeleteAccount removes the user's posts of every kind, highlights, profile
// and user row in one transaction.
func (r *userRepository) DeleteAccount(ctx context.Context, id uint) (AccountDeletion, error) {
	out := AccountDeletion{Posts: make(map[models.PostKind]int64, len(models.PostKinds))}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := NewPosts(tx, nil)
		for _, kind := range models.PostKinds {
			n, err := posts.For(kind).DeleteByUser(ctx, id)
			if err != nil {
				return err
			}
			out.Posts[kind] = n
		}

		res := tx.Where("user_id = ?", id).Delete(&models.Highlight{})
		if res.Error != nil {
			return models.NewPersistenceError(res.Error)
		}
		out.Highlights = res.RowsAffected

		if err := NewProfileRepository(tx).Delete(ctx, id); err != nil {
			return err
		}
		return NewUserRepository(tx).Delete(ctx, id)
	})
	if err != nil {
		return AccountDeletion{}, storageError(err, "User", id)
	}
	return out, nil
}
