package repository

import (
	"context"

	"gorm.io/gorm"

	"huellas/internal/models"
	"huellas/internal/search"
)

// VeterinarianRepository reads the clinic directory.
type VeterinarianRepository interface {
	ListActive(ctx context.Context, q search.VetQuery) ([]models.Veterinarian, error)
	GetByID(ctx context.Context, id string) (*models.Veterinarian, error)
	Create(ctx context.Context, vet *models.Veterinarian) error
}

type veterinarianRepository struct {
	db *gorm.DB
}

// NewVeterinarianRepository returns a VeterinarianRepository backed by db.
func NewVeterinarianRepository(db *gorm.DB) VeterinarianRepository {
	return &veterinarianRepository{db: db}
}

func (r *veterinarianRepository) ListActive(ctx context.Context, q search.VetQuery) ([]models.Veterinarian, error) {
	var out []models.Veterinarian
	if err := q.Apply(readDB(r.db).WithContext(ctx).Model(&models.Veterinarian{})).Find(&out).Error; err != nil {
		return nil, models.NewPersistenceError(err)
	}
	return out, nil
}

func (r *veterinarianRepository) GetByID(ctx context.Context, id string) (*models.Veterinarian, error) {
	var v models.Veterinarian
	if err := readDB(r.db).WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, storageError(err, "Veterinarian", id)
	}
	return &v, nil
}

// Create is used by seeding.
func (r *veterinarianRepository) Create(ctx context.Context, vet *models.Veterinarian) error {
	if err := r.db.WithContext(ctx).Create(vet).Error; err != nil {
		return models.NewPersistenceError(err)
	}
	return nil
}
