package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"huellas/internal/cache"
	"huellas/internal/catalog"
	"huellas/internal/middleware"
	"huellas/internal/models"
	"huellas/internal/repository"
)

const maxDisplayNameLength = 100

type ProfileService struct {
	profiles repository.ProfileRepository
	users    repository.UserRepository
	uploads  *UploadService
	catalog  *catalog.Catalog
	cache    *cache.Store
}

// UpdateProfileInput changes only the fields that are set. An empty Country
// clears the region.
type UpdateProfileInput struct {
	UserID      uint
	DisplayName *string
	Country     *string
	Province    *string
}

func NewProfileService(
	profiles repository.ProfileRepository,
	users repository.UserRepository,
	uploads *UploadService,
	cat *catalog.Catalog,
	store *cache.Store,
) *ProfileService {
	if cat == nil {
		cat = catalog.Default()
	}
	return &ProfileService{profiles: profiles, users: users, uploads: uploads, catalog: cat, cache: store}
}

// Get returns the caller's profile, creating it on first access.
func (s *ProfileService) Get(ctx context.Context, userID uint) (*models.Profile, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to see your profile")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profiles.GetOrCreate(ctx, userID, user.Email)
}

func (s *ProfileService) Update(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	profile, err := s.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, models.NewValidationError("Display name is required")
		}
		if utf8.RuneCountInString(name) > maxDisplayNameLength {
			return nil, models.NewValidationError("Display name too long (max 100 characters)")
		}
		profile.DisplayName = name
	}

	if in.Country != nil {
		country := strings.TrimSpace(*in.Country)
		if country != "" {
			ct, ok := s.catalog.Country(country)
			if !ok {
				return nil, models.NewValidationError("Unknown country")
			}
			country = ct.Name
		}
		if country != profile.Country {
			profile.Province = ""
		}
		profile.Country = country
	}

	if in.Province != nil {
		province := strings.TrimSpace(*in.Province)
		if province != "" {
			if profile.Country == "" {
				return nil, models.NewValidationError("Choose a country before a province")
			}
			if !s.catalog.HasProvince(profile.Country, province) {
				return nil, models.NewValidationError("Province does not belong to the selected country")
			}
		}
		profile.Province = province
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// UploadAvatar stores a new avatar and points the profile at it. The image is
// removed again when the profile cannot be saved.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uint, in UploadInput) (*models.Profile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.uploads == nil {
		return nil, models.NewValidationError("Image uploads are not available")
	}
	img, err := s.uploads.Upload(ctx, BucketAvatars, in)
	if err != nil {
		return nil, err
	}

	profile.AvatarURL = img.URL
	if err := s.profiles.Update(ctx, profile); err != nil {
		s.uploads.Remove(ctx, img)
		return nil, err
	}
	return profile, nil
}

// DeleteAccount removes the user together with everything they own.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID uint) (repository.AccountDeletion, error) {
	if userID == 0 {
		return repository.AccountDeletion{}, models.NewUnauthorizedError("Sign in to delete your account")
	}
	deleted, err := s.users.DeleteAccount(ctx, userID)
	if err != nil {
		return repository.AccountDeletion{}, err
	}
	for kind, n := range deleted.Posts {
		if n > 0 {
			s.cache.BumpVersion(ctx, cache.ListingVersionKey(string(kind)))
		}
	}
	middleware.Logger.InfoContext(ctx, "Account deleted",
		"user_id", userID,
		"posts", deleted.Posts,
		"highlights", deleted.Highlights,
	)
	return deleted, nil
}
