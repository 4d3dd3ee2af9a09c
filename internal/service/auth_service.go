package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"huellas/internal/middleware"
	"huellas/internal/models"
	"huellas/internal/repository"
	"huellas/internal/validation"
)

// TokenIssuer signs and revokes access tokens.
type TokenIssuer interface {
	IssueToken(userID uint) (string, middleware.Claims, error)
	Revoke(ctx context.Context, claims middleware.Claims) error
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token   string          `json:"token"`
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile"`
}

type AuthService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	tokens   TokenIssuer
	cost     int
}

// NewAuthService builds an AuthService. cost is the bcrypt cost for
// passwords, bcrypt.DefaultCost when out of range.
func NewAuthService(users repository.UserRepository, profiles repository.ProfileRepository, tokens TokenIssuer, cost int) *AuthService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, profiles: profiles, tokens: tokens, cost: cost}
}

func errInvalidCredentials() error {
	return models.NewUnauthorizedError("Invalid email or password")
}

func (s *AuthService) Signup(ctx context.Context, email, password string) (*AuthResult, error) {
	email = models.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("User already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{Email: email, Password: string(hashed)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "User signed up", "user_id", user.ID)
	return s.session(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errInvalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			middleware.Logger.WarnContext(ctx, "Stored password hash unreadable", "user_id", user.ID, "error", err)
		}
		return nil, errInvalidCredentials()
	}
	return s.session(ctx, user)
}

// session issues a token and makes sure the profile exists.
func (s *AuthService) session(ctx context.Context, user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.IssueToken(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	profile, err := s.profiles.GetOrCreate(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user, Profile: profile}, nil
}

// Logout revokes the token described by claims.
func (s *AuthService) Logout(ctx context.Context, claims middleware.Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return models.NewUnavailableError("Could not revoke token", err)
	}
	return nil
}
