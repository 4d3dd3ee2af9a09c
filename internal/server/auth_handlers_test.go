package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"huellas/internal/config"
	"huellas/internal/middleware"
	"huellas/internal/models"
	"huellas/internal/repository"
	"huellas/internal/service"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	user.ID = 1
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetAdmin(ctx context.Context, email string, admin bool) (*models.User, error) {
	args := m.Called(ctx, email, admin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteAccount(ctx context.Context, id uint) (repository.AccountDeletion, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.AccountDeletion), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetOrCreate(ctx context.Context, userID uint, email string) (*models.Profile, error) {
	args := m.Called(ctx, userID, email)
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) Get(ctx context.Context, userID uint) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockProfileRepository) Delete(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

func newMockAuthServer(users *MockUserRepository, profiles *MockProfileRepository) *fiber.App {
	cfg := &config.Config{JWTSecret: testJWTSecret, JWTIssuer: "huellas-api", JWTAudience: "huellas-app"}
	auth := middleware.NewAuthenticator(cfg, nil)
	s := &Server{
		config:      cfg,
		auth:        auth,
		authService: service.NewAuthService(users, profiles, auth, bcrypt.MinCost),
	}
	app := fiber.New()
	app.Post("/signup", s.Signup)
	app.Post("/login", s.Login)
	return app
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(*MockUserRepository, *MockProfileRepository)
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]string{"email": "Test@Example.com", "password": "secreto1"},
			mockSetup: func(users *MockUserRepository, profiles *MockProfileRepository) {
				users.On("GetByEmail", mock.Anything, "test@example.com").Return(nil, nil)
				users.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.Email == "test@example.com" && u.Password != "secreto1"
				})).Return(nil)
				profiles.On("GetOrCreate", mock.Anything, uint(1), "test@example.com").
					Return(&models.Profile{UserID: 1}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Duplicate User",
			body: map[string]string{"email": "exists@example.com", "password": "secreto1"},
			mockSetup: func(users *MockUserRepository, _ *MockProfileRepository) {
				users.On("GetByEmail", mock.Anything, "exists@example.com").Return(&models.User{ID: 1}, nil)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Short Password",
			body:           map[string]string{"email": "new@example.com", "password": "123"},
			mockSetup:      func(*MockUserRepository, *MockProfileRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Bad Email",
			body:           map[string]string{"email": "not-an-email", "password": "secreto1"},
			mockSetup:      func(*MockUserRepository, *MockProfileRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, profiles := new(MockUserRepository), new(MockProfileRepository)
			tt.mockSetup(users, profiles)
			env := &testEnv{app: newMockAuthServer(users, profiles)}

			resp := env.do(t, http.MethodPost, "/signup", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			users.AssertExpectations(t)
			profiles.AssertExpectations(t)
		})
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secreto1"), bcrypt.MinCost)
	require.NoError(t, err)

	users, profiles := new(MockUserRepository), new(MockProfileRepository)
	users.On("GetByEmail", mock.Anything, "ana@example.com").
		Return(&models.User{ID: 3, Email: "ana@example.com", Password: string(hash)}, nil)
	users.On("GetByEmail", mock.Anything, "nadie@example.com").Return(nil, nil)
	env := &testEnv{app: newMockAuthServer(users, profiles)}

	resp := env.do(t, http.MethodPost, "/login", map[string]string{"email": "ana@example.com", "password": "otra-cosa"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/login", map[string]string{"email": "nadie@example.com", "password": "secreto1"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody[models.ErrorResponse](t, resp)
	assert.Equal(t, "Invalid email or password", body.Error)

	profiles.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthFlow_SignupLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	creds := map[string]string{"email": "ana@example.com", "password": "secreto1"}

	resp := env.do(t, http.MethodPost, "/api/auth/signup", creds)
	requireStatus(t, resp, fiber.StatusCreated)
	signup := decodeBody[service.AuthResult](t, resp)
	require.NotEmpty(t, signup.Token)
	require.NotNil(t, signup.Profile)
	assert.Equal(t, signup.User.ID, signup.Profile.UserID)

	resp = env.do(t, http.MethodPost, "/api/auth/signup", creds)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/login", creds)
	requireStatus(t, resp, fiber.StatusOK)
	token := decodeBody[service.AuthResult](t, resp).Token

	resp = env.do(t, http.MethodGet, "/api/me/profile", nil, withToken(token))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/logout", nil, withToken(token))
	requireStatus(t, resp, fiber.StatusOK)

	resp = env.do(t, http.MethodGet, "/api/me/profile", nil, withToken(token))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "revoked token")

	resp = env.do(t, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
