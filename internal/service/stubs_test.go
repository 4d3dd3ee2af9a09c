package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huellas/internal/models"
	"huellas/internal/ownership"
	"huellas/internal/repository"
	"huellas/internal/search"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	kind           models.PostKind
	createFn       func(context.Context, models.Post) error
	listActiveFn   func(context.Context, search.Query) ([]models.Post, error)
	getByIDFn      func(context.Context, string) (models.Post, error)
	updateStatusFn func(context.Context, string, models.Status, ownership.Proof) (models.Post, error)
	forceStatusFn  func(context.Context, string, models.Status) (models.Post, error)
	deleteFn       func(context.Context, string, ownership.Proof) error
	listByUserFn   func(context.Context, uint) ([]models.Post, error)
	deleteByUserFn func(context.Context, uint) (int64, error)
	purgeExpiredFn func(context.Context, time.Time) (int64, error)
}

func (s *postRepoStub) Kind() models.PostKind { return s.kind }
func (s *postRepoStub) Create(ctx context.Context, post models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) ListActive(ctx context.Context, q search.Query) ([]models.Post, error) {
	return s.listActiveFn(ctx, q)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) UpdateStatus(ctx context.Context, id string, to models.Status, proof ownership.Proof) (models.Post, error) {
	return s.updateStatusFn(ctx, id, to, proof)
}
func (s *postRepoStub) ForceStatus(ctx context.Context, id string, to models.Status) (models.Post, error) {
	return s.forceStatusFn(ctx, id, to)
}
func (s *postRepoStub) Delete(ctx context.Context, id string, proof ownership.Proof) error {
	return s.deleteFn(ctx, id, proof)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID uint) ([]models.Post, error) {
	return s.listByUserFn(ctx, userID)
}
func (s *postRepoStub) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	return s.deleteByUserFn(ctx, userID)
}
func (s *postRepoStub) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	return s.purgeExpiredFn(ctx, before)
}

func noopPostRepo(kind models.PostKind) *postRepoStub {
	return &postRepoStub{
		kind:         kind,
		createFn:     func(_ context.Context, _ models.Post) error { return nil },
		listActiveFn: func(_ context.Context, _ search.Query) ([]models.Post, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id string) (models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		},
		updateStatusFn: func(_ context.Context, _ string, _ models.Status, _ ownership.Proof) (models.Post, error) {
			return models.NewPost(kind), nil
		},
		forceStatusFn: func(_ context.Context, _ string, _ models.Status) (models.Post, error) {
			return models.NewPost(kind), nil
		},
		deleteFn:       func(_ context.Context, _ string, _ ownership.Proof) error { return nil },
		listByUserFn:   func(_ context.Context, _ uint) ([]models.Post, error) { return nil, nil },
		deleteByUserFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		purgeExpiredFn: func(_ context.Context, _ time.Time) (int64, error) { return 0, nil },
	}
}

// postStoreStub serves one stub per kind.
type postStoreStub map[models.PostKind]*postRepoStub

func (s postStoreStub) For(kind models.PostKind) repository.PostRepository { return s[kind] }

func noopPostStore() postStoreStub {
	out := postStoreStub{}
	for _, k := range models.PostKinds {
		out[k] = noopPostRepo(k)
	}
	return out
}

// highlightRepoStub is a stub for repository.HighlightRepository.
type highlightRepoStub struct {
	toggleFn        func(context.Context, uint, string, models.PostKind) (bool, error)
	listFn          func(context.Context, uint) ([]models.Highlight, error)
	isHighlightedFn func(context.Context, uint, string, models.PostKind) (bool, error)
}

func (s *highlightRepoStub) Toggle(ctx context.Context, userID uint, postID string, kind models.PostKind) (bool, error) {
	return s.toggleFn(ctx, userID, postID, kind)
}
func (s *highlightRepoStub) List(ctx context.Context, userID uint) ([]models.Highlight, error) {
	return s.listFn(ctx, userID)
}
func (s *highlightRepoStub) IsHighlighted(ctx context.Context, userID uint, postID string, kind models.PostKind) (bool, error) {
	return s.isHighlightedFn(ctx, userID, postID, kind)
}

func noopHighlightRepo() *highlightRepoStub {
	return &highlightRepoStub{
		toggleFn:        func(_ context.Context, _ uint, _ string, _ models.PostKind) (bool, error) { return true, nil },
		listFn:          func(_ context.Context, _ uint) ([]models.Highlight, error) { return nil, nil },
		isHighlightedFn: func(_ context.Context, _ uint, _ string, _ models.PostKind) (bool, error) { return false, nil },
	}
}

// reportRepoStub is a stub for repository.ReportRepository.
type reportRepoStub struct {
	createFn  func(context.Context, *models.Report) error
	getByIDFn func(context.Context, uint) (*models.Report, error)
	listFn    func(context.Context, repository.ReportFilter) ([]models.Report, error)
	resolveFn func(context.Context, uint, models.ReportStatus, uint, string) (*models.Report, error)
}

func (s *reportRepoStub) Create(ctx context.Context, report *models.Report) error {
	return s.createFn(ctx, report)
}
func (s *reportRepoStub) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	return s.getByIDFn(ctx, id)
}
func (s *reportRepoStub) List(ctx context.Context, filter repository.ReportFilter) ([]models.Report, error) {
	return s.listFn(ctx, filter)
}
func (s *reportRepoStub) Resolve(ctx context.Context, id uint, status models.ReportStatus, by uint, note string) (*models.Report, error) {
	return s.resolveFn(ctx, id, status, by, note)
}

func noopReportRepo() *reportRepoStub {
	return &reportRepoStub{
		createFn: func(_ context.Context, r *models.Report) error {
			r.ID = 1
			r.Status = models.ReportOpen
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Report, error) { return &models.Report{ID: id}, nil },
		listFn:    func(_ context.Context, _ repository.ReportFilter) ([]models.Report, error) { return nil, nil },
		resolveFn: func(_ context.Context, id uint, status models.ReportStatus, by uint, note string) (*models.Report, error) {
			return &models.Report{ID: id, Status: status, ResolvedBy: &by, ResolutionNote: note}, nil
		},
	}
}

// suspensionRepoStub is a stub for repository.SuspensionRepository.
type suspensionRepoStub struct {
	isSuspendedFn func(context.Context, string, models.PostKind) (bool, error)
	suspendFn     func(context.Context, models.PostKind, string, string, string, uint) (*models.SuspendedPostLog, models.Post, error)
	listFn        func(context.Context, int) ([]models.SuspendedPostLog, error)
}

func (s *suspensionRepoStub) IsSuspended(ctx context.Context, postID string, kind models.PostKind) (bool, error) {
	return s.isSuspendedFn(ctx, postID, kind)
}
func (s *suspensionRepoStub) Suspend(ctx context.Context, kind models.PostKind, postID, reason, reasonCode string, by uint) (*models.SuspendedPostLog, models.Post, error) {
	return s.suspendFn(ctx, kind, postID, reason, reasonCode, by)
}
func (s *suspensionRepoStub) List(ctx context.Context, limit int) ([]models.SuspendedPostLog, error) {
	return s.listFn(ctx, limit)
}

func noopSuspensionRepo() *suspensionRepoStub {
	return &suspensionRepoStub{
		isSuspendedFn: func(_ context.Context, _ string, _ models.PostKind) (bool, error) { return false, nil },
		suspendFn: func(_ context.Context, kind models.PostKind, postID, reason, code string, by uint) (*models.SuspendedPostLog, models.Post, error) {
			p := models.NewPost(kind)
			p.Base().ID = postID
			p.Base().Status = models.StatusInactive
			return &models.SuspendedPostLog{ID: 1, OriginalPostID: postID, PostType: kind, Reason: reason, ReasonCode: code, SuspendedBy: by}, p, nil
		},
		listFn: func(_ context.Context, _ int) ([]models.SuspendedPostLog, error) { return nil, nil },
	}
}

// profileRepoStub is a stub for repository.ProfileRepository.
type profileRepoStub struct {
	getOrCreateFn func(context.Context, uint, string) (*models.Profile, error)
	getFn         func(context.Context, uint) (*models.Profile, error)
	updateFn      func(context.Context, *models.Profile) error
	deleteFn      func(context.Context, uint) error
}

func (s *profileRepoStub) GetOrCreate(ctx context.Context, userID uint, email string) (*models.Profile, error) {
	return s.getOrCreateFn(ctx, userID, email)
}
func (s *profileRepoStub) Get(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.getFn(ctx, userID)
}
func (s *profileRepoStub) Update(ctx context.Context, profile *models.Profile) error {
	return s.updateFn(ctx, profile)
}
func (s *profileRepoStub) Delete(ctx context.Context, userID uint) error {
	return s.deleteFn(ctx, userID)
}

func noopProfileRepo() *profileRepoStub {
	return &profileRepoStub{
		getOrCreateFn: func(_ context.Context, userID uint, email string) (*models.Profile, error) {
			return &models.Profile{UserID: userID, DisplayName: models.DisplayNameFromEmail(email)}, nil
		},
		getFn:    func(_ context.Context, userID uint) (*models.Profile, error) { return nil, models.NewNotFoundError("Profile", userID) },
		updateFn: func(_ context.Context, _ *models.Profile) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn        func(context.Context, *models.User) error
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	setAdminFn      func(context.Context, string, bool) (*models.User, error)
	listAdminsFn    func(context.Context) ([]models.User, error)
	deleteFn        func(context.Context, uint) error
	deleteAccountFn func(context.Context, uint) (repository.AccountDeletion, error)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) SetAdmin(ctx context.Context, email string, admin bool) (*models.User, error) {
	return s.setAdminFn(ctx, email, admin)
}
func (s *userRepoStub) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.listAdminsFn(ctx)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) DeleteAccount(ctx context.Context, id uint) (repository.AccountDeletion, error) {
	return s.deleteAccountFn(ctx, id)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			return nil
		},
		getByIDFn:    func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		setAdminFn: func(_ context.Context, email string, admin bool) (*models.User, error) {
			return &models.User{ID: 1, Email: email, IsAdmin: admin}, nil
		},
		listAdminsFn: func(_ context.Context) ([]models.User, error) { return nil, nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
		deleteAccountFn: func(_ context.Context, _ uint) (repository.AccountDeletion, error) {
			return repository.AccountDeletion{}, nil
		},
	}
}

// assertCode asserts that err is an AppError carrying code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeUnauthorized)
}
