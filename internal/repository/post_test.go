package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"huellas/internal/models"
	"huellas/internal/ownership"
	"huellas/internal/search"
	"huellas/internal/testutil"
)

func secretPost(t *testing.T, secret string) models.PostBase {
	t.Helper()
	hash, err := ownership.NewHasher(4).HashSecret(secret)
	require.NoError(t, err)
	return models.PostBase{Title: "Perro visto en la plaza", LocationText: "Plaza Moreno", OwnerSecretHash: &hash}
}

func setupPosts(t *testing.T) (*gorm.DB, *Posts) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return db, NewPosts(db, NewSuspensionRepository(db))
}

func TestPosts_ForEveryKind(t *testing.T) {
	_, posts := setupPosts(t)
	for _, kind := range models.PostKinds {
		assert.Equal(t, kind, posts.For(kind).Kind())
	}
	assert.Panics(t, func() { posts.For("pets") })
}

func TestPostRepository_CreateAndGet(t *testing.T) {
	_, posts := setupPosts(t)
	ctx := context.Background()
	repo := posts.For(models.KindAdoption)

	post := &models.AdoptionPost{
		PostBase: models.PostBase{UserID: testutil.UserID(1), Title: "Michi en adopción", Colors: models.StringList{"Gris", "Blanco"}},
		Age:      "2 meses",
	}
	require.NoError(t, repo.Create(ctx, post))
	require.NotEmpty(t, post.ID)
	assert.Equal(t, models.StatusActive, post.Status)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	adoption, ok := got.(*models.AdoptionPost)
	require.True(t, ok)
	assert.Equal(t, "2 meses", adoption.Age)
	assert.Equal(t, models.StringList{"Gris", "Blanco"}, adoption.Colors)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	err = repo.Create(ctx, &models.LostPost{})
	assert.True(t, models.IsCode(err, models.CodeInternal), "kind mismatch")
}

func TestPostRepository_CreateRejectsMixedOwnership(t *testing.T) {
	_, posts := setupPosts(t)
	base := secretPost(t, "123456")
	base.UserID = testutil.UserID(3)

	err := posts.For(models.KindReported).Create(context.Background(), &models.ReportedPost{PostBase: base})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrOwnershipMode)
}

func TestPostRepository_ListActiveAppliesColorPhase(t *testing.T) {
	_, posts := setupPosts(t)
	ctx := context.Background()
	repo := posts.For(models.KindAdoption)
	now := time.Now()

	for i, colors := range []models.StringList{{"Negro"}, {"Blanco", "Negro"}, {"Gris"}} {
		require.NoError(t, repo.Create(ctx, &models.AdoptionPost{PostBase: models.PostBase{
			UserID:    testutil.UserID(1),
			Title:     "post",
			Colors:    colors,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}}))
	}

	all, err := repo.ListActive(ctx, search.Compose(search.Filters{Kind: models.KindAdoption}, now))
	require.NoError(t, err)
	assert.Len(t, all, 3)

	black, err := repo.ListActive(ctx, search.Compose(search.Filters{Kind: models.KindAdoption, Colors: []string{"negro"}}, now))
	require.NoError(t, err)
	require.Len(t, black, 2)
	assert.Equal(t, models.StringList{"Blanco", "Negro"}, black[0].Base().Colors, "newest first")

	none, err := repo.ListActive(ctx, search.Compose(search.Filters{Kind: models.KindAdoption, Colors: []string{"violeta"}}, now))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPostRepository_UpdateStatusWithSession(t *testing.T) {
	_, posts := setupPosts(t)
	ctx := context.Background()
	repo := posts.For(models.KindLost)

	post := testutil.LostPost(7, "Toby", time.Now())
	require.NoError(t, repo.Create(ctx, post))

	_, err := repo.UpdateStatus(ctx, post.ID, models.StatusResolved, ownership.SessionProof{UserID: 8})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, err = repo.UpdateStatus(ctx, post.ID, models.StatusResolved, ownership.SecretProof{Plaintext: "123456"})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized), "secret proof against a session-owned post")

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Base().Status, "rejected attempts leave the row unchanged")

	updated, err := repo.UpdateStatus(ctx, post.ID, models.StatusResolved, ownership.SessionProof{UserID: 7})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Base().Status)

	_, err = repo.UpdateStatus(ctx, post.ID, models.StatusInactive, ownership.SessionProof{UserID: 7})
	assert.True(t, models.IsCode(err, models.CodeValidation), "owners cannot deactivate")

	_, err = repo.UpdateStatus(ctx, post.ID, models.StatusActive, ownership.SessionProof{UserID: 7})
	require.NoError(t, err)
}

// Both callers read the active row before either writes. Neither write is
// rejected and the row keeps whichever status committed last.
func TestPostRepository_ConcurrentStatusUpdatesLastWriteWins(t *testing.T) {
	db, posts := setupPosts(t)
	ctx := context.Background()
	repo := posts.For(models.KindLost)

	post := testutil.LostPost(7, "Toby", time.Now())
	require.NoError(t, repo.Create(ctx, post))

	var (
		read    sync.WaitGroup
		mu      sync.Mutex
		written []models.Status
	)
	read.Add(2)
	require.NoError(t, db.Callback().Update().Before("gorm:begin_transaction").
		Register("test:both_read", func(*gorm.DB) {
			read.Done()
			read.Wait()
		}))
	require.NoError(t, db.Callback().Update().After("gorm:commit_or_rollback_transaction").
		Register("test:record_write", func(tx *gorm.DB) {
			if set, ok := tx.Statement.Dest.(map[string]interface{}); ok {
				mu.Lock()
				written = append(written, set["status"].(models.Status))
				mu.Unlock()
			}
		}))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = repo.UpdateStatus(ctx, post.ID, models.StatusResolved, ownership.SessionProof{UserID: 7})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = repo.ForceStatus(ctx, post.ID, models.StatusInactive)
	}()
	wg.Wait()

	require.NoError(t, errs[0], "owner")
	require.NoError(t, errs[1], "moderator")
	require.Len(t, written, 2)
	assert.ElementsMatch(t, []models.Status{models.StatusResolved, models.StatusInactive}, written)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, written[1], got.Base().Status)
}

func TestPostRepository_ReportedResolveStoresInactive(t *testing.T) {
	db, posts := setupPosts(t)
	ctx := context.Background()
	repo := posts.For(models.KindReported)

	post := &models.ReportedPost{PostBase: secretPost(t, "654321")}
	require.NoError(t, repo.Create(ctx, post))

	_, err := repo.UpdateStatus(ctx, post.ID, models.StatusResolved, ownership.SecretProof{Plaintext: "000000"})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	updated, err := repo.UpdateStatus(ctx, post.ID, models.StatusResolved, ownership.SecretProof{Plaintext: "654321"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, updated.Base().Status)

	var stored string
	require.NoError(t, db.Raw("SELECT status FROM reported_posts WHERE id = ?", post.ID).Scan(&stored).Error)
	assert.Equal(t, "inactive", stored)

	_, err = repo.UpdateStatus(ctx, post.ID, models.StatusActive, ownership.SecretProof{Plaintext: "654321"})
	require.NoError(t, err, "resolved reported posts can be reactivated")
}

func TestPostRepository_SuspendedReportedCannotBeReactivated(t *testing.T) {
	db, posts := setupPosts(t)
	ctx := context.Background()
	repo := posts.For(models.KindReported)

	post := &models.ReportedPost{PostBase: secretPost(t, "111111")}
	require.NoError(t, repo.Create(ctx, post))

	entry, suspended, err := NewSuspensionRepository(db).Suspend(ctx, models.KindReported, post.ID, "Contenido falso", "fake", 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, suspended.Base().Status)
	assert.Contains(t, string(entry.Data), `"kind":"reported"`)
	assert.NotContains(t, string(entry.Data), "owner_secret_hash")

	_, err = repo.UpdateStatus(ctx, post.ID, models.StatusActive, ownership.SecretProof{Plaintext: "111111"})
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestPostRepository_ForceStatus(t *testing.T) {
	_, posts := setupPosts(t)
	ctx := context.Background()
	repo := posts.For(models.KindClassified)

	post := &models.Classified{PostBase: models.PostBase{UserID: testutil.UserID(1), Title: "Correa"}, Category: models.CategoryAccessories}
	require.NoError(t, repo.Create(ctx, post))

	got, err := repo.ForceStatus(ctx, post.ID, models.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, got.Base().Status)

	_, err = repo.ForceStatus(ctx, post.ID, models.StatusInactive)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = repo.ForceStatus(ctx, "missing", models.StatusInactive)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostRepository_Delete(t *testing.T) {
	_, posts := setupPosts(t)
	ctx := context.Background()
	repo := posts.For(models.KindReported)

	post := &models.ReportedPost{PostBase: secretPost(t, "222222")}
	require.NoError(t, repo.Create(ctx, post))

	err := repo.Delete(ctx, post.ID, ownership.SessionProof{UserID: 1})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	require.NoError(t, repo.Delete(ctx, post.ID, ownership.SecretProof{Plaintext: "222222"}))

	_, err = repo.GetByID(ctx, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostRepository_ListAndDeleteByUser(t *testing.T) {
	_, posts := setupPosts(t)
	ctx := context.Background()
	repo := posts.For(models.KindLost)
	now := time.Now()

	require.NoError(t, repo.Create(ctx, testutil.LostPost(1, "a", now.Add(-time.Hour))))
	require.NoError(t, repo.Create(ctx, testutil.LostPost(1, "b", now)))
	require.NoError(t, repo.Create(ctx, testutil.LostPost(2, "c", now)))

	mine, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "b", mine[0].Base().Title)

	n, err := repo.DeleteByUser(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestPostRepository_PurgeExpired(t *testing.T) {
	_, posts := setupPosts(t)
	ctx := context.Background()
	now := time.Now()

	old := testutil.LostPost(1, "old", now.Add(-60*24*time.Hour))
	fresh := testutil.LostPost(1, "fresh", now)
	require.NoError(t, posts.For(models.KindLost).Create(ctx, old))
	require.NoError(t, posts.For(models.KindLost).Create(ctx, fresh))

	never := &models.ReportedPost{PostBase: secretPost(t, "333333")}
	require.NoError(t, posts.For(models.KindReported).Create(ctx, never))

	n, err := posts.For(models.KindLost).PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = posts.For(models.KindReported).PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n, "reported posts without expiry never expire")

	n, err = posts.For(models.KindAdoption).PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostRepository_LostPostLeavesListingAfterExpiry(t *testing.T) {
	_, posts := setupPosts(t)
	ctx := context.Background()
	repo := posts.For(models.KindLost)
	now := time.Now()

	secret, err := ownership.GenerateSecret()
	require.NoError(t, err)
	assert.Regexp(t, `^[1-9][0-9]{5}$`, secret)

	base := secretPost(t, secret)
	base.Title = "Gata perdida"
	base.Species = models.SpeciesCat
	post := &models.LostPost{PostBase: base, ExpiresAt: now.Add(30 * 24 * time.Hour)}
	require.NoError(t, repo.Create(ctx, post))

	cats := search.Filters{Kind: models.KindLost, Species: models.SpeciesCat}
	listed, err := repo.ListActive(ctx, search.Compose(cats, now))
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, post.ID, listed[0].Base().ID)

	later := now.Add(31 * 24 * time.Hour)
	listed, err = repo.ListActive(ctx, search.Compose(cats, later))
	require.NoError(t, err)
	assert.Empty(t, listed)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Base().Status, "expiry does not touch status")
}
