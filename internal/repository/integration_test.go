//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"huellas/internal/database"
	"huellas/internal/models"
	"huellas/internal/ownership"
	"huellas/internal/search"
)

// setupPostgres starts a disposable Postgres and applies the embedded migrations.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("huellas"),
		tcpostgres.WithUsername("huellas"),
		tcpostgres.WithPassword("huellas"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(ctx, db))
	return db
}

func TestPostgres_PostLifecycle(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	posts := NewPosts(db, NewSuspensionRepository(db))

	hash, err := ownership.NewHasher(4).HashSecret("424242")
	require.NoError(t, err)
	post := &models.ReportedPost{PostBase: models.PostBase{
		Title:           "Perro herido",
		LocationText:    "Av. Corrientes",
		Species:         models.SpeciesDog,
		Colors:          models.StringList{"Negro", "Marrón"},
		OwnerSecretHash: &hash,
	}, State: models.ReportStateInjured}
	require.NoError(t, posts.For(models.KindReported).Create(ctx, post))

	listed, err := posts.For(models.KindReported).ListActive(ctx,
		search.Compose(search.Filters{Kind: models.KindReported, SearchTerm: "HERIDO", Colors: []string{"marrón"}}, time.Now()))
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, models.StringList{"Negro", "Marrón"}, listed[0].Base().Colors)

	_, err = posts.For(models.KindReported).UpdateStatus(ctx, post.ID, models.StatusResolved, ownership.SecretProof{Plaintext: "424242"})
	require.NoError(t, err)

	var stored string
	require.NoError(t, db.Raw("SELECT status FROM reported_posts WHERE id = ?", post.ID).Scan(&stored).Error)
	assert.Equal(t, "inactive", stored)
}

func TestPostgres_OwnershipCheckConstraint(t *testing.T) {
	db := setupPostgres(t)

	err := db.Exec(`INSERT INTO adoption_posts (id, title, status, created_at, updated_at) VALUES ('00000000-0000-0000-0000-000000000001', 'x', 'active', now(), now())`).Error
	assert.Error(t, err, "a post with neither user nor secret is rejected by the schema")
}

func TestPostgres_HighlightUniqueViolation(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	users := NewUserRepository(db)
	u := &models.User{Email: "h@example.com", Password: "x"}
	require.NoError(t, users.Create(ctx, u))

	require.NoError(t, db.Create(&models.Highlight{UserID: u.ID, PostID: "p", PostType: models.KindLost}).Error)
	err := db.Create(&models.Highlight{UserID: u.ID, PostID: "p", PostType: models.KindLost}).Error
	assert.True(t, isUniqueViolation(err))
}
