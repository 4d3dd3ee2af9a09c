package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"huellas/internal/config"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{DBMaxOpenConns: 10, DBMaxIdleConns: 5, DBConnMaxLifetimeMinutes: 15}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "huellas"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=huellas sslmode=disable", DSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")
}

func TestResolveSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    SchemaPolicy
		wantErr bool
	}{
		{"hybrid dev", config.Config{Env: "development"}, SchemaPolicy{Mode: "hybrid", RunSQL: true, AutoMigrate: true}, false},
		{"hybrid prod", config.Config{Env: "production", DBSchemaMode: "hybrid"}, SchemaPolicy{Mode: "hybrid", RunSQL: true}, false},
		{"sql", config.Config{Env: "development", DBSchemaMode: "SQL"}, SchemaPolicy{Mode: "sql", RunSQL: true}, false},
		{"auto dev", config.Config{Env: "test", DBSchemaMode: "auto"}, SchemaPolicy{Mode: "auto", AutoMigrate: true}, false},
		{"auto prod refused", config.Config{Env: "prod", DBSchemaMode: "auto"}, SchemaPolicy{}, true},
		{"auto prod allowed", config.Config{Env: "prod", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, SchemaPolicy{Mode: "auto", AutoMigrate: true}, false},
		{"unknown", config.Config{DBSchemaMode: "yolo"}, SchemaPolicy{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSchemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmbeddedMigrationsAreOrderedAndPaired(t *testing.T) {
	ms := GetMigrations()
	require.NotEmpty(t, ms)
	for i, m := range ms {
		assert.NotEmpty(t, m.UpScript, m.String())
		assert.NotEmpty(t, m.DownScript, m.String())
		if i > 0 {
			assert.Greater(t, m.Version, ms[i-1].Version)
		}
	}
	assert.Contains(t, GetMigrationByVersion(2).UpScript, "chk_lost_posts_owner")
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestLoadMigrationsRejectsBadInput(t *testing.T) {
	missingDown := fstest.MapFS{
		"migrations/000001_a.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := LoadMigrations(missingDown)
	assert.Error(t, err)

	badName := fstest.MapFS{
		"migrations/abc.up.sql":   {Data: []byte("SELECT 1;")},
		"migrations/abc.down.sql": {Data: []byte("SELECT 1;")},
	}
	_, err = LoadMigrations(badName)
	assert.Error(t, err)
}

type fakeStore struct {
	applied []int
	ran     []int
}

func (f *fakeStore) GetAppliedMigrations(context.Context) ([]int, error) { return f.applied, nil }
func (f *fakeStore) ApplyMigration(_ context.Context, m Migration) error {
	f.ran = append(f.ran, m.Version)
	return nil
}
func (f *fakeStore) RevertMigration(context.Context, Migration) error { return nil }

func TestApplyPendingSkipsApplied(t *testing.T) {
	registered := []Migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}, {Version: 3, Name: "c"}}
	store := &fakeStore{applied: []int{1}}

	require.NoError(t, applyPending(context.Background(), store, registered))
	assert.Equal(t, []int{2, 3}, store.ran)
}

func TestApplyPendingRejectsUnknownVersions(t *testing.T) {
	store := &fakeStore{applied: []int{1, 7}}
	err := applyPending(context.Background(), store, []Migration{{Version: 1, Name: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
	assert.Empty(t, store.ran)
}

func TestGetAppliedMigrationsQueryShape(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT "version" FROM "migration_logs" ORDER BY version ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1).AddRow(2))

	got, err := NewMigrationStore(db).GetAppliedMigrations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
