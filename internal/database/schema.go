package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"gorm.io/gorm"

	"huellas/internal/config"
	"huellas/internal/middleware"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPolicy says which schema mechanisms run at startup.
type SchemaPolicy struct {
	Mode        string
	RunSQL      bool
	AutoMigrate bool
}

// SchemaStatus is reported by the migrate CLI.
type SchemaStatus struct {
	SchemaPolicy
	Environment       string
	AppliedVersions   []int
	PendingMigrations []Migration
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	default:
		return false
	}
}

// ResolveSchemaPolicy applies DB_SCHEMA_MODE to the environment. Hybrid runs
// the SQL migrations everywhere and AutoMigrate outside production-like envs.
// Auto in a production-like env needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE.
func ResolveSchemaPolicy(cfg *config.Config) (SchemaPolicy, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		return SchemaPolicy{Mode: mode, RunSQL: true}, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return SchemaPolicy{}, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return SchemaPolicy{Mode: mode, AutoMigrate: true}, nil
	case SchemaModeHybrid:
		return SchemaPolicy{Mode: mode, RunSQL: true, AutoMigrate: !prodLike}, nil
	default:
		return SchemaPolicy{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// AutoMigrate creates or updates every persistent model's table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema runs whatever the resolved policy enables.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	policy, err := ResolveSchemaPolicy(cfg)
	if err != nil {
		return err
	}

	if policy.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if policy.AutoMigrate {
		if policy.Mode == SchemaModeAuto && isProdLikeEnv(cfg.Env) {
			middleware.Logger.Warn("AutoMigrate enabled in a production-like environment; review schema diffs")
		}
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", policy.Mode), slog.String("env", cfg.Env))
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the policy and, when SQL migrations run, which are pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	policy, err := ResolveSchemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{SchemaPolicy: policy, Environment: cfg.Env}
	if !policy.RunSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied
	for _, m := range GetMigrations() {
		if !slices.Contains(applied, m.Version) {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
