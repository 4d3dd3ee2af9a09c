// Package repository implements the data access layer for the application.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"huellas/internal/database"
	"huellas/internal/models"
)

const pgUniqueViolation = "23505"

// readDB routes reads to the replica when primary is the shared connection.
// Repositories bound to a transaction or a test database read from it directly.
func readDB(primary *gorm.DB) *gorm.DB {
	if primary != nil && primary == database.DB {
		if db := database.GetReadDB(); db != nil {
			return db
		}
	}
	return primary
}

// isUniqueViolation matches Postgres 23505 and GORM's translated duplicate error.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// storageError maps GORM errors onto AppErrors. AppErrors pass through.
func storageError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewPersistenceError(err)
}
