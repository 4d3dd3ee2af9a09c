package database

import "huellas/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.LostPost{},
		&models.ReportedPost{},
		&models.AdoptionPost{},
		&models.Classified{},
		&models.Highlight{},
		&models.Report{},
		&models.Veterinarian{},
		&models.SuspendedPostLog{},
	}
}
