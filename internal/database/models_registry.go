package database

import "galaxydistance/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Galaxy{},
		&models.GalaxyRequest{},
		&models.GalaxyInRequest{},
	}
}
