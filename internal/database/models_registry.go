package database

import "dojo/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Post{},
		&models.PostTag{},
		&models.Media{},
		&models.Comment{},
		&models.Notification{},
	}
}
