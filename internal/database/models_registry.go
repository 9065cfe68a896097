package database

import "atelier/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate: referenced tables first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Category{},
		&models.Post{},
		&models.Payment{},
		&models.Vote{},
		&models.Comment{},
		&models.CommentVote{},
		&models.ModerationAction{},
	}
}
