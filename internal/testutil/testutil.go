// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"testing"
	"time"

	"atelier/internal/database"
	"atelier/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB returns a migrated in-memory SQLite database private to t.
// The pool is pinned to one connection so every query sees the same memory
// database; callers running in a transaction must use the transaction handle.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateCategory inserts a category with a unique slug.
func CreateCategory(t *testing.T, db *gorm.DB, slug string) *models.Category {
	t.Helper()
	category := &models.Category{Name: slug, Slug: slug}
	require.NoError(t, db.Create(category).Error)
	return category
}

// CreateListedPost inserts an approved text post.
func CreateListedPost(t *testing.T, db *gorm.DB, authorID, categoryID uint, title string) *models.Post {
	t.Helper()
	now := time.Now().UTC()
	post := &models.Post{
		AuthorID:           authorID,
		CategoryID:         categoryID,
		Title:              title,
		Content:            title + " body",
		PostType:           models.PostTypeText,
		PaymentStatus:      models.PaymentStatusNone,
		VerificationStatus: models.VerificationApproved,
		PublishedAt:        &now,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

// CreatePaidArtwork inserts artwork that has cleared payment and awaits review.
func CreatePaidArtwork(t *testing.T, db *gorm.DB, authorID, categoryID uint, title string) *models.Post {
	t.Helper()
	post := &models.Post{
		AuthorID:           authorID,
		CategoryID:         categoryID,
		Title:              title,
		Content:            title + " body",
		MediaURL:           "https://cdn.example.com/" + title + ".png",
		PostType:           models.PostTypeArtwork,
		PaymentStatus:      models.PaymentStatusPaid,
		VerificationStatus: models.VerificationPending,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

// Reload re-reads a post, bypassing any cache.
func Reload(t *testing.T, db *gorm.DB, id uint) *models.Post {
	t.Helper()
	var post models.Post
	require.NoError(t, db.First(&post, id).Error)
	return &post
}
