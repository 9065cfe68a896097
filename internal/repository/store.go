package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles the per-entity repositories bound to one handle,
// either the pool or an open transaction.
type Repositories struct {
	Posts      PostRepository
	Payments   PaymentRepository
	Votes      VoteRepository
	Comments   CommentRepository
	Moderation ModerationActionRepository
	Categories CategoryRepository
}

// NewRepositories binds every repository to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Posts:      NewPostRepository(db),
		Payments:   NewPaymentRepository(db),
		Votes:      NewVoteRepository(db),
		Comments:   NewCommentRepository(db),
		Moderation: NewModerationActionRepository(db),
		Categories: NewCategoryRepository(db),
	}
}

// Store owns the connection pool. Its embedded repositories run outside any
// transaction; InTx hands fn repositories bound to a single transaction.
type Store struct {
	Repositories
	db *gorm.DB
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{Repositories: NewRepositories(db), db: db}
}

// InTx runs fn in one transaction. It commits when fn returns nil and rolls
// back otherwise, including when ctx expires mid-flight.
func (s *Store) InTx(ctx context.Context, fn func(tx Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// DB exposes the pool for health checks and schema tooling.
func (s *Store) DB() *gorm.DB {
	return s.db
}
