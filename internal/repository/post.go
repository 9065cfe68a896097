// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"time"

	"atelier/internal/models"
	"atelier/internal/ranking"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListFilter narrows a public listing.
type ListFilter struct {
	Sort       ranking.Sort
	CategoryID uint
	Featured   bool
	// Since restricts to posts created at or after it when non-nil.
	Since  *time.Time
	Limit  int
	Offset int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// LockByID reads the post with SELECT ... FOR UPDATE. Only meaningful
	// inside a transaction.
	LockByID(ctx context.Context, id uint) (*models.Post, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	RecountVotes(ctx context.Context, id uint) (models.VoteTally, error)
	RecountComments(ctx context.Context, id uint) (int64, error)
	ListListed(ctx context.Context, filter ListFilter) ([]*models.Post, int64, error)
	ListPendingModeration(ctx context.Context, limit, offset int) ([]*models.Post, int64, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, notFound(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) LockByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&post, id).Error
	if err != nil {
		return nil, notFound(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	cols := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		cols[k] = v
	}
	cols["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).UpdateColumns(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// RecountVotes rewrites both counters from the vote ledger and returns them.
func (r *postRepository) RecountVotes(ctx context.Context, id uint) (models.VoteTally, error) {
	db := r.db.WithContext(ctx)
	err := db.Model(&models.Post{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"upvote_count":   gorm.Expr("(SELECT COUNT(*) FROM votes WHERE votes.post_id = ? AND votes.vote_type = ?)", id, models.VoteUp),
		"downvote_count": gorm.Expr("(SELECT COUNT(*) FROM votes WHERE votes.post_id = ? AND votes.vote_type = ?)", id, models.VoteDown),
	}).Error
	if err != nil {
		return models.VoteTally{}, err
	}

	var tally models.VoteTally
	err = db.Model(&models.Post{}).
		Select("upvote_count AS upvotes, downvote_count AS downvotes").
		Where("id = ?", id).
		Take(&tally).Error
	if err != nil {
		return models.VoteTally{}, notFound(err, "Post", id)
	}
	return tally, nil
}

// RecountComments sets comment_count to the number of comment rows on the
// post. Soft-deleted comments stay in the tree and keep counting.
func (r *postRepository) RecountComments(ctx context.Context, id uint) (int64, error) {
	db := r.db.WithContext(ctx)
	err := db.Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("comment_count", gorm.Expr("(SELECT COUNT(*) FROM comments WHERE comments.post_id = ?)", id)).Error
	if err != nil {
		return 0, err
	}
	var count int64
	err = db.Model(&models.Post{}).Select("comment_count").Where("id = ?", id).Scan(&count).Error
	return count, err
}

func (r *postRepository) ListListed(ctx context.Context, filter ListFilter) ([]*models.Post, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("is_deleted = ? AND verification_status = ?", false, models.VerificationApproved)
	if filter.CategoryID != 0 {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Featured {
		q = q.Where("is_featured = ?", true)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []*models.Post
	q = applySort(q, filter.Sort)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// applySort appends the ORDER BY for sorts that SQL can express. Rising depends
// on the current time and is ordered in memory by the caller; it gets the
// "new" order here. Keys mirror ranking.Compare.
func applySort(db *gorm.DB, sort ranking.Sort) *gorm.DB {
	switch sort {
	case ranking.SortTop:
		return db.Order("(upvote_count - downvote_count) DESC, created_at DESC, id DESC")
	case ranking.SortHot:
		return db.Order("(upvote_count - downvote_count + comment_count) DESC, created_at DESC, id DESC")
	default:
		return db.Order("created_at DESC, id DESC")
	}
}

// ListPendingModeration returns paid artwork awaiting review, oldest first.
func (r *postRepository) ListPendingModeration(ctx context.Context, limit, offset int) ([]*models.Post, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("payment_status = ? AND verification_status = ? AND is_deleted = ?",
			models.PaymentStatusPaid, models.VerificationPending, false)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []*models.Post
	err := q.Order("created_at ASC, id ASC").Limit(limit).Offset(offset).Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}
