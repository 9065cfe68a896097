package repository

import (
	"context"
	"time"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	// ListByPost returns every comment row on the post, deleted ones included,
	// in insertion order.
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	SoftDelete(ctx context.Context, id uint) error
	RecountVotes(ctx context.Context, id uint) (models.VoteTally, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, notFound(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("id ASC").Find(&comments).Error
	return comments, err
}

func (r *commentRepository) SoftDelete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"is_deleted": true, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

// RecountVotes rewrites the comment's counters from the comment vote ledger.
func (r *commentRepository) RecountVotes(ctx context.Context, id uint) (models.VoteTally, error) {
	db := r.db.WithContext(ctx)
	err := db.Model(&models.Comment{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"upvotes":   gorm.Expr("(SELECT COUNT(*) FROM comment_votes WHERE comment_votes.comment_id = ? AND comment_votes.vote_type = ?)", id, models.VoteUp),
		"downvotes": gorm.Expr("(SELECT COUNT(*) FROM comment_votes WHERE comment_votes.comment_id = ? AND comment_votes.vote_type = ?)", id, models.VoteDown),
	}).Error
	if err != nil {
		return models.VoteTally{}, err
	}

	var tally models.VoteTally
	err = db.Model(&models.Comment{}).Select("upvotes, downvotes").Where("id = ?", id).Take(&tally).Error
	if err != nil {
		return models.VoteTally{}, notFound(err, "Comment", id)
	}
	return tally, nil
}
