package repository

import (
	"context"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// VoteRepository is the vote ledger for posts and comments. Counter upkeep
// lives on the owning entity's repository.
type VoteRepository interface {
	Get(ctx context.Context, userID, postID uint) (*models.Vote, error)
	Create(ctx context.Context, vote *models.Vote) error
	SetType(ctx context.Context, userID, postID uint, voteType models.VoteType) error
	Delete(ctx context.Context, userID, postID uint) (bool, error)
	Tally(ctx context.Context, postID uint) (models.VoteTally, error)

	GetCommentVote(ctx context.Context, userID, commentID uint) (*models.CommentVote, error)
	CreateCommentVote(ctx context.Context, vote *models.CommentVote) error
	SetCommentVoteType(ctx context.Context, userID, commentID uint, voteType models.VoteType) error
	DeleteCommentVote(ctx context.Context, userID, commentID uint) (bool, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Get(ctx context.Context, userID, postID uint) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		First(&vote).Error
	if err != nil {
		return nil, notFound(err, "Vote", postID)
	}
	return &vote, nil
}

func (r *voteRepository) Create(ctx context.Context, vote *models.Vote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *voteRepository) SetType(ctx context.Context, userID, postID uint, voteType models.VoteType) error {
	return r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Update("vote_type", voteType).Error
}

func (r *voteRepository) Delete(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Vote{})
	return res.RowsAffected > 0, res.Error
}

// Tally counts the ledger directly, bypassing the denormalized counters.
func (r *voteRepository) Tally(ctx context.Context, postID uint) (models.VoteTally, error) {
	var tally models.VoteTally
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("COALESCE(SUM(CASE WHEN vote_type = ? THEN 1 ELSE 0 END), 0) AS upvotes, "+
			"COALESCE(SUM(CASE WHEN vote_type = ? THEN 1 ELSE 0 END), 0) AS downvotes",
			models.VoteUp, models.VoteDown).
		Where("post_id = ?", postID).
		Scan(&tally).Error
	return tally, err
}

func (r *voteRepository) GetCommentVote(ctx context.Context, userID, commentID uint) (*models.CommentVote, error) {
	var vote models.CommentVote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		First(&vote).Error
	if err != nil {
		return nil, notFound(err, "Comment vote", commentID)
	}
	return &vote, nil
}

func (r *voteRepository) CreateCommentVote(ctx context.Context, vote *models.CommentVote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *voteRepository) SetCommentVoteType(ctx context.Context, userID, commentID uint, voteType models.VoteType) error {
	return r.db.WithContext(ctx).Model(&models.CommentVote{}).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Update("vote_type", voteType).Error
}

func (r *voteRepository) DeleteCommentVote(ctx context.Context, userID, commentID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&models.CommentVote{})
	return res.RowsAffected > 0, res.Error
}
