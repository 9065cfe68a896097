package repository

import (
	"context"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// ModerationActionRepository is the append-only moderation audit log.
type ModerationActionRepository interface {
	Create(ctx context.Context, action *models.ModerationAction) error
	ListByPost(ctx context.Context, postID uint) ([]*models.ModerationAction, error)
	// HasApplied reports whether action was ever applied to the post.
	HasApplied(ctx context.Context, postID uint, action models.ModerationActionType) (bool, error)
}

type moderationActionRepository struct {
	db *gorm.DB
}

// NewModerationActionRepository creates a new moderation audit repository
func NewModerationActionRepository(db *gorm.DB) ModerationActionRepository {
	return &moderationActionRepository{db: db}
}

func (r *moderationActionRepository) Create(ctx context.Context, action *models.ModerationAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *moderationActionRepository) ListByPost(ctx context.Context, postID uint) ([]*models.ModerationAction, error) {
	var actions []*models.ModerationAction
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&actions).Error
	return actions, err
}

func (r *moderationActionRepository) HasApplied(ctx context.Context, postID uint, action models.ModerationActionType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ModerationAction{}).
		Where("post_id = ? AND action = ? AND outcome = ?", postID, action, models.OutcomeApplied).
		Count(&count).Error
	return count > 0, err
}
